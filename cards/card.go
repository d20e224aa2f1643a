// Package cards renders the service's results as SVG artifacts. It is a
// pure presentation layer: it consumes aggregated values plus a theme
// identifier and never touches the network or the cache.
package cards

import (
	"fmt"
	"html"
	"strings"
)

// SVG is a rendered vector image.
type SVG = string

const titleFontSize = 18

// Settings are the visual options shared by every card type.
type Settings struct {
	OffsetX              int
	OffsetY              int
	Theme                Theme
	HideTitle            bool
	HideBackground       bool
	HideBackgroundStroke bool
}

// DefaultSettings returns the settings used when the caller specifies
// nothing.
func DefaultSettings() Settings {
	return Settings{
		OffsetX: 12,
		OffsetY: 12,
		Theme:   DefaultTheme,
	}
}

// Card is the base frame every card type renders into: sized viewport,
// theme stylesheet, accessible title/description, optional background and
// visual title.
type Card struct {
	width       int
	height      int
	title       string
	description string
	body        string
	settings    Settings
}

func NewCard(width, height int, title, description, body string, settings Settings) (*Card, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid card dimensions %dx%d", width, height)
	}
	return &Card{
		width:       width,
		height:      height,
		title:       title,
		description: description,
		body:        body,
		settings:    settings,
	}, nil
}

// Render produces the full SVG document.
func (c *Card) Render() SVG {
	var sb strings.Builder

	fmt.Fprintf(&sb, `<svg
  width="%d"
  height="%d"
  viewBox="0 0 %d %d"
  fill="none"
  xmlns="http://www.w3.org/2000/svg"
  role="img"
  aria-labelledby="title-id"
  aria-describedby="description-id"
>
`, c.width, c.height, c.width, c.height)

	sb.WriteString("  <style>\n")
	sb.WriteString(indent(c.settings.Theme.stylesheet(), "  "))
	sb.WriteString("  </style>\n")

	fmt.Fprintf(&sb, "  <title id=\"title-id\">%s</title>\n", html.EscapeString(c.title))
	fmt.Fprintf(&sb, "  <desc id=\"description-id\">%s</desc>\n", html.EscapeString(c.description))

	if !c.settings.HideBackground {
		strokeOpacity := 1
		if c.settings.HideBackgroundStroke {
			strokeOpacity = 0
		}
		fmt.Fprintf(&sb,
			"  <rect class=\"background\" x=\"0.5\" y=\"0.5\" width=\"%d\" height=\"%d\" rx=\"6\" stroke-opacity=\"%d\"/>\n",
			c.width-1, c.height-1, strokeOpacity)
	}

	if !c.settings.HideTitle {
		fmt.Fprintf(&sb,
			"  <g class=\"title\" transform=\"translate(%d, %d)\">\n    <text class=\"title\">%s</text>\n  </g>\n",
			c.settings.OffsetX, titleFontSize+c.settings.OffsetY, html.EscapeString(c.title))
	}

	sb.WriteString("  ")
	sb.WriteString(c.body)
	sb.WriteString("\n</svg>\n")

	return sb.String()
}

// headerHeight is the vertical room the title block occupies, zero when the
// title is hidden.
func (c *Settings) headerHeight() int {
	if c.HideTitle {
		return 0
	}
	return titleFontSize + 10
}

func indent(s, prefix string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
