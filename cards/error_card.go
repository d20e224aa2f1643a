package cards

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"goflare.io/statcrab"
)

const (
	errorCardWidth    = 330
	errorLineChars    = 45
	errorLineHeight   = 18
	errorMessageX     = 40
	errorIconSize     = 24
	errorCardPadding  = 14
	errorMinBodyLines = 1
)

// ErrorCard renders a failure as a themed SVG so image consumers get a
// legible response instead of a broken image.
type ErrorCard struct {
	title    string
	message  string
	settings Settings
}

func NewErrorCard(title, message string, settings Settings) *ErrorCard {
	return &ErrorCard{
		title:    title,
		message:  message,
		settings: settings,
	}
}

// ErrorCardFromError maps a service error to a card with a title and
// message appropriate for the failure kind.
func ErrorCardFromError(err error, settings Settings) *ErrorCard {
	var (
		invalidUsername *statcrab.InvalidUsernameError
		rateLimit       *statcrab.RateLimitError
		validation      *statcrab.ValidationError
	)

	switch {
	case errors.Is(err, statcrab.ErrUserNotFound):
		return NewErrorCard("User Not Found", "No GitHub user exists with that username.", settings)
	case errors.Is(err, statcrab.ErrMissingToken):
		return NewErrorCard("Configuration Error", "The service is missing its GitHub API token.", settings)
	case errors.As(err, &invalidUsername):
		return NewErrorCard("Invalid Username", err.Error(), settings)
	case errors.As(err, &rateLimit):
		return NewErrorCard("Rate Limited", fmt.Sprintf("GitHub API quota exhausted, retry after %s.",
			rateLimit.ResetAt.UTC().Format("15:04 MST")), settings)
	case errors.As(err, &validation):
		return NewErrorCard("Invalid Request", err.Error(), settings)
	default:
		return NewErrorCard("Something Went Wrong", "Could not reach the GitHub API, try again later.", settings)
	}
}

// Render produces the error card SVG. Rendering an error card cannot
// itself fail; a degenerate frame would leave errors invisible.
func (c *ErrorCard) Render() SVG {
	lines := wrapText(c.message, errorLineChars)
	if len(lines) < errorMinBodyLines {
		lines = []string{""}
	}

	header := c.settings.headerHeight()
	height := header + len(lines)*errorLineHeight + 2*errorCardPadding + errorIconSize + c.settings.OffsetY

	var body strings.Builder
	fmt.Fprintf(&body, "<g transform=\"translate(%d, %d)\">\n",
		c.settings.OffsetX, header+errorCardPadding+c.settings.OffsetY)
	body.WriteString("    <path fill=\"#e05d44\" d=\"M12 2 1 21h22L12 2zm1 14h-2v2h2v-2zm0-6h-2v4h2v-4z\"/>\n")
	for i, line := range lines {
		fmt.Fprintf(&body, "    <text class=\"error-message\" x=\"%d\" y=\"%d\">%s</text>\n",
			errorMessageX, 14+i*errorLineHeight, html.EscapeString(line))
	}
	body.WriteString("  </g>")

	card, err := NewCard(errorCardWidth, height, c.title, c.message, body.String(), c.settings)
	if err != nil {
		return plainErrorSVG(c.title)
	}
	return card.Render()
}

// plainErrorSVG is the unthemed fallback for when even the card frame
// cannot be built.
func plainErrorSVG(title string) SVG {
	return fmt.Sprintf(`<svg width="330" height="60" viewBox="0 0 330 60" xmlns="http://www.w3.org/2000/svg">
  <text x="10" y="35" font-family="sans-serif" font-size="14" fill="#e05d44">%s</text>
</svg>
`, html.EscapeString(title))
}

// wrapText splits a message into lines of at most limit characters,
// breaking on spaces. Words longer than the limit get their own line.
func wrapText(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > limit {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	return lines
}
