package cards

import (
	"fmt"
	"html"
	"strings"

	"goflare.io/statcrab/models"
)

const (
	langsCardWidth  = 330
	langsRowHeight  = 28
	langsPadding    = 10
	progressBarX    = 110
	progressBarMaxW = 180
	progressBarH    = 8
)

// LangsCard renders a language ranking as labelled progress bars. Bar
// lengths are proportional to each language's share of the total score
// across the entries shown.
type LangsCard struct {
	login    string
	ranking  models.LanguageRanking
	settings Settings
}

func NewLangsCard(login string, ranking models.LanguageRanking, settings Settings) *LangsCard {
	return &LangsCard{
		login:    login,
		ranking:  ranking,
		settings: settings,
	}
}

// Render produces the language card SVG.
func (c *LangsCard) Render() (SVG, error) {
	header := c.settings.headerHeight()
	rows := len(c.ranking)
	if rows == 0 {
		rows = 1
	}
	height := header + rows*langsRowHeight + 2*langsPadding + c.settings.OffsetY

	var totalScore float64
	for _, entry := range c.ranking {
		totalScore += entry.Score
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<g transform=\"translate(%d, %d)\">\n",
		c.settings.OffsetX, header+langsPadding+c.settings.OffsetY)

	if len(c.ranking) == 0 {
		body.WriteString("    <text class=\"label\" x=\"0\" y=\"18\">No language data</text>\n")
	}

	for i, entry := range c.ranking {
		y := i * langsRowHeight
		percent := 0.0
		if totalScore > 0 {
			percent = entry.Score / totalScore * 100
		}
		barWidth := int(float64(progressBarMaxW) * percent / 100)

		fmt.Fprintf(&body, "    <text class=\"label\" x=\"0\" y=\"%d\">%s</text>\n",
			y+14, html.EscapeString(entry.Name))
		fmt.Fprintf(&body, "    <rect class=\"progressBarBackground\" x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" rx=\"4\"/>\n",
			progressBarX, y+7, progressBarMaxW, progressBarH)
		if barWidth > 0 {
			fmt.Fprintf(&body, "    <rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" rx=\"4\" fill=\"%s\"/>\n",
				progressBarX, y+7, barWidth, progressBarH, LanguageColor(entry.Name))
		}
		fmt.Fprintf(&body, "    <text class=\"value\" x=\"%d\" y=\"%d\" text-anchor=\"end\">%.2f%%</text>\n",
			langsCardWidth-2*c.settings.OffsetX, y+14, percent)
	}
	body.WriteString("  </g>")

	title := fmt.Sprintf("@%s's Top Languages", c.login)
	description := fmt.Sprintf("Most used programming languages for %s", c.login)
	card, err := NewCard(langsCardWidth, height, title, description, body.String(), c.settings)
	if err != nil {
		return "", fmt.Errorf("failed to build languages card: %w", err)
	}
	return card.Render(), nil
}
