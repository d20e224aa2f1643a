package cards

import (
	"fmt"
	"html"
	"strings"

	"goflare.io/statcrab/models"
)

const (
	statsCardWidth = 330
	statsRowHeight = 24
	statsPadding   = 10
)

// statRow is a single label/value line of the stats card.
type statRow struct {
	field string
	label string
	value int
}

// StatsCard renders a user's aggregated counters as label/value rows,
// omitting any fields the caller chose to hide.
type StatsCard struct {
	login    string
	rows     []statRow
	settings Settings
}

// NewStatsCard builds a stats card for the given user. hide contains
// stat field names to omit; callers are expected to have validated the
// names upstream.
func NewStatsCard(stats *models.UserStats, hide []string, settings Settings) *StatsCard {
	hidden := make(map[string]bool, len(hide))
	for _, field := range hide {
		hidden[field] = true
	}

	all := []statRow{
		{"stars_count", "Stars", stats.Stars},
		{"commits_ytd_count", "Commits (YTD)", stats.CommitsYTD},
		{"issues_count", "Issues", stats.Issues},
		{"pull_requests_count", "Pull Requests", stats.PullRequests},
		{"merge_requests_count", "Merged PRs", stats.MergedPullRequests},
		{"reviews_count", "Reviews", stats.Reviews},
		{"started_discussions_count", "Started Discussions", stats.DiscussionsStarted},
		{"answered_discussions_count", "Answered Discussions", stats.DiscussionsAnswered},
	}

	rows := make([]statRow, 0, len(all))
	for _, row := range all {
		if !hidden[row.field] {
			rows = append(rows, row)
		}
	}

	return &StatsCard{
		login:    stats.Login,
		rows:     rows,
		settings: settings,
	}
}

// Render produces the stats card SVG.
func (c *StatsCard) Render() (SVG, error) {
	header := c.settings.headerHeight()
	height := header + len(c.rows)*statsRowHeight + 2*statsPadding + c.settings.OffsetY

	var body strings.Builder
	fmt.Fprintf(&body, "<g transform=\"translate(%d, %d)\">\n",
		c.settings.OffsetX, header+statsPadding+c.settings.OffsetY)
	for i, row := range c.rows {
		y := (i + 1) * statsRowHeight
		fmt.Fprintf(&body, "    <text class=\"label\" x=\"0\" y=\"%d\">%s:</text>\n",
			y, html.EscapeString(row.label))
		fmt.Fprintf(&body, "    <text class=\"value\" x=\"%d\" y=\"%d\" text-anchor=\"end\">%d</text>\n",
			statsCardWidth-2*c.settings.OffsetX, y, row.value)
	}
	body.WriteString("  </g>")

	title := fmt.Sprintf("@%s's GitHub Stats", c.login)
	description := fmt.Sprintf("GitHub statistics for %s", c.login)
	card, err := NewCard(statsCardWidth, height, title, description, body.String(), c.settings)
	if err != nil {
		return "", fmt.Errorf("failed to build stats card: %w", err)
	}
	return card.Render(), nil
}
