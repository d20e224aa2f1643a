package models

import "time"

// UserStats is the full statistic set for one user. Every field is always
// computed; hiding individual fields is a presentation concern applied after
// caching so one cached value serves every hide selection.
type UserStats struct {
	Name                string
	Login               string
	Stars               int
	CommitsYTD          int
	Issues              int
	PullRequests        int
	MergedPullRequests  int
	Reviews             int
	DiscussionsStarted  int
	DiscussionsAnswered int
	Followers           int
}

// Weight estimates the in-memory footprint for cache capacity accounting.
func (s *UserStats) Weight() uint64 {
	return uint64(96 + len(s.Name) + len(s.Login))
}

// UserTotals holds the per-user counters reported by the first stats query,
// before repository pagination contributes the star total.
type UserTotals struct {
	Name                string
	Login               string
	CommitsYTD          int
	OpenIssues          int
	ClosedIssues        int
	PullRequests        int
	MergedPullRequests  int
	Reviews             int
	DiscussionsStarted  int
	DiscussionsAnswered int
	Followers           int
}

// RepositoryRecord is one repository as reported by the upstream API.
// Languages maps language name to byte size and never contains empty names.
type RepositoryRecord struct {
	ID        string
	Owner     string
	Name      string
	IsFork    bool
	IsPrivate bool
	Stars     int
	Forks     int
	Languages map[string]int
}

// PageInfo is the cursor state of one upstream page.
type PageInfo struct {
	EndCursor   string
	HasNextPage bool
}

// RateLimit is the quota state reported alongside every upstream response.
type RateLimit struct {
	Limit     int
	Remaining int
	Used      int
	ResetAt   time.Time
}

// UpstreamPage is one page of repository records plus the pagination and
// quota state needed to decide whether fetching may continue.
type UpstreamPage struct {
	Items     []RepositoryRecord
	PageInfo  PageInfo
	RateLimit RateLimit
}

// LanguageStat is the folded per-language total before ranking.
type LanguageStat struct {
	Name      string
	SizeBytes int
	RepoCount int
}

// LanguageRankEntry is one language in the final ranking. Rank positions
// start at 1.
type LanguageRankEntry struct {
	Name  string
	Score float64
	Rank  int
}

// LanguageRanking is an ordered, deterministic language ranking.
type LanguageRanking []LanguageRankEntry

// Weight estimates the in-memory footprint for cache capacity accounting.
func (r LanguageRanking) Weight() uint64 {
	w := uint64(24)
	for _, e := range r {
		w += uint64(32 + len(e.Name))
	}
	return w
}
