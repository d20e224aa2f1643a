package statcrab

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"goflare.io/statcrab/models"
)

// StatsOptions are the caller inputs for a user-stats query. Hide is
// validated here but applied by the presentation layer, so one cached value
// serves every hide selection.
type StatsOptions struct {
	Hide         []string
	ExcludeRepos []string
}

// UserStats returns the aggregate statistics for username, serving from
// cache when possible. Validation failures are returned before any cache or
// network work.
func (s *Service) UserStats(ctx context.Context, username string, opts StatsOptions) (*models.UserStats, error) {
	ctx, span := s.tracer.Start(ctx, "Service.UserStats", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateHide(opts.Hide); err != nil {
		return nil, err
	}

	key := statsCacheKey(username, opts.ExcludeRepos)
	v, err := s.cache.GetOrCompute(ctx, key, s.cfg.StatsTTL, func(ctx context.Context) (Weighted, error) {
		var stats *models.UserStats
		if err := s.retrier.Run(ctx, func() error {
			var err error
			stats, err = s.fetchUserStats(ctx, username, opts.ExcludeRepos)
			return err
		}); err != nil {
			return nil, err
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.UserStats), nil
}

// fetchUserStats exhausts repository pagination before aggregating; no
// metric is computed from a partial stream.
func (s *Service) fetchUserStats(ctx context.Context, username string, excludeRepos []string) (*models.UserStats, error) {
	totals, page, err := s.upstream.FetchUserTotals(ctx, username)
	if err != nil {
		return nil, err
	}

	repos := page.Items
	cursor := page.PageInfo.EndCursor
	for hasNext := page.PageInfo.HasNextPage; hasNext; {
		next, err := s.upstream.FetchRepositoryPage(ctx, username, cursor)
		if err != nil {
			return nil, err
		}
		repos = append(repos, next.Items...)
		hasNext = next.PageInfo.HasNextPage
		cursor = next.PageInfo.EndCursor
	}

	return aggregateStats(totals, repos, excludeRepos), nil
}

// aggregateStats folds the complete record set into one UserStats. Excluded
// repositories are dropped before any summation.
func aggregateStats(totals *models.UserTotals, repos []models.RepositoryRecord, excludeRepos []string) *models.UserStats {
	excluded := make(map[string]struct{}, len(excludeRepos))
	for _, name := range excludeRepos {
		excluded[name] = struct{}{}
	}

	stars := 0
	for _, repo := range repos {
		if _, skip := excluded[repo.Name]; skip {
			continue
		}
		stars += repo.Stars
	}

	return &models.UserStats{
		Name:                totals.Name,
		Login:               totals.Login,
		Stars:               stars,
		CommitsYTD:          totals.CommitsYTD,
		Issues:              totals.OpenIssues + totals.ClosedIssues,
		PullRequests:        totals.PullRequests,
		MergedPullRequests:  totals.MergedPullRequests,
		Reviews:             totals.Reviews,
		DiscussionsStarted:  totals.DiscussionsStarted,
		DiscussionsAnswered: totals.DiscussionsAnswered,
		Followers:           totals.Followers,
	}
}
