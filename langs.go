package statcrab

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"goflare.io/statcrab/models"
)

// DefaultMaxLanguages limits the ranking length when the caller does not ask
// for a specific size.
const DefaultMaxLanguages = 8

// LangOptions are the caller inputs for a language-ranking query. All fields
// affect the result and are part of the cache fingerprint.
type LangOptions struct {
	SizeWeight   float64
	CountWeight  float64
	MaxLanguages int
	ExcludeRepos []string
}

// TopLanguages returns the weighted language ranking for username, serving
// from cache when possible.
func (s *Service) TopLanguages(ctx context.Context, username string, opts LangOptions) (models.LanguageRanking, error) {
	ctx, span := s.tracer.Start(ctx, "Service.TopLanguages", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if opts.SizeWeight < 0 {
		return nil, &ValidationError{Field: "size_weight", Reason: "must not be negative"}
	}
	if opts.CountWeight < 0 {
		return nil, &ValidationError{Field: "count_weight", Reason: "must not be negative"}
	}
	if opts.MaxLanguages < 0 {
		return nil, &ValidationError{Field: "max_languages", Reason: "must not be negative"}
	}
	if opts.MaxLanguages == 0 {
		opts.MaxLanguages = DefaultMaxLanguages
	}

	key := langsCacheKey(username, opts)
	v, err := s.cache.GetOrCompute(ctx, key, s.cfg.LanguagesTTL, func(ctx context.Context) (Weighted, error) {
		var repos []models.RepositoryRecord
		if err := s.retrier.Run(ctx, func() error {
			var err error
			repos, err = s.fetchLanguageRepos(ctx, username)
			return err
		}); err != nil {
			return nil, err
		}

		stats := foldLanguages(repos, opts.ExcludeRepos)
		return rankLanguages(stats, opts.SizeWeight, opts.CountWeight, opts.MaxLanguages), nil
	})
	if err != nil {
		return nil, err
	}

	return v.(models.LanguageRanking), nil
}

func (s *Service) fetchLanguageRepos(ctx context.Context, username string) ([]models.RepositoryRecord, error) {
	var repos []models.RepositoryRecord

	cursor := ""
	for {
		page, err := s.upstream.FetchLanguagePage(ctx, username, cursor)
		if err != nil {
			return nil, err
		}
		repos = append(repos, page.Items...)
		if !page.PageInfo.HasNextPage {
			return repos, nil
		}
		cursor = page.PageInfo.EndCursor
	}
}

// foldLanguages groups language byte sizes across non-excluded repositories:
// total bytes per language plus the number of distinct repositories using it.
func foldLanguages(repos []models.RepositoryRecord, excludeRepos []string) []models.LanguageStat {
	excluded := make(map[string]struct{}, len(excludeRepos))
	for _, name := range excludeRepos {
		excluded[name] = struct{}{}
	}

	byName := make(map[string]*models.LanguageStat)
	for _, repo := range repos {
		if _, skip := excluded[repo.Name]; skip {
			continue
		}
		for lang, size := range repo.Languages {
			stat, ok := byName[lang]
			if !ok {
				stat = &models.LanguageStat{Name: lang}
				byName[lang] = stat
			}
			stat.SizeBytes += size
			stat.RepoCount++
		}
	}

	stats := make([]models.LanguageStat, 0, len(byName))
	for _, stat := range byName {
		stats = append(stats, *stat)
	}
	return stats
}

// rankLanguages computes the composite score for every language and returns
// a deterministic descending ranking truncated to maxLanguages.
//
// Byte totals and repository counts are normalized to [0,1] by their maxima
// before weighting, so one oversized file cannot drown out a language used
// across many repositories.
func rankLanguages(stats []models.LanguageStat, sizeWeight, countWeight float64, maxLanguages int) models.LanguageRanking {
	kept := make([]models.LanguageStat, 0, len(stats))
	for _, stat := range stats {
		if stat.SizeBytes > 0 {
			kept = append(kept, stat)
		}
	}
	if len(kept) == 0 {
		return models.LanguageRanking{}
	}

	if sizeWeight == 0 && countWeight == 0 {
		// An all-zero weighting would score every language 0 and leave the
		// ordering undefined; fall back to an even split.
		sizeWeight, countWeight = 0.5, 0.5
	}

	var maxBytes, maxCount int
	for _, stat := range kept {
		if stat.SizeBytes > maxBytes {
			maxBytes = stat.SizeBytes
		}
		if stat.RepoCount > maxCount {
			maxCount = stat.RepoCount
		}
	}

	type scored struct {
		models.LanguageStat
		score float64
	}
	ranked := make([]scored, len(kept))
	for i, stat := range kept {
		normSize := float64(stat.SizeBytes) / float64(maxBytes)
		normCount := float64(stat.RepoCount) / float64(maxCount)
		ranked[i] = scored{
			LanguageStat: stat,
			score:        sizeWeight*normSize + countWeight*normCount,
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].SizeBytes != ranked[j].SizeBytes {
			return ranked[i].SizeBytes > ranked[j].SizeBytes
		}
		return ranked[i].Name < ranked[j].Name
	})

	if maxLanguages > 0 && len(ranked) > maxLanguages {
		ranked = ranked[:maxLanguages]
	}

	entries := make(models.LanguageRanking, len(ranked))
	for i, sc := range ranked {
		entries[i] = models.LanguageRankEntry{
			Name:  sc.Name,
			Score: sc.score,
			Rank:  i + 1,
		}
	}
	return entries
}
