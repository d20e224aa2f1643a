// Package statcrab answers two queries about a GitHub account: aggregate
// activity statistics and a weighted ranking of the languages used across
// its repositories. Results are cached per key with request coalescing so
// concurrent identical requests share one upstream fetch.
package statcrab

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"goflare.io/statcrab/config"
	"goflare.io/statcrab/models"
	"goflare.io/statcrab/retrier"
	"goflare.io/statcrab/utils"
)

const maxUsernameLength = 39

// Option configures a Service during New.
type Option func(*Service) error

// WithLogger sets a custom logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithUpstream replaces the GitHub client, e.g. with a test double.
func WithUpstream(upstream Upstream) Option {
	return func(s *Service) error {
		s.upstream = upstream
		return nil
	}
}

// Service validates inputs, builds cache keys and composes
// Cache -> Upstream -> aggregation/ranking. It owns its cache instance;
// callers construct one Service at startup and inject it wherever needed.
type Service struct {
	cfg      *config.Config
	cache    *Cache
	upstream Upstream
	retrier  *retrier.Retrier
	logger   *zap.Logger
	tracer   trace.Tracer
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Service{
		cfg:    cfg,
		logger: cfg.Logger,
		tracer: otel.Tracer("statcrab"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.upstream == nil {
		s.upstream = NewGitHub(cfg, s.logger)
	}

	s.cache = NewCache(ctx, cfg.MaxCacheBytes, cfg.CleanupInterval, s.logger)
	s.retrier = retrier.NewRetrier(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay, 2, 0.1)

	return s, nil
}

// CacheMetrics exposes the cache counters for monitoring.
func (s *Service) CacheMetrics() *models.Metrics {
	return s.cache.Metrics()
}

// StatFields lists the recognized statistic field names, in display order.
func StatFields() []string {
	return []string{
		"stars_count",
		"commits_ytd_count",
		"issues_count",
		"pull_requests_count",
		"merge_requests_count",
		"reviews_count",
		"started_discussions_count",
		"answered_discussions_count",
	}
}

func validateUsername(username string) error {
	if username == "" {
		return &InvalidUsernameError{Reason: "username cannot be empty"}
	}
	if len(username) > maxUsernameLength {
		return &InvalidUsernameError{Reason: "username too long"}
	}
	for _, r := range username {
		valid := r == '-' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !valid {
			return &InvalidUsernameError{Reason: "username contains invalid characters"}
		}
	}
	if username[0] == '-' || username[len(username)-1] == '-' {
		return &InvalidUsernameError{Reason: "username cannot start or end with hyphen"}
	}
	return nil
}

// validateHide checks that every hidden field is recognized and that at
// least two statistics remain visible.
func validateHide(hide []string) error {
	if len(hide) == 0 {
		return nil
	}

	known := make(map[string]struct{}, len(StatFields()))
	for _, f := range StatFields() {
		known[f] = struct{}{}
	}

	hidden := make(map[string]struct{}, len(hide))
	for _, f := range hide {
		if _, ok := known[f]; !ok {
			return &ValidationError{Field: "hide", Reason: "unrecognized field " + strconv.Quote(f)}
		}
		hidden[f] = struct{}{}
	}

	if len(known)-len(hidden) < 2 {
		return &ValidationError{Field: "hide", Reason: "at least 2 stats must remain visible"}
	}
	return nil
}

// canonicalRepos returns a sorted copy so the fingerprint does not depend on
// input order.
func canonicalRepos(repos []string) []string {
	out := make([]string, len(repos))
	copy(out, repos)
	sort.Strings(out)
	return out
}

// statsCacheKey fingerprints the result-affecting stats options. hide is
// applied after caching and deliberately excluded.
func statsCacheKey(username string, excludeRepos []string) string {
	return fmt.Sprintf("stats:%s:%x", username, utils.Fingerprint(canonicalRepos(excludeRepos)...))
}

func langsCacheKey(username string, opts LangOptions) string {
	parts := canonicalRepos(opts.ExcludeRepos)
	parts = append(parts,
		strconv.FormatFloat(opts.SizeWeight, 'g', -1, 64),
		strconv.FormatFloat(opts.CountWeight, 'g', -1, 64),
		strconv.Itoa(opts.MaxLanguages),
	)
	return fmt.Sprintf("langs:%s:%x", username, utils.Fingerprint(parts...))
}
