package config

import (
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint  = "https://api.github.com/graphql"
	DefaultUserAgent = "statcrab"

	// 32 MiB total byte-weight across both cache kinds.
	DefaultMaxCacheBytes   = 32 * 1024 * 1024
	DefaultStatsTTL        = 15 * time.Minute
	DefaultLanguagesTTL    = time.Hour
	DefaultCleanupInterval = time.Minute

	DefaultRateLimitFloor = 8
	DefaultRequestTimeout = 10 * time.Second
	DefaultPageSize       = 100

	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 100 * time.Millisecond
	DefaultRetryMaxDelay  = time.Second

	DefaultListenAddr = ":8080"
)

// Config carries everything the service and its collaborators need. It is
// built once at startup and injected; nothing reads the environment after
// FromEnv returns.
type Config struct {
	Token     string // GitHub bearer token; requests without one fail before the network
	Endpoint  string
	UserAgent string

	MaxCacheBytes   uint64        // capacity as total byte-weight
	StatsTTL        time.Duration // TTL for the user-stats cache kind
	LanguagesTTL    time.Duration // TTL for the language-ranking cache kind
	CleanupInterval time.Duration // janitor sweep interval

	RateLimitFloor int // stop paging once remaining quota drops below this
	RequestTimeout time.Duration
	PageSize       int

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	Breaker gobreaker.Settings

	AllowedUsernames []string // empty list allows everyone
	ListenAddr       string

	Logger *zap.Logger
}

func NewConfig() *Config {
	return &Config{
		Endpoint:  DefaultEndpoint,
		UserAgent: DefaultUserAgent,

		MaxCacheBytes:   DefaultMaxCacheBytes,
		StatsTTL:        DefaultStatsTTL,
		LanguagesTTL:    DefaultLanguagesTTL,
		CleanupInterval: DefaultCleanupInterval,

		RateLimitFloor: DefaultRateLimitFloor,
		RequestTimeout: DefaultRequestTimeout,
		PageSize:       DefaultPageSize,

		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,

		Breaker: gobreaker.Settings{Name: "github"},

		ListenAddr: DefaultListenAddr,

		Logger: zap.NewNop(),
	}
}

// FromEnv builds a Config from environment variables, falling back to the
// defaults from NewConfig for anything unset.
func FromEnv() *Config {
	v := viper.New()
	v.AutomaticEnv()

	_ = v.BindEnv("token", "GITHUB_TOKEN")
	_ = v.BindEnv("max_capacity_mb", "CACHE_MAX_CAPACITY_MB")
	_ = v.BindEnv("stats_ttl_seconds", "CACHE_USER_STATS_TTL_SECONDS")
	_ = v.BindEnv("languages_ttl_seconds", "CACHE_USER_LANGUAGES_TTL_SECONDS")
	_ = v.BindEnv("rate_limit_floor", "GITHUB_RATE_LIMIT_FLOOR")
	_ = v.BindEnv("allowed_usernames", "ALLOWED_USERNAMES")
	_ = v.BindEnv("listen_addr", "LISTEN_ADDR")

	cfg := NewConfig()

	cfg.Token = v.GetString("token")
	if mb := v.GetUint64("max_capacity_mb"); mb > 0 {
		cfg.MaxCacheBytes = mb * 1024 * 1024
	}
	if s := v.GetInt("stats_ttl_seconds"); s > 0 {
		cfg.StatsTTL = time.Duration(s) * time.Second
	}
	if s := v.GetInt("languages_ttl_seconds"); s > 0 {
		cfg.LanguagesTTL = time.Duration(s) * time.Second
	}
	if f := v.GetInt("rate_limit_floor"); f > 0 {
		cfg.RateLimitFloor = f
	}
	if raw := v.GetString("allowed_usernames"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.AllowedUsernames = append(cfg.AllowedUsernames, name)
			}
		}
	}
	if addr := v.GetString("listen_addr"); addr != "" {
		cfg.ListenAddr = addr
	}

	return cfg
}
