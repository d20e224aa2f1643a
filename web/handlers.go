// Package web exposes the service over HTTP. Card endpoints answer with
// SVG on both success and upstream failure so that image consumers never
// see a broken response.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"goflare.io/statcrab"
	"goflare.io/statcrab/cards"
	"goflare.io/statcrab/config"
)

const svgContentType = "image/svg+xml; charset=utf-8"

// defaultLangWeight applies per ranking dimension when the caller leaves
// that weight parameter out. An explicit 0 is kept as 0.
const defaultLangWeight = 0.5

// Handlers contains the HTTP handlers for the card endpoints.
type Handlers struct {
	svc     *statcrab.Service
	allowed map[string]bool
	logger  *zap.Logger
}

// NewHandlers creates handlers for the given service. When the config
// carries an allow-list, requests for other usernames are rejected.
func NewHandlers(svc *statcrab.Service, cfg *config.Config, logger *zap.Logger) *Handlers {
	var allowed map[string]bool
	if len(cfg.AllowedUsernames) > 0 {
		allowed = make(map[string]bool, len(cfg.AllowedUsernames))
		for _, name := range cfg.AllowedUsernames {
			allowed[name] = true
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, allowed: allowed, logger: logger}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleStatsCard handles GET /api/stats-card.
func (h *Handlers) HandleStatsCard(c *gin.Context) {
	username, settings, ok := h.commonParams(c)
	if !ok {
		return
	}

	opts := statcrab.StatsOptions{
		Hide:         csvParam(c, "hide"),
		ExcludeRepos: csvParam(c, "exclude_repo"),
	}

	stats, err := h.svc.UserStats(c.Request.Context(), username, opts)
	if err != nil {
		h.respondError(c, username, err, settings)
		return
	}

	svg, err := cards.NewStatsCard(stats, opts.Hide, settings).Render()
	if err != nil {
		h.logger.Error("Failed to render stats card", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render card"})
		return
	}
	c.Data(http.StatusOK, svgContentType, []byte(svg))
}

// HandleLangsCard handles GET /api/langs-card.
func (h *Handlers) HandleLangsCard(c *gin.Context) {
	username, settings, ok := h.commonParams(c)
	if !ok {
		return
	}

	opts := statcrab.LangOptions{ExcludeRepos: csvParam(c, "exclude_repo")}

	if layout := c.Query("layout"); layout != "" && layout != "horizontal" {
		err := &statcrab.ValidationError{Field: "layout", Reason: `must be "horizontal"`}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var parseErr error
	opts.SizeWeight, parseErr = floatParam(c, "size_weight", defaultLangWeight)
	if parseErr == nil {
		opts.CountWeight, parseErr = floatParam(c, "count_weight", defaultLangWeight)
	}
	if parseErr == nil {
		opts.MaxLanguages, parseErr = intParam(c, "max_languages")
	}
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
		return
	}

	ranking, err := h.svc.TopLanguages(c.Request.Context(), username, opts)
	if err != nil {
		h.respondError(c, username, err, settings)
		return
	}

	svg, err := cards.NewLangsCard(username, ranking, settings).Render()
	if err != nil {
		h.logger.Error("Failed to render languages card", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render card"})
		return
	}
	c.Data(http.StatusOK, svgContentType, []byte(svg))
}

// commonParams extracts the username and card settings shared by the card
// endpoints. It writes the response itself and returns ok=false when the
// request is rejected.
func (h *Handlers) commonParams(c *gin.Context) (string, cards.Settings, bool) {
	settings := cards.DefaultSettings()

	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameter: username"})
		return "", settings, false
	}
	if h.allowed != nil && !h.allowed[username] {
		c.JSON(http.StatusForbidden, gin.H{"error": "username not allowed"})
		return "", settings, false
	}

	theme, err := cards.ParseTheme(c.Query("theme"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", settings, false
	}
	settings.Theme = theme

	if v, err := intParam(c, "offset_x"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", settings, false
	} else if v != 0 {
		settings.OffsetX = v
	}
	if v, err := intParam(c, "offset_y"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", settings, false
	} else if v != 0 {
		settings.OffsetY = v
	}

	settings.HideTitle = boolParam(c, "hide_title")
	settings.HideBackground = boolParam(c, "hide_background")
	settings.HideBackgroundStroke = boolParam(c, "hide_background_stroke")

	return username, settings, true
}

// respondError maps a service error to a status code and answers with a
// themed error card so <img> consumers get a legible image.
func (h *Handlers) respondError(c *gin.Context, username string, err error, settings cards.Settings) {
	var (
		invalidUsername *statcrab.InvalidUsernameError
		validation      *statcrab.ValidationError
		rateLimit       *statcrab.RateLimitError
	)

	status := http.StatusBadGateway
	switch {
	case errors.As(err, &invalidUsername), errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, statcrab.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.As(err, &rateLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, statcrab.ErrMissingToken):
		status = http.StatusInternalServerError
	}

	h.logger.Warn("Request failed",
		zap.String("username", username),
		zap.Int("status", status),
		zap.Error(err))

	svg := cards.ErrorCardFromError(err, settings).Render()
	c.Data(status, svgContentType, []byte(svg))
}

func csvParam(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// floatParam parses a float query parameter, returning fallback when it is
// absent. Absence and an explicit 0 are distinct.
func floatParam(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &statcrab.ValidationError{Field: name, Reason: "must be a number"}
	}
	return v, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &statcrab.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}

func boolParam(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
