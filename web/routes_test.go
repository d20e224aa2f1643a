package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/statcrab"
	"goflare.io/statcrab/config"
	"goflare.io/statcrab/models"
)

type stubUpstream struct {
	totals    *models.UserTotals
	firstPage *models.UpstreamPage
	langPage  *models.UpstreamPage
	err       error
}

func (s *stubUpstream) FetchUserTotals(ctx context.Context, username string) (*models.UserTotals, *models.UpstreamPage, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.totals, s.firstPage, nil
}

func (s *stubUpstream) FetchRepositoryPage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error) {
	return nil, s.err
}

func (s *stubUpstream) FetchLanguagePage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.langPage, nil
}

func newTestRouter(t *testing.T, upstream statcrab.Upstream, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = config.NewConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc, err := statcrab.New(ctx, cfg, statcrab.WithUpstream(upstream))
	require.NoError(t, err)

	return NewRouter(svc, cfg, zap.NewNop())
}

func healthyUpstream() *stubUpstream {
	return &stubUpstream{
		totals: &models.UserTotals{Login: "octocat", OpenIssues: 1, ClosedIssues: 2},
		firstPage: &models.UpstreamPage{
			Items: []models.RepositoryRecord{{Name: "a", Stars: 42}},
		},
		langPage: &models.UpstreamPage{
			Items: []models.RepositoryRecord{
				{Name: "a", Languages: map[string]int{"Rust": 1000, "Go": 500}},
			},
		},
	}
}

func get(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestHandleStatsCard_Success(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/stats-card?username=octocat")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, svgContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")
	assert.Contains(t, w.Body.String(), "GitHub Stats")
	assert.Contains(t, w.Body.String(), ">42<")
}

func TestHandleStatsCard_MissingUsername(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/stats-card")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")
}

func TestHandleStatsCard_UnrecognizedHideField(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/stats-card?username=octocat&hide=bogus_count")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "hide")
}

func TestHandleStatsCard_UnknownTheme(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/stats-card?username=octocat&theme=neon")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown theme")
}

func TestHandleStatsCard_AllowListRejectsOthers(t *testing.T) {
	cfg := config.NewConfig()
	cfg.AllowedUsernames = []string{"octocat"}
	router := newTestRouter(t, healthyUpstream(), cfg)

	w := get(router, "/api/stats-card?username=octocat")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/api/stats-card?username=someone-else")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleStatsCard_UserNotFoundRendersErrorCard(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{err: statcrab.ErrUserNotFound}, nil)

	w := get(router, "/api/stats-card?username=ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, svgContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "User Not Found")
}

func TestHandleStatsCard_RateLimitRendersErrorCard(t *testing.T) {
	router := newTestRouter(t, &stubUpstream{err: &statcrab.RateLimitError{}}, nil)

	w := get(router, "/api/stats-card?username=octocat")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate Limited")
}

func TestHandleLangsCard_Success(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/langs-card?username=octocat&size_weight=0.5&count_weight=0.5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Top Languages")
	assert.Contains(t, w.Body.String(), ">Rust<")
	assert.Contains(t, w.Body.String(), ">Go<")
}

func TestHandleLangsCard_AbsentWeightDefaultsToHalf(t *testing.T) {
	upstream := &stubUpstream{
		langPage: &models.UpstreamPage{
			Items: []models.RepositoryRecord{
				{Name: "a", Languages: map[string]int{"Rust": 1000, "Python": 300}},
				{Name: "b", Languages: map[string]int{"Python": 300}},
				{Name: "c", Languages: map[string]int{"Python": 300}},
			},
		},
	}
	router := newTestRouter(t, upstream, nil)

	w := get(router, "/api/langs-card?username=octocat&size_weight=1")
	require.Equal(t, http.StatusOK, w.Code)

	// With count_weight defaulting to 0.5, Python (1*0.9 + 0.5*1 = 1.4)
	// outranks Rust (1*1 + 0.5*(1/3) ≈ 1.17). Treating the absent weight
	// as 0 would invert that order.
	body := w.Body.String()
	python := strings.Index(body, ">Python<")
	rust := strings.Index(body, ">Rust<")
	require.NotEqual(t, -1, python)
	require.NotEqual(t, -1, rust)
	assert.Less(t, python, rust)
}

func TestHandleLangsCard_LayoutParam(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/langs-card?username=octocat&layout=horizontal")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(router, "/api/langs-card?username=octocat&layout=vertical")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "layout")
}

func TestHandleLangsCard_InvalidWeightParam(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/langs-card?username=octocat&size_weight=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "size_weight")
}

func TestHandleLangsCard_NegativeWeightRejected(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/langs-card?username=octocat&size_weight=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "size_weight")
}

func TestHandleStatsCard_HideBackgroundOption(t *testing.T) {
	router := newTestRouter(t, healthyUpstream(), nil)

	w := get(router, "/api/stats-card?username=octocat&hide_background=true")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="background"`)
}
