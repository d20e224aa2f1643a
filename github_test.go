package statcrab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/statcrab/config"
)

const testRateLimitJSON = `"rateLimit": {"limit": 5000, "remaining": 4000, "used": 1000, "resetAt": "2026-01-01T00:00:00Z"}`

func newTestGitHub(t *testing.T, handler http.HandlerFunc) (*GitHub, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.Endpoint = server.URL
	cfg.Token = "test-token"

	return NewGitHub(cfg, zap.NewNop()), server
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(body))
	require.NoError(t, err)
}

func TestGitHub_FetchUserTotals_DecodesCountersAndFirstPage(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "statcrab", r.Header.Get("User-Agent"))

		writeJSON(t, w, `{"data": {`+testRateLimitJSON+`, "user": {
			"name": "Octo Cat",
			"login": "octocat",
			"contributionsCollection": {"totalCommitContributions": 250, "totalPullRequestReviewContributions": 12},
			"pullRequests": {"totalCount": 30},
			"mergedPullRequests": {"totalCount": 25},
			"openIssues": {"totalCount": 4},
			"closedIssues": {"totalCount": 6},
			"followers": {"totalCount": 99},
			"repositoryDiscussions": {"totalCount": 3},
			"repositoryDiscussionComments": {"totalCount": 7},
			"repositories": {
				"nodes": [{"id": "R1", "name": "a", "isFork": false, "isPrivate": false, "forkCount": 2, "owner": {"login": "octocat"}, "stargazers": {"totalCount": 100}}],
				"pageInfo": {"hasNextPage": false, "endCursor": null}
			}
		}}}`)
	})

	totals, page, err := g.FetchUserTotals(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, "Octo Cat", totals.Name)
	assert.Equal(t, "octocat", totals.Login)
	assert.Equal(t, 250, totals.CommitsYTD)
	assert.Equal(t, 4, totals.OpenIssues)
	assert.Equal(t, 6, totals.ClosedIssues)
	assert.Equal(t, 30, totals.PullRequests)
	assert.Equal(t, 25, totals.MergedPullRequests)
	assert.Equal(t, 12, totals.Reviews)
	assert.Equal(t, 3, totals.DiscussionsStarted)
	assert.Equal(t, 7, totals.DiscussionsAnswered)
	assert.Equal(t, 99, totals.Followers)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].Name)
	assert.Equal(t, 100, page.Items[0].Stars)
	assert.False(t, page.PageInfo.HasNextPage)
	assert.Equal(t, 4000, page.RateLimit.Remaining)
}

func TestGitHub_FetchLanguagePage_PassesCursorAndDecodesLanguages(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Variables["after"] == nil {
			writeJSON(t, w, `{"data": {`+testRateLimitJSON+`, "user": {"repositories": {
				"nodes": [{"id": "R1", "name": "a", "owner": {"login": "octocat"}, "stargazers": {"totalCount": 0},
					"languages": {"edges": [{"size": 1000, "node": {"name": "Rust"}}, {"size": 200, "node": {"name": "JavaScript"}}]}}],
				"pageInfo": {"hasNextPage": true, "endCursor": "c1"}
			}}}}`)
			return
		}

		assert.Equal(t, "c1", req.Variables["after"])
		writeJSON(t, w, `{"data": {`+testRateLimitJSON+`, "user": {"repositories": {
			"nodes": [{"id": "R2", "name": "b", "owner": {"login": "octocat"}, "stargazers": {"totalCount": 0},
				"languages": {"edges": [{"size": 500, "node": {"name": "Go"}}]}}],
			"pageInfo": {"hasNextPage": false, "endCursor": null}
		}}}}`)
	})

	first, err := g.FetchLanguagePage(context.Background(), "octocat", "")
	require.NoError(t, err)
	require.True(t, first.PageInfo.HasNextPage)
	require.Len(t, first.Items, 1)
	assert.Equal(t, map[string]int{"Rust": 1000, "JavaScript": 200}, first.Items[0].Languages)

	second, err := g.FetchLanguagePage(context.Background(), "octocat", first.PageInfo.EndCursor)
	require.NoError(t, err)
	assert.False(t, second.PageInfo.HasNextPage)
	require.Len(t, second.Items, 1)
	assert.Equal(t, map[string]int{"Go": 500}, second.Items[0].Languages)
}

func TestGitHub_PageSizeFlowsIntoQueryVariables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(37), req.Variables["first"])

		writeJSON(t, w, `{"data": {`+testRateLimitJSON+`, "user": {"repositories": {
			"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": null}
		}}}}`)
	}))
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.Endpoint = server.URL
	cfg.Token = "test-token"
	cfg.PageSize = 37
	g := NewGitHub(cfg, zap.NewNop())

	_, err := g.FetchRepositoryPage(context.Background(), "octocat", "")
	require.NoError(t, err)
}

func TestGitHub_NotFoundErrorType(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"data": null, "errors": [{"message": "Could not resolve to a User", "type": "NOT_FOUND"}]}`)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGitHub_NullUserIsNotFound(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"data": {`+testRateLimitJSON+`, "user": null}}`)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGitHub_GraphQLErrorMessage(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"data": null, "errors": [{"message": "field does not exist", "type": "UNDEFINED_FIELD"}]}`)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "field does not exist", gqlErr.Message)
}

func TestGitHub_RateLimitFloorStopsPaging(t *testing.T) {
	resetAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, fmt.Sprintf(`{"data": {
			"rateLimit": {"limit": 5000, "remaining": 5, "used": 4995, "resetAt": %q},
			"user": {"repositories": {"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": null}}}
		}}`, resetAt.Format(time.RFC3339)))
	})

	_, err := g.FetchRepositoryPage(context.Background(), "octocat", "")
	var rateLimit *RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, resetAt, rateLimit.ResetAt)
}

func TestGitHub_TooManyRequestsStatus(t *testing.T) {
	reset := time.Now().Add(time.Hour).Unix()
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	var rateLimit *RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, time.Unix(reset, 0).UTC(), rateLimit.ResetAt)
}

func TestGitHub_UnauthorizedIsMissingToken(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestGitHub_EmptyTokenFailsBeforeNetwork(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.Endpoint = server.URL
	g := NewGitHub(cfg, zap.NewNop())

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	require.ErrorIs(t, err, ErrMissingToken)
	assert.Equal(t, int64(0), requests.Load())
}

func TestGitHub_ServerErrorIsNetworkError(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Temporary())
}

func TestGitHub_MalformedResponseIsNetworkError(t *testing.T) {
	g, _ := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, `{"data": {`)
	})

	_, _, err := g.FetchUserTotals(context.Background(), "octocat")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}
