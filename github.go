package statcrab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/statcrab/config"
	"goflare.io/statcrab/models"
)

// Upstream is the paginated GitHub API surface the service composes with.
// Satisfied by GitHub; substituted in tests.
type Upstream interface {
	FetchUserTotals(ctx context.Context, username string) (*models.UserTotals, *models.UpstreamPage, error)
	FetchRepositoryPage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error)
	FetchLanguagePage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error)
}

// GitHub executes cursor-paginated GraphQL queries against the GitHub API.
// It classifies failures into the service error taxonomy and never retries
// at this layer.
type GitHub struct {
	httpClient *http.Client
	endpoint   string
	token      string
	userAgent  string
	rateFloor  int
	pageSize   int
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewGitHub(cfg *config.Config, logger *zap.Logger) *GitHub {
	return &GitHub{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		rateFloor:  cfg.RateLimitFloor,
		pageSize:   cfg.PageSize,
		cb:         gobreaker.NewCircuitBreaker(cfg.Breaker),
		logger:     logger,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type graphQLResponse[T any] struct {
	Data   *T                    `json:"data"`
	Errors []graphQLErrorPayload `json:"errors"`
}

type countPayload struct {
	TotalCount int `json:"totalCount"`
}

type pageInfoPayload struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type rateLimitPayload struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	ResetAt   time.Time `json:"resetAt"`
}

type repositoryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsFork    bool   `json:"isFork"`
	IsPrivate bool   `json:"isPrivate"`
	ForkCount int    `json:"forkCount"`
	Owner     struct {
		Login string `json:"login"`
	} `json:"owner"`
	Stargazers countPayload `json:"stargazers"`
	Languages  *struct {
		Edges []struct {
			Size int `json:"size"`
			Node struct {
				Name string `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"languages"`
}

type repositoriesPayload struct {
	Nodes    []repositoryPayload `json:"nodes"`
	PageInfo pageInfoPayload     `json:"pageInfo"`
}

type statsUserPayload struct {
	Name                    *string `json:"name"`
	Login                   string  `json:"login"`
	ContributionsCollection struct {
		TotalCommitContributions            int `json:"totalCommitContributions"`
		TotalPullRequestReviewContributions int `json:"totalPullRequestReviewContributions"`
	} `json:"contributionsCollection"`
	PullRequests                 countPayload        `json:"pullRequests"`
	MergedPullRequests           countPayload        `json:"mergedPullRequests"`
	OpenIssues                   countPayload        `json:"openIssues"`
	ClosedIssues                 countPayload        `json:"closedIssues"`
	Followers                    countPayload        `json:"followers"`
	RepositoryDiscussions        countPayload        `json:"repositoryDiscussions"`
	RepositoryDiscussionComments countPayload        `json:"repositoryDiscussionComments"`
	Repositories                 repositoriesPayload `json:"repositories"`
}

type statsQueryData struct {
	RateLimit rateLimitPayload  `json:"rateLimit"`
	User      *statsUserPayload `json:"user"`
}

type reposUserPayload struct {
	Repositories repositoriesPayload `json:"repositories"`
}

type reposQueryData struct {
	RateLimit rateLimitPayload  `json:"rateLimit"`
	User      *reposUserPayload `json:"user"`
}

// execute posts one GraphQL query and decodes the typed response envelope.
// A free function because methods cannot carry type parameters.
func execute[T any](ctx context.Context, g *GitHub, query string, variables map[string]any) (*T, error) {
	if g.token == "" {
		return nil, ErrMissingToken
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	var resp graphQLResponse[T]
	if _, err := g.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+g.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", g.userAgent)

		res, err := g.httpClient.Do(req)
		if err != nil {
			return nil, &NetworkError{Err: err}
		}
		defer func() {
			_ = res.Body.Close()
		}()

		switch res.StatusCode {
		case http.StatusUnauthorized:
			return nil, ErrMissingToken
		case http.StatusTooManyRequests:
			return nil, &RateLimitError{ResetAt: resetFromHeader(res.Header)}
		}
		if res.StatusCode != http.StatusOK {
			return nil, &NetworkError{Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
		}

		if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
			return nil, &NetworkError{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil, nil
	}); err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &NetworkError{Err: err}
		}
		return nil, err
	}

	// Partial data with errors is never silently aggregated.
	if len(resp.Errors) > 0 {
		if resp.Errors[0].Type == "NOT_FOUND" {
			return nil, ErrUserNotFound
		}
		return nil, &GraphQLError{Message: resp.Errors[0].Message}
	}
	if resp.Data == nil {
		return nil, &GraphQLError{Message: "no data in response"}
	}

	return resp.Data, nil
}

func resetFromHeader(h http.Header) time.Time {
	if raw := h.Get("X-RateLimit-Reset"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Time{}
}

// checkQuota aborts the current operation once the remaining quota drops
// below the configured floor so no further calls are attempted.
func (g *GitHub) checkQuota(rl rateLimitPayload) error {
	if rl.Remaining < g.rateFloor {
		g.logger.Warn("Rate limit floor reached",
			zap.Int("remaining", rl.Remaining), zap.Time("resetAt", rl.ResetAt))
		return &RateLimitError{ResetAt: rl.ResetAt}
	}
	return nil
}

// FetchUserTotals runs the initial stats query: per-user counters plus the
// first page of repositories.
func (g *GitHub) FetchUserTotals(ctx context.Context, username string) (*models.UserTotals, *models.UpstreamPage, error) {
	data, err := execute[statsQueryData](ctx, g, userStatsQuery, map[string]any{
		"login": username,
		"after": nil,
		"first": g.pageSize,
	})
	if err != nil {
		return nil, nil, err
	}
	if data.User == nil {
		return nil, nil, ErrUserNotFound
	}
	if err := g.checkQuota(data.RateLimit); err != nil {
		return nil, nil, err
	}

	u := data.User
	totals := &models.UserTotals{
		Login:               u.Login,
		CommitsYTD:          u.ContributionsCollection.TotalCommitContributions,
		OpenIssues:          u.OpenIssues.TotalCount,
		ClosedIssues:        u.ClosedIssues.TotalCount,
		PullRequests:        u.PullRequests.TotalCount,
		MergedPullRequests:  u.MergedPullRequests.TotalCount,
		Reviews:             u.ContributionsCollection.TotalPullRequestReviewContributions,
		DiscussionsStarted:  u.RepositoryDiscussions.TotalCount,
		DiscussionsAnswered: u.RepositoryDiscussionComments.TotalCount,
		Followers:           u.Followers.TotalCount,
	}
	if u.Name != nil {
		totals.Name = *u.Name
	}

	return totals, toUpstreamPage(u.Repositories, data.RateLimit), nil
}

// FetchRepositoryPage continues repository pagination from cursor.
func (g *GitHub) FetchRepositoryPage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error) {
	return g.fetchRepoPage(ctx, userReposQuery, username, cursor)
}

// FetchLanguagePage continues repositories-with-languages pagination from
// cursor.
func (g *GitHub) FetchLanguagePage(ctx context.Context, username, cursor string) (*models.UpstreamPage, error) {
	return g.fetchRepoPage(ctx, userLanguagesQuery, username, cursor)
}

func (g *GitHub) fetchRepoPage(ctx context.Context, query, username, cursor string) (*models.UpstreamPage, error) {
	variables := map[string]any{
		"login": username,
		"after": nil,
		"first": g.pageSize,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	data, err := execute[reposQueryData](ctx, g, query, variables)
	if err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, ErrUserNotFound
	}
	if err := g.checkQuota(data.RateLimit); err != nil {
		return nil, err
	}

	return toUpstreamPage(data.User.Repositories, data.RateLimit), nil
}

func toUpstreamPage(repos repositoriesPayload, rl rateLimitPayload) *models.UpstreamPage {
	page := &models.UpstreamPage{
		Items: make([]models.RepositoryRecord, 0, len(repos.Nodes)),
		PageInfo: models.PageInfo{
			HasNextPage: repos.PageInfo.HasNextPage,
		},
		RateLimit: models.RateLimit{
			Limit:     rl.Limit,
			Remaining: rl.Remaining,
			Used:      rl.Used,
			ResetAt:   rl.ResetAt,
		},
	}
	if repos.PageInfo.EndCursor != nil {
		page.PageInfo.EndCursor = *repos.PageInfo.EndCursor
	}

	for _, node := range repos.Nodes {
		record := models.RepositoryRecord{
			ID:        node.ID,
			Owner:     node.Owner.Login,
			Name:      node.Name,
			IsFork:    node.IsFork,
			IsPrivate: node.IsPrivate,
			Stars:     node.Stargazers.TotalCount,
			Forks:     node.ForkCount,
		}
		if node.Languages != nil && len(node.Languages.Edges) > 0 {
			record.Languages = make(map[string]int, len(node.Languages.Edges))
			for _, edge := range node.Languages.Edges {
				if edge.Node.Name == "" {
					continue
				}
				record.Languages[edge.Node.Name] += edge.Size
			}
		}
		page.Items = append(page.Items, record)
	}

	return page
}
