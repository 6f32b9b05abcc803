package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carbonlens/internal/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const redditMaxPageSize = 100

// RedditOptions configures a RedditSearcher
type RedditOptions struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddit    string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
	MinInterval  time.Duration // Minimum delay between API calls
	MaxFailures  uint32        // Consecutive failures before the breaker opens
	Cooldown     time.Duration // How long the breaker stays open
	HTTPClient   *http.Client  // Overrides the OAuth client, used in tests
}

// RedditSearcher implements Searcher using the Reddit search API
type RedditSearcher struct {
	client    *http.Client
	baseURL   string
	subreddit string
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// userAgentTransport sets the User-Agent Reddit requires on every request,
// including token requests.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewRedditSearcher creates a new Reddit searcher authenticated with client credentials
func NewRedditSearcher(opts RedditOptions) (*RedditSearcher, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = "CarbonLens/1.0"
	}
	if opts.Subreddit == "" {
		opts.Subreddit = "all"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://oauth.reddit.com"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = "https://www.reddit.com/api/v1/access_token"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}

	client := opts.HTTPClient
	if client == nil {
		if opts.ClientID == "" || opts.ClientSecret == "" {
			return nil, ErrMissingCredentials
		}

		base := &http.Client{
			Timeout:   opts.Timeout,
			Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: opts.UserAgent},
		}
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
		client.Timeout = opts.Timeout
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	maxFailures := opts.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reddit",
		Timeout: opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about Reddit's health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Social API circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &RedditSearcher{
		client:    client,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		subreddit: opts.Subreddit,
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   breaker,
	}, nil
}

// Name returns the name of this provider
func (r *RedditSearcher) Name() string {
	return "Reddit"
}

// Search pages through the Reddit search API until limit posts were seen or
// results run out.
func (r *RedditSearcher) Search(ctx context.Context, query string, limit int, sort SortMode) ([]Post, error) {
	if limit <= 0 {
		return []Post{}, nil
	}
	if sort == "" {
		sort = SortRelevance
	}

	posts := make([]Post, 0, limit)
	after := ""

	for len(posts) < limit {
		pageSize := limit - len(posts)
		if pageSize > redditMaxPageSize {
			pageSize = redditMaxPageSize
		}

		page, next, err := r.searchPage(ctx, query, pageSize, sort, after)
		posts = append(posts, page...)
		if err != nil {
			return posts, err
		}
		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}

	logger.Debug("Reddit search completed", "query", query, "results_found", len(posts))
	return posts, nil
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				Selftext  string `json:"selftext"`
				Subreddit string `json:"subreddit"`
				Permalink string `json:"permalink"`
				Stickied  bool   `json:"stickied"`
				Pinned    bool   `json:"pinned"`
				Promoted  bool   `json:"promoted"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *RedditSearcher) searchPage(ctx context.Context, query string, pageSize int, sort SortMode, after string) ([]Post, string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.doSearch(ctx, query, pageSize, sort, after)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if err != nil {
		return nil, "", err
	}

	listing := result.(*redditListing)
	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		d := child.Data
		posts = append(posts, Post{
			ID:        d.ID,
			Title:     d.Title,
			Body:      d.Selftext,
			Subreddit: d.Subreddit,
			Permalink: d.Permalink,
			Pinned:    d.Stickied || d.Pinned,
			Promoted:  d.Promoted,
		})
	}

	return posts, listing.Data.After, nil
}

func (r *RedditSearcher) doSearch(ctx context.Context, query string, pageSize int, sort SortMode, after string) (*redditListing, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", string(sort))
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("type", "link")
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}

	fullURL := fmt.Sprintf("%s/r/%s/search?%s", r.baseURL, url.PathEscape(r.subreddit), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reddit request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Reddit request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("Reddit request failed with status: %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to parse Reddit response: %w", err)
	}
	return &listing, nil
}
