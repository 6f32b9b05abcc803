package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carbonlens/internal/config"
	"carbonlens/internal/core"
	"carbonlens/internal/logger"
)

// DefaultLimit is the number of results requested when no limit is given
const DefaultLimit = 50

// Query builds the search query for a manufacturer
func Query(manufacturer string) string {
	return fmt.Sprintf("%s sustainability OR environment OR manufacturing impact", manufacturer)
}

// Fetcher collects social evidence for a manufacturer, consulting the cache first.
type Fetcher struct {
	searcher     Searcher
	cache        Cache
	defaultLimit int
}

// NewFetcher creates a fetcher. cache may be nil to disable caching.
func NewFetcher(searcher Searcher, cache Cache, defaultLimit int) *Fetcher {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Fetcher{
		searcher:     searcher,
		cache:        cache,
		defaultLimit: defaultLimit,
	}
}

// Fetch returns snippets (title + " " + body) from non-pinned, non-promoted
// posts, in platform order. A cached set for the manufacturer is returned
// without searching. When the search fails the posts gathered so far are
// returned, left uncached, along with the error.
func (f *Fetcher) Fetch(ctx context.Context, manufacturer string, limit int) (core.EvidenceSet, error) {
	if limit <= 0 {
		limit = f.defaultLimit
	}

	if f.cache != nil {
		if set, ok := f.cache.Get(manufacturer); ok {
			logger.Debug("Social evidence cache hit", "manufacturer", manufacturer, "snippets", set.Len())
			return set, nil
		}
	}

	set := core.NewEvidenceSet(core.SourceSocial, manufacturer)
	if f.searcher == nil {
		return set, fmt.Errorf("%w: no searcher configured", ErrProviderUnavailable)
	}

	posts, err := f.searcher.Search(ctx, Query(manufacturer), limit, SortRelevance)
	skipped := 0
	for _, p := range posts {
		if p.Pinned || p.Promoted {
			skipped++
			continue
		}
		set.Snippets = append(set.Snippets, p.Text())
	}

	if err != nil {
		logger.Error("Social search failed, using partial results", err,
			"manufacturer", manufacturer,
			"provider", f.searcher.Name(),
			"partial_snippets", set.Len())
		return set, fmt.Errorf("social search for %q: %w", manufacturer, err)
	}

	logger.Info("Fetched social evidence",
		"manufacturer", manufacturer,
		"provider", f.searcher.Name(),
		"snippets", set.Len(),
		"skipped", skipped)

	if f.cache != nil {
		if err := f.cache.Put(manufacturer, set); err != nil {
			logger.Warn("Failed to cache social evidence", "manufacturer", manufacturer, "error", err)
		}
	}

	return set, nil
}

// NewSearcher builds the searcher selected in configuration
func NewSearcher(cfg config.Social) (Searcher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "reddit", "":
		if !cfg.Reddit.HasCredentials() {
			return nil, ErrMissingCredentials
		}
		return NewRedditSearcher(RedditOptions{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			UserAgent:    cfg.Reddit.UserAgent,
			Subreddit:    cfg.Reddit.Subreddit,
			BaseURL:      cfg.Reddit.BaseURL,
			TokenURL:     cfg.Reddit.TokenURL,
			Timeout:      config.ParseDuration(cfg.Timeout, 15*time.Second),
			MinInterval:  config.ParseDuration(cfg.RateLimit, time.Second),
			MaxFailures:  cfg.Breaker.MaxFailures,
			Cooldown:     config.ParseDuration(cfg.Breaker.Cooldown, 30*time.Second),
		})
	case "mock":
		return NewMockSearcher(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
