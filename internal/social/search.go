package social

import (
	"context"

	"carbonlens/internal/core"
)

// Post is one search result from a social platform.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Subreddit string `json:"subreddit,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Pinned    bool   `json:"pinned"`   // Stickied or pinned by moderators
	Promoted  bool   `json:"promoted"` // Paid placement
}

// Text returns the snippet used as evidence for the post
func (p Post) Text() string {
	return p.Title + " " + p.Body
}

// SortMode is the ordering requested from the platform search
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortNew       SortMode = "new"
	SortTop       SortMode = "top"
)

// Searcher queries a social platform.
type Searcher interface {
	// Search returns up to limit posts in platform order. When it fails part
	// way it returns the posts retrieved so far together with the error.
	Search(ctx context.Context, query string, limit int, sort SortMode) ([]Post, error)

	// Name returns the name of the platform
	Name() string
}

// Cache is the evidence cache consulted before searching.
type Cache interface {
	Get(key string) (core.EvidenceSet, bool)
	Put(key string, set core.EvidenceSet) error
}
