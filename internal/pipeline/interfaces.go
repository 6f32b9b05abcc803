package pipeline

import (
	"context"

	"carbonlens/internal/core"
	"carbonlens/internal/sentiment"
)

// SocialFetcher gathers public posts about a manufacturer
type SocialFetcher interface {
	// Fetch returns a usable evidence set even when it also returns an error;
	// the error reports that the set may be partial
	Fetch(ctx context.Context, manufacturer string, limit int) (core.EvidenceSet, error)
}

// DocumentExtractor pulls relevant paragraphs out of a sustainability report
type DocumentExtractor interface {
	// Extract returns the paragraphs and the report's page count. On error
	// the set is empty and the count is 0
	Extract(ctx context.Context, path string) (core.EvidenceSet, int, error)
}

// SentimentAnalyzer reduces snippets to a sentiment scalar with label counts
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, snippets []string) (sentiment.Analysis, error)
}
