package pipeline

import (
	"context"
	"fmt"

	"carbonlens/internal/config"
	"carbonlens/internal/document"
	"carbonlens/internal/logger"
	"carbonlens/internal/scoring"
	"carbonlens/internal/sentiment"
	"carbonlens/internal/social"
	"carbonlens/internal/store"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	cfg        *config.Config
	caches     *store.Caches
	searcher   social.Searcher
	classifier sentiment.Classifier
	reader     document.PageReader
	skipCache  bool
}

// NewBuilder creates a builder for the given configuration
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithCaches uses existing caches instead of opening the configured backend
func (b *Builder) WithCaches(caches *store.Caches) *Builder {
	b.caches = caches
	return b
}

// WithSearcher sets the social searcher
func (b *Builder) WithSearcher(searcher social.Searcher) *Builder {
	b.searcher = searcher
	return b
}

// WithClassifier sets the sentiment classifier
func (b *Builder) WithClassifier(classifier sentiment.Classifier) *Builder {
	b.classifier = classifier
	return b
}

// WithPageReader sets the document page reader
func (b *Builder) WithPageReader(reader document.PageReader) *Builder {
	b.reader = reader
	return b
}

// WithoutCache disables evidence caching
func (b *Builder) WithoutCache() *Builder {
	b.skipCache = true
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	cfg := b.cfg

	caches := b.caches
	owned := false
	if caches == nil && !b.skipCache {
		var err error
		caches, err = store.Open(cfg.Cache, cfg.Document.Keywords)
		if err != nil {
			return nil, fmt.Errorf("failed to open evidence cache: %w", err)
		}
		owned = true
	}

	searcher := b.searcher
	if searcher == nil {
		s, err := social.NewSearcher(cfg.Social)
		if err != nil {
			// Non-fatal: runs continue on document evidence alone
			logger.Warn("Social search unavailable", "provider", cfg.Social.Provider, "error", err)
		} else {
			searcher = s
		}
	}

	classifier := b.classifier
	if classifier == nil {
		c, err := sentiment.NewClassifier(ctx, cfg.Sentiment)
		if err != nil {
			if owned {
				_ = caches.Close()
			}
			return nil, fmt.Errorf("failed to create sentiment classifier: %w", err)
		}
		classifier = c
	}

	reader := b.reader
	if reader == nil {
		reader = document.NewPDFReader(nil)
	}

	var socialCache social.Cache
	var documentCache document.Cache
	if caches != nil {
		socialCache = caches.Social
		documentCache = caches.Document
	}

	fetcher := social.NewFetcher(searcher, socialCache, cfg.Social.Limit)
	extractor := document.NewExtractor(reader, documentCache, cfg.Document.Keywords)
	docScorer, socialScorer := sentiment.NewScorers(classifier, cfg.Sentiment)
	engine := scoring.NewEngine(scoring.WeightsFromConfig(cfg.Scoring))

	p := New(fetcher, extractor, docScorer, socialScorer, engine, cfg.Social.Limit)
	p.caches = caches
	p.ownsCaches = owned

	logger.Debug("Pipeline built",
		"searcher", searcherName(searcher),
		"classifier", classifier.Name(),
		"cache_backend", cfg.Cache.Backend)

	return p, nil
}

func searcherName(s social.Searcher) string {
	if s == nil {
		return "none"
	}
	return s.Name()
}
