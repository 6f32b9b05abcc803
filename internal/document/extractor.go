package document

import (
	"context"
	"strings"

	"carbonlens/internal/core"
	"carbonlens/internal/logger"
)

// Cache is the evidence cache consulted before parsing.
type Cache interface {
	Get(key string) (core.EvidenceSet, bool)
	Put(key string, set core.EvidenceSet) error
}

// Extractor pulls keyword-bearing paragraphs out of sustainability reports.
type Extractor struct {
	reader   PageReader
	cache    Cache
	keywords []string
}

// NewExtractor creates an extractor. Keywords are matched case-insensitively;
// cache may be nil.
func NewExtractor(reader PageReader, cache Cache, keywords []string) *Extractor {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	return &Extractor{
		reader:   reader,
		cache:    cache,
		keywords: normalized,
	}
}

// Extract returns the relevant paragraphs of the document at path and its
// page count. On failure the returned set is empty, the count is 0 and
// nothing is cached.
func (e *Extractor) Extract(ctx context.Context, path string) (core.EvidenceSet, int, error) {
	if e.cache != nil {
		if set, ok := e.cache.Get(path); ok {
			logger.Debug("Document evidence cache hit", "path", path, "paragraphs", set.Len())
			return set, set.PageCount, nil
		}
	}

	set := core.NewEvidenceSet(core.SourceDocument, path)

	pages, err := e.reader.ReadPages(ctx, path)
	if err != nil {
		logger.Error("Failed to read sustainability report", err, "path", path)
		return set, 0, err
	}

	for _, page := range pages {
		if page == "" {
			continue
		}
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && e.Relevant(line) {
				set.Snippets = append(set.Snippets, line)
			}
		}
	}
	set.PageCount = len(pages)

	logger.Info("Extracted document evidence",
		"path", path,
		"pages", set.PageCount,
		"paragraphs", set.Len())

	if e.cache != nil {
		if err := e.cache.Put(path, set); err != nil {
			logger.Warn("Failed to cache document evidence", "path", path, "error", err)
		}
	}

	return set, set.PageCount, nil
}

// Relevant reports whether text contains any configured keyword
func (e *Extractor) Relevant(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range e.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
