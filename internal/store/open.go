package store

import (
	"fmt"
	"path/filepath"

	"carbonlens/internal/config"
	"carbonlens/internal/core"
)

const (
	socialStoreName   = "social_cache"
	documentStoreName = "pdf_cache"
	metaFileName      = "cache_metadata.json"
)

// Caches bundles the two evidence caches that share one version stamp.
type Caches struct {
	Social   *EvidenceCache
	Document *EvidenceCache
	closer   func() error
}

// Close releases any resources held by the backend
func (c *Caches) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// BumpVersion invalidates both caches
func (c *Caches) BumpVersion() error {
	return c.Social.BumpVersion()
}

// Open builds the social and document caches for the configured backend.
func Open(cfg config.Cache, keywords []string) (*Caches, error) {
	version := VersionTag(cfg.Version, keywords)

	switch cfg.Backend {
	case "file", "":
		meta := NewFileMeta(filepath.Join(cfg.Directory, metaFileName))
		return &Caches{
			Social:   NewEvidenceCache(core.SourceSocial, version, NewFileBackend(filepath.Join(cfg.Directory, socialStoreName+".json")), meta),
			Document: NewEvidenceCache(core.SourceDocument, version, NewFileBackend(filepath.Join(cfg.Directory, documentStoreName+".json")), meta),
		}, nil

	case "sqlite":
		db, err := NewSQLiteStore(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache store: %w", err)
		}
		return &Caches{
			Social:   NewEvidenceCache(core.SourceSocial, version, db.Backend(socialStoreName), db),
			Document: NewEvidenceCache(core.SourceDocument, version, db.Backend(documentStoreName), db),
			closer:   db.Close,
		}, nil

	case "memory":
		return NewMemoryCaches(version), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Backend)
	}
}

// NewMemoryCaches builds in-memory caches, mainly for tests.
func NewMemoryCaches(version string) *Caches {
	meta := NewMemoryMeta()
	return &Caches{
		Social:   NewEvidenceCache(core.SourceSocial, version, NewMemoryBackend(), meta),
		Document: NewEvidenceCache(core.SourceDocument, version, NewMemoryBackend(), meta),
	}
}
