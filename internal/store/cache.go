package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"carbonlens/internal/core"
	"carbonlens/internal/logger"

	"github.com/google/uuid"
)

// EvidenceCache is a version-stamped cache of evidence sets of one kind.
//
// All caches that share a MetaStore share one version stamp. A store is only
// readable while the stamp carries the running version tag and the store was
// written under the stamp's current epoch. Anything else reads as absent.
//
// Put rewrites the whole store. Two processes writing the same store race
// and the last writer wins; callers must serialize writers.
type EvidenceCache struct {
	kind    core.SourceKind
	version string
	backend Backend
	meta    MetaStore
	now     func() time.Time
}

// CacheStats describes the state of one evidence store
type CacheStats struct {
	Kind       core.SourceKind
	Entries    int
	Valid      bool
	Version    string // Running version tag
	StoredMeta core.VersionMeta
	StoreEpoch string
}

// NewEvidenceCache creates a cache for evidence of the given kind
func NewEvidenceCache(kind core.SourceKind, version string, backend Backend, meta MetaStore) *EvidenceCache {
	return &EvidenceCache{
		kind:    kind,
		version: version,
		backend: backend,
		meta:    meta,
		now:     time.Now,
	}
}

// Kind returns the evidence kind this cache holds
func (c *EvidenceCache) Kind() core.SourceKind {
	return c.kind
}

// Version returns the running version tag
func (c *EvidenceCache) Version() string {
	return c.version
}

// load returns the stored snapshot and metadata, and whether the store is valid.
// Read errors are reported as an invalid store.
func (c *EvidenceCache) load() (Snapshot, core.VersionMeta, bool) {
	meta, err := c.meta.LoadMeta()
	if err != nil {
		logger.Warn("Cache metadata unreadable, treating as miss", "kind", c.kind, "error", err.Error())
		return emptySnapshot(), core.VersionMeta{}, false
	}

	snap, err := c.backend.Load()
	if err != nil {
		logger.Warn("Cache store unreadable, treating as miss", "kind", c.kind, "error", err.Error())
		return emptySnapshot(), meta, false
	}

	if meta.IsZero() || meta.Version != c.version || snap.Epoch == "" || snap.Epoch != meta.Epoch {
		return snap, meta, false
	}
	return snap, meta, true
}

// IsValid reports whether cached entries may be read
func (c *EvidenceCache) IsValid() bool {
	_, _, valid := c.load()
	return valid
}

// Get returns the cached evidence for key. Invalid stores, missing keys and
// malformed records all report absent.
func (c *EvidenceCache) Get(key string) (core.EvidenceSet, bool) {
	snap, _, valid := c.load()
	if !valid {
		return core.EvidenceSet{}, false
	}

	rec, ok := snap.Entries[key]
	if !ok {
		return core.EvidenceSet{}, false
	}

	set := core.EvidenceSet{
		Kind:      rec.Kind,
		Key:       key,
		Snippets:  rec.Snippets,
		PageCount: rec.PageCount,
	}
	if set.Snippets == nil {
		set.Snippets = []string{}
	}
	if rec.Kind != c.kind {
		logger.Warn("Dropping cache record of wrong kind", "kind", c.kind, "key", key, "record_kind", rec.Kind)
		return core.EvidenceSet{}, false
	}
	if err := set.Validate(); err != nil {
		logger.Warn("Dropping malformed cache record", "kind", c.kind, "key", key, "error", err.Error())
		return core.EvidenceSet{}, false
	}

	return set, true
}

// Put stores the evidence for key and stamps the shared metadata with the
// running version. An invalid store is emptied before the write.
func (c *EvidenceCache) Put(key string, set core.EvidenceSet) error {
	if key == "" {
		return ErrEmptyKey
	}
	if set.Kind != c.kind {
		return fmt.Errorf("%w: got %s, want %s", ErrKindMismatch, set.Kind, c.kind)
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("refusing to cache invalid evidence: %w", err)
	}

	snap, meta, valid := c.load()
	if !valid {
		snap = emptySnapshot()
		if !meta.IsZero() && meta.Version == c.version && meta.Epoch != "" {
			// Other stores may still be valid under this epoch
			snap.Epoch = meta.Epoch
		} else {
			snap.Epoch = uuid.NewString()
		}
	}

	snippets := make([]string, len(set.Snippets))
	copy(snippets, set.Snippets)
	snap.Entries[key] = Record{Kind: set.Kind, Snippets: snippets, PageCount: set.PageCount}

	if err := c.backend.Save(snap); err != nil {
		return fmt.Errorf("failed to write %s cache: %w", c.kind, err)
	}

	stamp := core.VersionMeta{Version: c.version, Epoch: snap.Epoch, Timestamp: c.now().UTC()}
	if err := c.meta.SaveMeta(stamp); err != nil {
		return fmt.Errorf("failed to stamp cache metadata: %w", err)
	}
	return nil
}

// BumpVersion retires the current epoch. Every store sharing the metadata
// record becomes invalid, not just this one.
func (c *EvidenceCache) BumpVersion() error {
	stamp := core.VersionMeta{Version: c.version, Epoch: uuid.NewString(), Timestamp: c.now().UTC()}
	if err := c.meta.SaveMeta(stamp); err != nil {
		return fmt.Errorf("failed to bump cache version: %w", err)
	}
	logger.Info("Cache version bumped", "version", c.version, "epoch", stamp.Epoch)
	return nil
}

// Clear removes every entry from this store
func (c *EvidenceCache) Clear() error {
	if err := c.backend.Save(emptySnapshot()); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", c.kind, err)
	}
	return nil
}

// Stats returns statistics about the store
func (c *EvidenceCache) Stats() CacheStats {
	snap, meta, valid := c.load()
	return CacheStats{
		Kind:       c.kind,
		Entries:    len(snap.Entries),
		Valid:      valid,
		Version:    c.version,
		StoredMeta: meta,
		StoreEpoch: snap.Epoch,
	}
}

// VersionTag joins the configured cache version with a fingerprint of the
// document keyword list, so editing the keywords invalidates cached evidence.
func VersionTag(base string, keywords []string) string {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(kw)))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x00")))
	return base + "+kw." + hex.EncodeToString(sum[:4])
}
