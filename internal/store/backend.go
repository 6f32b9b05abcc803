package store

import (
	"sync"

	"carbonlens/internal/core"
)

// Record is the persisted form of one cached evidence set.
type Record struct {
	Kind      core.SourceKind `json:"kind"`
	Snippets  []string        `json:"snippets"`
	PageCount int             `json:"page_count,omitempty"`
}

// Snapshot is the full contents of one evidence store. Stores are always
// written whole, never incrementally.
type Snapshot struct {
	Epoch   string            `json:"epoch"`
	Entries map[string]Record `json:"entries"`
}

// Backend persists a whole snapshot of one evidence store.
type Backend interface {
	// Load returns the stored snapshot, or an empty one if nothing was stored yet.
	Load() (Snapshot, error)
	// Save replaces the stored snapshot.
	Save(Snapshot) error
}

// MetaStore persists the version metadata record shared by all stores.
type MetaStore interface {
	// LoadMeta returns the stored metadata, or a zero value if none exists.
	LoadMeta() (core.VersionMeta, error)
	SaveMeta(core.VersionMeta) error
}

func emptySnapshot() Snapshot {
	return Snapshot{Entries: map[string]Record{}}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Epoch: s.Epoch, Entries: make(map[string]Record, len(s.Entries))}
	for k, r := range s.Entries {
		snippets := make([]string, len(r.Snippets))
		copy(snippets, r.Snippets)
		out.Entries[k] = Record{Kind: r.Kind, Snippets: snippets, PageCount: r.PageCount}
	}
	return out
}

// MemoryBackend keeps a snapshot in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snap: emptySnapshot()}
}

// Load returns a copy of the stored snapshot
func (m *MemoryBackend) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone(), nil
}

// Save stores a copy of the snapshot
func (m *MemoryBackend) Save(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s.clone()
	return nil
}

// MemoryMeta keeps the version metadata in process memory.
type MemoryMeta struct {
	mu   sync.Mutex
	meta core.VersionMeta
}

// NewMemoryMeta creates an empty in-memory metadata store
func NewMemoryMeta() *MemoryMeta {
	return &MemoryMeta{}
}

// LoadMeta returns the stored metadata
func (m *MemoryMeta) LoadMeta() (core.VersionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta, nil
}

// SaveMeta stores the metadata
func (m *MemoryMeta) SaveMeta(meta core.VersionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
	return nil
}
