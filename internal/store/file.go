package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"carbonlens/internal/core"
)

// FileBackend stores a snapshot as a single JSON document.
type FileBackend struct {
	path string
}

// NewFileBackend creates a JSON file backend at path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file the backend writes to
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file is an empty snapshot.
func (f *FileBackend) Load() (Snapshot, error) {
	snap := emptySnapshot()
	found, err := readJSON(f.path, &snap)
	if err != nil {
		return emptySnapshot(), err
	}
	if !found || snap.Entries == nil {
		snap.Entries = map[string]Record{}
	}
	return snap, nil
}

// Save writes the whole snapshot, replacing the file atomically.
func (f *FileBackend) Save(s Snapshot) error {
	if s.Entries == nil {
		s.Entries = map[string]Record{}
	}
	return writeJSON(f.path, s)
}

// FileMeta stores the version metadata record as JSON.
type FileMeta struct {
	path string
}

// NewFileMeta creates a JSON metadata store at path
func NewFileMeta(path string) *FileMeta {
	return &FileMeta{path: path}
}

// LoadMeta reads the metadata record. A missing file is a zero record.
func (f *FileMeta) LoadMeta() (core.VersionMeta, error) {
	var meta core.VersionMeta
	if _, err := readJSON(f.path, &meta); err != nil {
		return core.VersionMeta{}, err
	}
	return meta, nil
}

// SaveMeta writes the metadata record
func (f *FileMeta) SaveMeta(meta core.VersionMeta) error {
	return writeJSON(f.path, meta)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
