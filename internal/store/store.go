package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carbonlens/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-backed home for several evidence stores and the
// shared version metadata record.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new store instance with SQLite database
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "carbonlens.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *SQLiteStore) initialize() error {
	evidenceTable := `
	CREATE TABLE IF NOT EXISTS evidence (
		store TEXT NOT NULL,
		key TEXT NOT NULL,
		kind TEXT NOT NULL,
		snippets TEXT NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (store, key)
	);`

	epochTable := `
	CREATE TABLE IF NOT EXISTS evidence_epochs (
		store TEXT PRIMARY KEY,
		epoch TEXT NOT NULL
	);`

	metaTable := `
	CREATE TABLE IF NOT EXISTS cache_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version TEXT NOT NULL,
		epoch TEXT NOT NULL,
		stamped_at TEXT NOT NULL
	);`

	for _, table := range []string{evidenceTable, epochTable, metaTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Backend returns the Backend for the named evidence store
func (s *SQLiteStore) Backend(name string) Backend {
	return &sqliteBackend{db: s.db, name: name}
}

// LoadMeta returns the shared version metadata record
func (s *SQLiteStore) LoadMeta() (core.VersionMeta, error) {
	var meta core.VersionMeta
	var stamped string

	err := s.db.QueryRow(`SELECT version, epoch, stamped_at FROM cache_meta WHERE id = 1`).
		Scan(&meta.Version, &meta.Epoch, &stamped)
	if err == sql.ErrNoRows {
		return core.VersionMeta{}, nil
	}
	if err != nil {
		return core.VersionMeta{}, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	if meta.Timestamp, err = time.Parse(time.RFC3339Nano, stamped); err != nil {
		return core.VersionMeta{}, fmt.Errorf("malformed cache metadata timestamp %q: %w", stamped, err)
	}
	return meta, nil
}

// SaveMeta replaces the shared version metadata record
func (s *SQLiteStore) SaveMeta(meta core.VersionMeta) error {
	query := `
	INSERT OR REPLACE INTO cache_meta (id, version, epoch, stamped_at)
	VALUES (1, ?, ?, ?)`

	_, err := s.db.Exec(query, meta.Version, meta.Epoch, meta.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

type sqliteBackend struct {
	db   *sql.DB
	name string
}

// Load reads every record of the store
func (b *sqliteBackend) Load() (Snapshot, error) {
	snap := emptySnapshot()

	err := b.db.QueryRow(`SELECT epoch FROM evidence_epochs WHERE store = ?`, b.name).Scan(&snap.Epoch)
	if err != nil && err != sql.ErrNoRows {
		return emptySnapshot(), fmt.Errorf("failed to read epoch for %s: %w", b.name, err)
	}

	rows, err := b.db.Query(`SELECT key, kind, snippets, page_count FROM evidence WHERE store = ?`, b.name)
	if err != nil {
		return emptySnapshot(), fmt.Errorf("failed to query %s: %w", b.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, kind, snippetsJSON string
		var rec Record

		if err := rows.Scan(&key, &kind, &snippetsJSON, &rec.PageCount); err != nil {
			return emptySnapshot(), fmt.Errorf("failed to scan %s: %w", b.name, err)
		}
		rec.Kind = core.SourceKind(kind)
		if err := json.Unmarshal([]byte(snippetsJSON), &rec.Snippets); err != nil {
			return emptySnapshot(), fmt.Errorf("malformed snippets for %s/%s: %w", b.name, key, err)
		}
		snap.Entries[key] = rec
	}

	if err := rows.Err(); err != nil {
		return emptySnapshot(), fmt.Errorf("failed to iterate %s: %w", b.name, err)
	}
	return snap, nil
}

// Save replaces every record of the store in one transaction
func (b *sqliteBackend) Save(s Snapshot) (err error) {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM evidence WHERE store = ?`, b.name); err != nil {
		return fmt.Errorf("failed to clear %s: %w", b.name, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO evidence (store, key, kind, snippets, page_count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, rec := range s.Entries {
		snippets := rec.Snippets
		if snippets == nil {
			snippets = []string{}
		}
		data, mErr := json.Marshal(snippets)
		if mErr != nil {
			err = fmt.Errorf("failed to encode snippets for %s: %w", key, mErr)
			return err
		}
		if _, err = stmt.Exec(b.name, key, string(rec.Kind), string(data), rec.PageCount); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", b.name, key, err)
		}
	}

	if _, err = tx.Exec(`INSERT OR REPLACE INTO evidence_epochs (store, epoch) VALUES (?, ?)`, b.name, s.Epoch); err != nil {
		return fmt.Errorf("failed to write epoch for %s: %w", b.name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", b.name, err)
	}
	return nil
}
