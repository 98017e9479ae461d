// Package store implements the persistent layer for RuvScan.
//
// It uses a single SQLite database to hold scanned repositories (with their
// embedding vectors), the FACT cache entries, and scan job bookkeeping.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ruvscan/ruvscan/internal/fact"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Repo is a scanned GitHub repository with its embedding vector.
type Repo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Org         string    `json:"org"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	README      string    `json:"readme,omitempty"`
	Embedding   []float64 `json:"-"`
	Stars       int       `json:"stars"`
	Language    string    `json:"language,omitempty"`
	LastScan    string    `json:"last_scan"`
	CreatedAt   string    `json:"created_at"`
}

// ScanJob tracks one background GitHub scan.
type ScanJob struct {
	ID             string  `json:"id"`
	SourceType     string  `json:"source_type"`
	SourceName     string  `json:"source_name"`
	Status         string  `json:"status"` // running, completed, failed
	ReposFound     int     `json:"repos_found"`
	ReposProcessed int     `json:"repos_processed"`
	Error          string  `json:"error,omitempty"`
	StartedAt      string  `json:"started_at"`
	FinishedAt     *string `json:"finished_at,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".ruvscan")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New creates a Store. It creates the data directory if needed, opens SQLite
// with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "ruvscan.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS repos (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			org         TEXT NOT NULL,
			full_name   TEXT UNIQUE NOT NULL,
			description TEXT,
			topics      TEXT,
			readme      TEXT,
			embedding   BLOB,
			stars       INTEGER NOT NULL DEFAULT 0,
			language    TEXT,
			last_scan   TEXT NOT NULL DEFAULT (datetime('now')),
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(org, name)
		);

		CREATE INDEX IF NOT EXISTS idx_repos_org       ON repos(org);
		CREATE INDEX IF NOT EXISTS idx_repos_full_name ON repos(full_name);

		CREATE TABLE IF NOT EXISTS fact_cache (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			hash       TEXT UNIQUE NOT NULL,
			prompt     TEXT NOT NULL,
			response   TEXT NOT NULL,
			version    TEXT NOT NULL DEFAULT '',
			metadata   TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_fact_hash ON fact_cache(hash);

		CREATE TABLE IF NOT EXISTS scan_jobs (
			id              TEXT PRIMARY KEY,
			source_type     TEXT NOT NULL,
			source_name     TEXT NOT NULL,
			status          TEXT NOT NULL DEFAULT 'running',
			repos_found     INTEGER NOT NULL DEFAULT 0,
			repos_processed INTEGER NOT NULL DEFAULT 0,
			error           TEXT,
			started_at      TEXT NOT NULL DEFAULT (datetime('now')),
			finished_at     TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_status ON scan_jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Repos ───────────────────────────────────────────────────────────────────

// UpsertRepo inserts or replaces a repository keyed by full_name and returns
// its row ID. A rescan of the same repo overwrites the previous row.
func (s *Store) UpsertRepo(r Repo) (int64, error) {
	topics, err := json.Marshal(r.Topics)
	if err != nil {
		return 0, fmt.Errorf("store: encode topics: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO repos (name, org, full_name, description, topics, readme, embedding, stars, language, last_scan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(full_name) DO UPDATE SET
			name        = excluded.name,
			org         = excluded.org,
			description = excluded.description,
			topics      = excluded.topics,
			readme      = excluded.readme,
			embedding   = excluded.embedding,
			stars       = excluded.stars,
			language    = excluded.language,
			last_scan   = datetime('now')`,
		r.Name, r.Org, r.FullName, nullableString(r.Description), string(topics),
		nullableString(r.README), encodeVector(r.Embedding), r.Stars, nullableString(r.Language),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRepo retrieves a repository by full name.
func (s *Store) GetRepo(fullName string) (*Repo, error) {
	row := s.db.QueryRow(`
		SELECT id, name, org, full_name, description, topics, readme, embedding, stars, language, last_scan, created_at
		FROM repos WHERE full_name = ?`, fullName)

	r, err := scanRepo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRepos returns all scanned repositories ordered by full name. This is the
// corpus snapshot the query pipeline scores against.
func (s *Store) ListRepos(limit int) ([]Repo, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(`
		SELECT id, name, org, full_name, description, topics, readme, embedding, stars, language, last_scan, created_at
		FROM repos ORDER BY full_name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var repos []Repo
	for rows.Next() {
		r, err := scanRepo(rows.Scan)
		if err != nil {
			return nil, err
		}
		repos = append(repos, *r)
	}
	return repos, rows.Err()
}

// CountRepos returns the number of scanned repositories.
func (s *Store) CountRepos() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM repos`).Scan(&n)
	return n, err
}

func scanRepo(scan func(dest ...any) error) (*Repo, error) {
	var (
		r         Repo
		desc      sql.NullString
		topics    sql.NullString
		readme    sql.NullString
		embedding []byte
		lang      sql.NullString
	)
	if err := scan(&r.ID, &r.Name, &r.Org, &r.FullName, &desc, &topics, &readme,
		&embedding, &r.Stars, &lang, &r.LastScan, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Description = desc.String
	r.README = readme.String
	r.Language = lang.String
	if topics.Valid && topics.String != "" {
		if err := json.Unmarshal([]byte(topics.String), &r.Topics); err != nil {
			return nil, fmt.Errorf("store: decode topics for %s: %w", r.FullName, err)
		}
	}
	r.Embedding = decodeVector(embedding)
	return &r, nil
}

// ─── FACT cache ──────────────────────────────────────────────────────────────

// PutEntry writes a FACT cache entry, replacing any existing row with the
// same hash. *Store satisfies fact.EntryStore.
func (s *Store) PutEntry(e fact.Entry) error {
	var metadata any
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("store: encode metadata: %w", err)
		}
		metadata = string(b)
	}

	_, err := s.db.Exec(`
		INSERT INTO fact_cache (hash, prompt, response, version, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			prompt     = excluded.prompt,
			response   = excluded.response,
			version    = excluded.version,
			metadata   = excluded.metadata,
			created_at = excluded.created_at`,
		e.Hash, e.Prompt, e.Response, e.Version, metadata, e.CreatedAt)
	return err
}

// GetEntry retrieves a cache entry by hash. A missing row returns (nil, nil).
func (s *Store) GetEntry(hash string) (*fact.Entry, error) {
	row := s.db.QueryRow(`
		SELECT hash, prompt, response, version, metadata, created_at
		FROM fact_cache WHERE hash = ?`, hash)

	var (
		e        fact.Entry
		metadata sql.NullString
	)
	err := row.Scan(&e.Hash, &e.Prompt, &e.Response, &e.Version, &metadata, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("store: decode metadata: %w", err)
		}
	}
	return &e, nil
}

// CountEntries returns the number of FACT cache entries.
func (s *Store) CountEntries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM fact_cache`).Scan(&n)
	return n, err
}

// ─── Scan jobs ───────────────────────────────────────────────────────────────

// CreateScanJob registers a new scan job in the running state.
func (s *Store) CreateScanJob(id, sourceType, sourceName string) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_jobs (id, source_type, source_name) VALUES (?, ?, ?)`,
		id, sourceType, sourceName)
	return err
}

// UpdateScanProgress updates the counters for a running job.
func (s *Store) UpdateScanProgress(id string, found, processed int) error {
	_, err := s.db.Exec(`
		UPDATE scan_jobs SET repos_found = ?, repos_processed = ? WHERE id = ?`,
		found, processed, id)
	return err
}

// FinishScanJob marks a job completed, or failed when errMsg is non-empty.
func (s *Store) FinishScanJob(id string, errMsg string) error {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	_, err := s.db.Exec(`
		UPDATE scan_jobs SET status = ?, error = ?, finished_at = datetime('now') WHERE id = ?`,
		status, nullableString(errMsg), id)
	return err
}

// GetScanJob retrieves a scan job by ID. A missing job returns (nil, nil).
func (s *Store) GetScanJob(id string) (*ScanJob, error) {
	row := s.db.QueryRow(`
		SELECT id, source_type, source_name, status, repos_found, repos_processed, error, started_at, finished_at
		FROM scan_jobs WHERE id = ?`, id)

	var (
		j      ScanJob
		errMsg sql.NullString
	)
	err := row.Scan(&j.ID, &j.SourceType, &j.SourceName, &j.Status,
		&j.ReposFound, &j.ReposProcessed, &errMsg, &j.StartedAt, &j.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Error = errMsg.String
	return &j, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// nullableString returns nil for empty strings so they store as NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Now returns the current time formatted for storage.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
