// Package local implements the on-device backend: an append-only SQLite chunk store
// and an exact nearest-neighbour index rebuilt from it on every search.
package local

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"multirag/internal/domain"
	"multirag/internal/vectorstore/local/migrations"
)

// DefaultSource labels chunks ingested without a source.
const DefaultSource = "local-upload"

// Store is the durable record of locally ingested chunks.
// Rows are appended and never updated, so ids only grow.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at path, creating parent directories and
// applying pending migrations. A store that cannot be opened is a hard error.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("local store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

// Add appends one chunk and returns its row id.
func (s *Store) Add(ctx context.Context, source, text string, vector []float64) (int64, error) {
	if len(vector) == 0 {
		return 0, fmt.Errorf("add chunk: %w: empty vector", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(source) == "" {
		source = DefaultSource
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (source, text_chunk, embedding) VALUES (?, ?, ?)`,
		source, text, encodeVector(vector))
	if err != nil {
		return 0, fmt.Errorf("inserting chunk: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading chunk id: %w", err)
	}
	return id, nil
}

// BulkRead returns every stored chunk in insertion order.
func (s *Store) BulkRead(ctx context.Context) ([]domain.StoredVector, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, text_chunk, embedding FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredVector
	for rows.Next() {
		var (
			v    domain.StoredVector
			blob []byte
		)
		if err := rows.Scan(&v.ID, &v.Source, &v.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if v.Vector, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("decoding chunk %d: %w", v.ID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(buf))
	}
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v, nil
}
