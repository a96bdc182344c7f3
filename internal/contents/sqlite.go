package contents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path          TEXT PRIMARY KEY,
	parent        TEXT NOT NULL,
	name          TEXT NOT NULL,
	type          TEXT NOT NULL,
	content       TEXT,
	created       TEXT NOT NULL,
	last_modified TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_parent ON entries(parent);
`

// SQLiteStore is a Store backed by a single-file SQLite database. It is the
// deployable backend for installations that keep templates out of the local
// filesystem.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the store database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, p string, opts GetOptions) (*Entry, error) {
	p = normalizePath(p)

	entry, err := s.lookup(ctx, p)
	if err != nil {
		return nil, err
	}

	if opts.Type != "" && entry.Type != opts.Type {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrNotFound, p, opts.Type)
	}
	if !opts.Content {
		entry.Content = nil
		return entry, nil
	}

	if entry.Type == TypeDirectory {
		children, err := s.children(ctx, p)
		if err != nil {
			return nil, err
		}
		entry.Children = children
	}

	return entry, nil
}

// Put inserts or replaces an entry, creating missing parent directories.
// Notebook content must be valid JSON.
func (s *SQLiteStore) Put(ctx context.Context, p string, typ EntryType, content []byte) error {
	p = normalizePath(p)
	if p == "" {
		return fmt.Errorf("cannot put the store root")
	}
	if typ == TypeNotebook && !json.Valid(content) {
		return fmt.Errorf("notebook %s: content is not valid JSON", p)
	}

	if err := s.Mkdir(ctx, parentPath(p)); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (path, parent, name, type, content, created, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			type = excluded.type,
			content = excluded.content,
			last_modified = excluded.last_modified`,
		p, parentPath(p), path.Base(p), string(typ), string(content), now, now)
	if err != nil {
		return fmt.Errorf("put %s: %w", p, err)
	}
	return nil
}

// Mkdir creates a directory entry and any missing ancestors. Creating the
// root is a no-op.
func (s *SQLiteStore) Mkdir(ctx context.Context, p string) error {
	p = normalizePath(p)
	if p == "" {
		return nil
	}

	if err := s.Mkdir(ctx, parentPath(p)); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (path, parent, name, type, content, created, last_modified)
		VALUES (?, ?, ?, 'directory', NULL, ?, ?)
		ON CONFLICT(path) DO NOTHING`,
		p, parentPath(p), path.Base(p), now, now)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) lookup(ctx context.Context, p string) (*Entry, error) {
	if p == "" {
		// The root directory exists implicitly.
		return &Entry{Path: "", Name: "", Type: TypeDirectory}, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT path, name, type, content, created, last_modified
		FROM entries WHERE path = ?`, p)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", p, err)
	}
	return entry, nil
}

func (s *SQLiteStore) children(ctx context.Context, p string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, type, content, created, last_modified
		FROM entries WHERE parent = ? ORDER BY path`, p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	defer rows.Close()

	children := make([]*Entry, 0)
	for rows.Next() {
		child, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", p, err)
		}
		// Listings carry identity only; content comes from a direct Get.
		child.Content = nil
		children = append(children, child)
	}
	return children, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry    Entry
		typ      string
		content  sql.NullString
		created  string
		modified string
	)
	if err := row.Scan(&entry.Path, &entry.Name, &typ, &content, &created, &modified); err != nil {
		return nil, err
	}

	entry.Type = EntryType(typ)
	if content.Valid {
		entry.Content = json.RawMessage(content.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		entry.Created = t
	}
	if t, err := time.Parse(time.RFC3339Nano, modified); err == nil {
		entry.LastModified = t
	}
	return &entry, nil
}

// normalizePath converts a client path to the canonical stored form: slash
// separated, no leading or trailing slashes, "" for the root.
func normalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "." {
		return ""
	}
	return p
}

func parentPath(p string) string {
	parent := path.Dir(p)
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}
