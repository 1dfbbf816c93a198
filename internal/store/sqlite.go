package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const (
	docAllowList = "access_control"
	docSettings  = "installation"
)

// SQLiteStore persists the configuration documents as JSON bodies in a
// single documents table, one row per document. WAL mode, single write
// connection; read-modify-write mutations run inside a transaction so two
// administrators can't clobber each other's allow-list changes.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps writers strictly serialized with the current
	// driver setup.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    name TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// allowListDoc is the on-disk envelope: the access_control object sits
// under a top-level key so the document stays self-describing.
type allowListDoc struct {
	AccessControl *AllowList `json:"access_control"`
}

type settingsDoc struct {
	Installation *InstallerSettings `json:"installation"`
}

func (s *SQLiteStore) readDoc(ctx context.Context, name string, out any) (found bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read document %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false, fmt.Errorf("decode document %s: %w", name, err)
	}
	return true, nil
}

func (s *SQLiteStore) writeDoc(ctx context.Context, name string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(body), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

// ReadAllowList returns the persisted access list, or the enabled-and-empty
// default when the document is missing or unreadable. Corrupt bodies are
// logged, never propagated — a broken config file must not lock admins out
// of the management screen (mutations will overwrite it).
func (s *SQLiteStore) ReadAllowList(ctx context.Context) (*AllowList, error) {
	var doc allowListDoc
	found, err := s.readDoc(ctx, docAllowList, &doc)
	if err != nil {
		slog.Warn("allow-list document unreadable, substituting default", "error", err)
		return DefaultAllowList(), nil
	}
	if !found || doc.AccessControl == nil {
		return DefaultAllowList(), nil
	}
	list := doc.AccessControl
	if list.Departments == nil {
		list.Departments = []DepartmentEntry{}
	}
	if list.Users == nil {
		list.Users = []UserEntry{}
	}
	return list, nil
}

// WriteAllowList atomically replaces the whole access-list document.
// Write failures always surface to the caller.
func (s *SQLiteStore) WriteAllowList(ctx context.Context, doc *AllowList) error {
	return s.writeDoc(ctx, docAllowList, allowListDoc{AccessControl: doc})
}

// MutateAllowList performs an exclusive read-modify-write on the allow-list
// document. The transaction holds the write lock for the duration, so
// concurrent mutations are serialized rather than last-writer-wins.
func (s *SQLiteStore) MutateAllowList(ctx context.Context, fn func(*AllowList) error) (*AllowList, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allow-list mutation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	list := DefaultAllowList()
	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, docAllowList).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First mutation creates the document.
	case err != nil:
		return nil, fmt.Errorf("read allow-list: %w", err)
	default:
		var doc allowListDoc
		if jsonErr := json.Unmarshal([]byte(body), &doc); jsonErr == nil && doc.AccessControl != nil {
			list = doc.AccessControl
			if list.Departments == nil {
				list.Departments = []DepartmentEntry{}
			}
			if list.Users == nil {
				list.Users = []UserEntry{}
			}
		} else {
			slog.Warn("allow-list document unreadable, mutation starts from default", "error", jsonErr)
		}
	}

	if err := fn(list); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(allowListDoc{AccessControl: list})
	if err != nil {
		return nil, fmt.Errorf("encode allow-list: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		docAllowList, string(encoded), time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("write allow-list: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allow-list mutation: %w", err)
	}
	return list, nil
}

// ReadInstallerSettings returns the installation document, or an empty
// settings value when nothing has been installed yet.
func (s *SQLiteStore) ReadInstallerSettings(ctx context.Context) (*InstallerSettings, error) {
	var doc settingsDoc
	found, err := s.readDoc(ctx, docSettings, &doc)
	if err != nil {
		slog.Warn("installer settings unreadable, substituting empty", "error", err)
		return &InstallerSettings{}, nil
	}
	if !found || doc.Installation == nil {
		return &InstallerSettings{}, nil
	}
	return doc.Installation, nil
}

// WriteInstallerSettings atomically replaces the installation document.
func (s *SQLiteStore) WriteInstallerSettings(ctx context.Context, settings *InstallerSettings) error {
	return s.writeDoc(ctx, docSettings, settingsDoc{Installation: settings})
}
