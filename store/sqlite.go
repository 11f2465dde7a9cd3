package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// schema mirrors original_source/src/database.c's init_database exactly:
// three tables (documents, tokens, settings) plus the unique indexes that
// enforce title/token uniqueness (I6: ids are never reused, because SQLite's
// INTEGER PRIMARY KEY is a monotonically increasing rowid alias).
const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT
);
CREATE TABLE IF NOT EXISTS documents (
	id    INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	body  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tokens (
	id         INTEGER PRIMARY KEY,
	token      TEXT NOT NULL,
	docs_count INT NOT NULL,
	postings   BLOB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS token_index ON tokens(token);
CREATE UNIQUE INDEX IF NOT EXISTS title_index ON documents(title);
`

// SQLiteStore is the Store implementation backed by modernc.org/sqlite, the
// pure-Go (cgo-free) SQLite driver also used by sqldef-sqldef's
// database/sqlite3 adapter. It provides the single embedded relational
// database file spec.md §1/§6 call for.
type SQLiteStore struct {
	db *sql.DB
	tx *sql.Tx // non-nil between Begin and Commit/Rollback
}

// Open creates (if needed) and opens the database file at path, creating the
// schema on first use.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every method below
// runs against whichever is active.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQLiteStore) Begin() error {
	if s.tx != nil {
		return fmt.Errorf("store: transaction already in progress")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return classify(err)
	}
	s.tx = tx
	return nil
}

func (s *SQLiteStore) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("store: no transaction in progress")
	}
	err := s.tx.Commit()
	s.tx = nil
	return classify(err)
}

func (s *SQLiteStore) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return classify(err)
}

func (s *SQLiteStore) GetDocumentID(title string) (int, error) {
	var id int
	err := s.q().QueryRow(`SELECT id FROM documents WHERE title = ?`, title).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (s *SQLiteStore) GetDocumentTitle(id int) (string, error) {
	var title string
	err := s.q().QueryRow(`SELECT title FROM documents WHERE id = ?`, id).Scan(&title)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", classify(err)
	}
	return title, nil
}

func (s *SQLiteStore) AddDocument(title, body string) (int, error) {
	if _, err := s.GetDocumentID(title); err == nil {
		return 0, ErrDuplicateTitle
	} else if err != ErrNotFound {
		return 0, err
	}
	res, err := s.q().Exec(`INSERT INTO documents (title, body) VALUES (?, ?)`, title, body)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}
	return int(id), nil
}

func (s *SQLiteStore) GetTokenID(token string, insert bool) (int, int, error) {
	var id, docsCount int
	err := s.q().QueryRow(`SELECT id, docs_count FROM tokens WHERE token = ?`, token).Scan(&id, &docsCount)
	if err == nil {
		return id, docsCount, nil
	}
	if err != sql.ErrNoRows {
		return 0, 0, classify(err)
	}
	if !insert {
		return 0, 0, nil
	}
	res, err := s.q().Exec(`INSERT INTO tokens (token, docs_count, postings) VALUES (?, 0, ?)`, token, []byte{})
	if err != nil {
		return 0, 0, classify(err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, classify(err)
	}
	return int(newID), 0, nil
}

func (s *SQLiteStore) GetToken(id int) (string, error) {
	var token string
	err := s.q().QueryRow(`SELECT token FROM tokens WHERE id = ?`, id).Scan(&token)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", classify(err)
	}
	return token, nil
}

func (s *SQLiteStore) GetPostings(tokenID int) (int, []byte, error) {
	var docsCount int
	var encoded []byte
	err := s.q().QueryRow(`SELECT docs_count, postings FROM tokens WHERE id = ?`, tokenID).Scan(&docsCount, &encoded)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, classify(err)
	}
	return docsCount, encoded, nil
}

func (s *SQLiteStore) UpdatePostings(tokenID, docsCount int, encoded []byte) error {
	_, err := s.q().Exec(`UPDATE tokens SET docs_count = ?, postings = ? WHERE id = ?`, docsCount, encoded, tokenID)
	return classify(err)
}

func (s *SQLiteStore) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.q().QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err)
	}
	return value, true, nil
}

func (s *SQLiteStore) PutSetting(key, value string) error {
	_, err := s.q().Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return classify(err)
}

func (s *SQLiteStore) DocumentCount() (int, error) {
	var n int
	err := s.q().QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// classify maps a database/sql/driver error onto the store's error kinds
// (spec.md §7): a SQLITE_BUSY/SQLITE_LOCKED condition becomes ErrBusy so
// Retry can loop on it; anything else becomes ErrLogic, wrapped so the
// original message survives for diagnostics.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToUpper(err.Error())
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") || strings.Contains(msg, "DATABASE IS LOCKED") {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return fmt.Errorf("%w: %v", ErrLogic, err)
}

// Retry runs fn, retrying indefinitely while it returns ErrBusy, per
// spec.md §4.8's retry policy. Any other error (including ErrLogic) is
// returned immediately, fatal to the caller's transaction.
func Retry(fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBusy) {
			return err
		}
	}
}
