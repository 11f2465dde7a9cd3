// Package store defines the abstract persistence contract (C8) the core
// indexing and query engine run against: documents, tokens, postings, and
// settings, plus transaction boundaries. spec.md treats the backing database
// as an external collaborator; this package both states that contract and
// (in sqlite.go) provides the one embedded-relational-database implementation
// this repository ships, grounded directly in original_source/src/database.c's
// schema and prepared statements.
package store

import "errors"

// ErrBusy signals a transient "the store is busy" condition. Per spec.md
// §4.8, callers should retry the same statement. Retry does this for the
// AddDocument, GetPostings, UpdatePostings, GetSetting and PutSetting calls
// made by session, index and query; their GetTokenID, DocumentCount, Begin
// and Commit calls are not retried and return ErrBusy to the caller.
var ErrBusy = errors.New("store: busy")

// ErrLogic signals a fatal store-side error (a broken invariant, a
// constraint violation that isn't the expected "duplicate title" case).
// It aborts the current transaction.
var ErrLogic = errors.New("store: logic error")

// ErrDuplicateTitle is returned by AddDocument when the title already
// exists. spec.md's first Open Question left ambiguous whether re-ingesting
// a title should mutate the existing document in place (inflating its
// posting lists) or be rejected; this implementation rejects, see
// DESIGN.md "Open Question decisions".
var ErrDuplicateTitle = errors.New("store: duplicate title")

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the indexing pipeline and query engine
// depend on. Implementations own the underlying connection and any prepared
// statements; Close releases them.
type Store interface {
	// GetDocumentID returns the id of the document with this title, or
	// ErrNotFound if no such document exists.
	GetDocumentID(title string) (int, error)

	// GetDocumentTitle returns the title of the document with this id.
	GetDocumentTitle(id int) (string, error)

	// AddDocument inserts a new document and returns its id. It returns
	// ErrDuplicateTitle if title is already in use.
	AddDocument(title, body string) (id int, err error)

	// GetTokenID returns the id and current docs_count of the token string.
	// If insert is true and the token is absent, it is created with an
	// empty posting list and docs_count 0. If insert is false and the
	// token is absent, it returns id 0 (the query-only sentinel from
	// spec.md §4.5) with no error.
	GetTokenID(token string, insert bool) (id int, docsCount int, err error)

	// GetToken returns the token string for an id.
	GetToken(id int) (string, error)

	// GetPostings returns the persisted docs_count and encoded posting
	// bytes for a token. An absent or never-written token returns
	// (0, nil, nil).
	GetPostings(tokenID int) (docsCount int, encoded []byte, err error)

	// UpdatePostings overwrites the persisted posting record for a token.
	UpdatePostings(tokenID, docsCount int, encoded []byte) error

	// GetSetting returns a persisted setting value, or ok=false if unset.
	GetSetting(key string) (value string, ok bool, err error)

	// PutSetting persists a setting value.
	PutSetting(key, value string) error

	// DocumentCount returns the total number of indexed documents.
	DocumentCount() (int, error)

	// Begin, Commit, Rollback delimit the single store-level transaction
	// an ingestion session runs inside (spec.md §4.7).
	Begin() error
	Commit() error
	Rollback() error

	// Close releases the underlying connection and any prepared
	// statements, on every exit path.
	Close() error
}
