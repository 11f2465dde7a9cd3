// Package session ties the core components together into the lifecycle
// spec.md §4.7/§5 describes: a session object owning the store connection
// and the in-memory index buffer, running one ingestion inside a single
// store-level transaction, and exposing a query entry point. It generalizes
// the teacher's cmd/cindex.go driver loop (open index, add files, flush,
// merge, report) into a long-lived object so cmd/wiser can drive either an
// ingestion or a query session without duplicating the transaction/flush
// discipline.
package session

import (
	"errors"
	"fmt"

	"github.com/hakonhall/wiser/codec"
	"github.com/hakonhall/wiser/index"
	"github.com/hakonhall/wiser/query"
	"github.com/hakonhall/wiser/store"
	"github.com/hakonhall/wiser/textcodec"
)

// settingCompressMethod is the settings key under which the chosen codec
// scheme is persisted (spec.md §6).
const settingCompressMethod = "compress_method"

// Session owns a store handle, the N-gram width and codec scheme in effect,
// and (during ingestion) the in-memory index buffer accumulating documents
// between flushes.
type Session struct {
	Store store.Store
	N     int

	scheme             codec.Scheme
	forcedScheme       codec.Scheme
	enablePhraseSearch bool
	threshold          int
	maxDocuments       int

	buf *index.Buffer
}

// Option configures a Session at Open time.
type Option func(*Session)

// WithFlushThreshold overrides index.DefaultFlushThreshold.
func WithFlushThreshold(n int) Option {
	return func(s *Session) { s.threshold = n }
}

// WithMaxDocuments caps the number of documents Ingest will add from a
// corpus before stopping early (0 means unlimited).
func WithMaxDocuments(n int) Option {
	return func(s *Session) { s.maxDocuments = n }
}

// WithPhraseSearch enables or disables phrase verification for Query.
func WithPhraseSearch(enabled bool) Option {
	return func(s *Session) { s.enablePhraseSearch = enabled }
}

// WithScheme forces the codec scheme for this session, bypassing the
// persisted "compress_method" setting without writing anything back. Mainly
// useful for tests; Open's normal path resolves the scheme from the store
// (spec.md §6).
func WithScheme(scheme codec.Scheme) Option {
	return func(s *Session) { s.scheme = scheme }
}

// WithForcedScheme sets and persists scheme unconditionally, overwriting
// any previously stored "compress_method" value. This is wiser.c's `-c`
// flag behavior: an indexing run always re-applies its requested compress
// method, while a query-only run always defers to whatever was persisted
// the last time a corpus was indexed.
func WithForcedScheme(scheme codec.Scheme) Option {
	return func(s *Session) { s.forcedScheme = scheme }
}

// Open opens the store at path, resolves N and the codec scheme (reading
// "compress_method" from settings and persisting "golomb" as the default if
// unset, per spec.md §6), and returns a ready Session.
func Open(path string, n int, opts ...Option) (*Session, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open store: %w", err)
	}

	sess := &Session{
		Store:              s,
		N:                  n,
		threshold:          index.DefaultFlushThreshold,
		enablePhraseSearch: true,
		buf:                index.NewBuffer(),
	}
	for _, opt := range opts {
		opt(sess)
	}

	switch {
	case sess.forcedScheme != "":
		if err := store.Retry(func() error {
			return s.PutSetting(settingCompressMethod, string(sess.forcedScheme))
		}); err != nil {
			s.Close()
			return nil, fmt.Errorf("session: persist %s: %w", settingCompressMethod, err)
		}
		sess.scheme = sess.forcedScheme
	case sess.scheme == "":
		scheme, err := resolveScheme(s)
		if err != nil {
			s.Close()
			return nil, err
		}
		sess.scheme = scheme
	}

	return sess, nil
}

// resolveScheme reads the persisted codec choice, defaulting to and
// persisting SchemeGolomb when no value has ever been set (spec.md §6).
func resolveScheme(s store.Store) (codec.Scheme, error) {
	var scheme codec.Scheme
	err := store.Retry(func() error {
		value, ok, err := s.GetSetting(settingCompressMethod)
		if err != nil {
			return err
		}
		if !ok {
			scheme = codec.SchemeGolomb
			return s.PutSetting(settingCompressMethod, "golomb")
		}
		switch value {
		case "none":
			scheme = codec.SchemeNone
		case "golomb":
			scheme = codec.SchemeGolomb
		default:
			return fmt.Errorf("session: unrecognized %s setting %q", settingCompressMethod, value)
		}
		return nil
	})
	return scheme, err
}

// Close releases the underlying store connection.
func (s *Session) Close() error {
	return s.Store.Close()
}

// Document is one (title, body) pair from a corpus to ingest.
type Document struct {
	Title string
	Body  string
}

// Ingest runs a complete ingestion session (spec.md §4.7): begins the single
// store-level transaction, adds every document in docs (stopping early once
// maxDocuments is reached, if set), flushing the in-memory buffer whenever
// it grows past the configured threshold, does a final flush, and commits.
// Any error rolls the transaction back and is returned wrapped with
// context (errors.Is still sees the underlying error); a
// duplicate title (store.ErrDuplicateTitle) aborts the whole session, per
// spec.md §9's first Open Question (see DESIGN.md).
func (s *Session) Ingest(docs []Document) (ingested int, err error) {
	if err := s.Store.Begin(); err != nil {
		return 0, fmt.Errorf("session: begin: %w", err)
	}
	defer func() {
		if err != nil {
			s.Store.Rollback()
		}
	}()

	for _, d := range docs {
		if s.maxDocuments > 0 && ingested >= s.maxDocuments {
			break
		}
		if err = s.addDocument(d); err != nil {
			return ingested, err
		}
		ingested++

		if s.buf.ShouldFlush(s.threshold) {
			indexedCount, cErr := s.Store.DocumentCount()
			if cErr != nil {
				err = fmt.Errorf("session: document count: %w", cErr)
				return ingested, err
			}
			if err = s.buf.Flush(s.Store, s.scheme, indexedCount); err != nil {
				return ingested, fmt.Errorf("session: flush: %w", err)
			}
			s.buf.Reset()
		}
	}

	if !s.buf.Empty() {
		indexedCount, cErr := s.Store.DocumentCount()
		if cErr != nil {
			err = fmt.Errorf("session: document count: %w", cErr)
			return ingested, err
		}
		if err = s.buf.Flush(s.Store, s.scheme, indexedCount); err != nil {
			return ingested, fmt.Errorf("session: final flush: %w", err)
		}
		s.buf.Reset()
	}

	if err = s.Store.Commit(); err != nil {
		return ingested, fmt.Errorf("session: commit: %w", err)
	}
	return ingested, nil
}

func (s *Session) addDocument(d Document) error {
	var id int
	err := store.Retry(func() error {
		var err error
		id, err = s.Store.AddDocument(d.Title, d.Body)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			return fmt.Errorf("session: document %q: %w", d.Title, err)
		}
		return fmt.Errorf("session: add document %q: %w", d.Title, err)
	}
	return s.buf.AddDocument(s.Store, id, textcodec.Decode([]byte(d.Body)), s.N)
}

// Query runs q against the current index (spec.md §4.9) and returns ranked
// results.
func (s *Session) Query(q string) ([]query.Result, error) {
	engine := &query.Engine{
		Store:              s.Store,
		N:                  s.N,
		Scheme:             s.scheme,
		EnablePhraseSearch: s.enablePhraseSearch,
	}
	return engine.Run(q)
}

// Stats summarizes the state of the index, mirroring the teacher's
// ix.PrintStats() call in cmd/cindex/cindex.go (a supplemented feature not
// present in spec.md's core, following original_source's own "-s"-adjacent
// reporting in wiser's CLI).
type Stats struct {
	DocumentCount int
	Scheme        codec.Scheme
}

// Stats reports the current document count and active codec scheme.
func (s *Session) Stats() (Stats, error) {
	n, err := s.Store.DocumentCount()
	if err != nil {
		return Stats{}, fmt.Errorf("session: document count: %w", err)
	}
	return Stats{DocumentCount: n, Scheme: s.scheme}, nil
}
