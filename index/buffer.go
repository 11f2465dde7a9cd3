// Package index implements the in-memory inverted index buffer (C5) and the
// flush/writer loop that merges it into the store (C7). It generalizes the
// teacher's IndexWriter buffering/threshold-flush shape (index/write.go in
// google-codesearch, keyed by trigram) to a token_id-keyed buffer, and
// follows original_source/src/token.c's token_to_postings_list for the
// exact per-document add-posting algorithm.
package index

import (
	"fmt"

	"github.com/hakonhall/wiser/codec"
	"github.com/hakonhall/wiser/postings"
	"github.com/hakonhall/wiser/store"
	"github.com/hakonhall/wiser/tokenizer"
)

// DefaultFlushThreshold is ii_buffer_update_threshold's default (spec.md
// §4.7): the writer flushes once the buffer holds more documents than this.
const DefaultFlushThreshold = 2048

// Entry is one in-memory inverted index value: a token's accumulated
// docs_count, positions_count, and buffered posting list, held between
// flushes (spec.md §4.5).
type Entry struct {
	DocsCount      int
	PositionsCount int
	List           postings.List
}

// Buffer is the in-memory inverted index (C5): a token_id -> Entry mapping
// that owns its posting lists exclusively between flushes.
type Buffer struct {
	entries   map[int]*Entry
	order     []int // token ids in first-seen order, for deterministic flush iteration
	documents int    // number of documents folded in since the last flush
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{entries: make(map[int]*Entry)}
}

// Empty reports whether the buffer holds no accumulated documents.
func (b *Buffer) Empty() bool {
	return b.documents == 0
}

// DocumentCount returns the number of documents folded in since the buffer
// was last emptied.
func (b *Buffer) DocumentCount() int {
	return b.documents
}

// AddDocument tokenizes body and folds every resulting N-gram into the
// buffer under documentID, resolving (and inserting) each token through s.
// It is the per-document half of spec.md §4.5-§4.6: each token's buffered
// posting list gains either a new posting for this document or, if the
// token's current tail posting is already this document, an extra
// position.
func (b *Buffer) AddDocument(s store.Store, documentID int, body []rune, n int) error {
	b.documents++
	for _, tok := range tokenizer.Tokenize(body, n, true) {
		tokenID, _, err := s.GetTokenID(string(tok.CodePoints), true)
		if err != nil {
			return fmt.Errorf("index: resolve token %q: %w", string(tok.CodePoints), err)
		}
		b.addPosition(tokenID, documentID, tok.Position)
	}
	return nil
}

// addPosition implements spec.md §4.5 steps 2-4. docs_count is incremented
// once per distinct document the token is seen in within this buffer: a
// brand-new entry starts at 0 and a new posting (whether the entry is new
// or the token has already been seen in an earlier document this buffer
// cycle) bumps it by one; an extra position within the same document's
// existing posting does not.
//
// AddDocument calls this once per document in increasing document_id order
// (ids are SQLite auto-increment, store/sqlite.go), so a token's postings
// only ever grow at the tail: appending there, rather than prepending, is
// what keeps e.List ascending by document_id (spec.md §3 I2) without a sort.
func (b *Buffer) addPosition(tokenID, documentID, position int) {
	e, ok := b.entries[tokenID]
	if !ok {
		e = &Entry{}
		b.entries[tokenID] = e
		b.order = append(b.order, tokenID)
	}

	if n := len(e.List); n > 0 && e.List[n-1].DocumentID == documentID {
		tail := &e.List[n-1]
		tail.Positions = append(tail.Positions, position)
	} else {
		e.DocsCount++
		e.List = append(e.List, postings.Posting{DocumentID: documentID, Positions: []int{position}})
	}
	e.PositionsCount++
}

// ShouldFlush reports whether the buffer has grown past threshold and
// should be flushed (spec.md §4.7).
func (b *Buffer) ShouldFlush(threshold int) bool {
	return b.documents > threshold
}

// Reset empties the buffer, as happens at the end of a successful Flush.
func (b *Buffer) Reset() {
	b.entries = make(map[int]*Entry)
	b.order = nil
	b.documents = 0
}

// Flush runs the writer loop (C7): for each buffered token entry, fetch any
// persisted posting list, merge it with the buffered list, re-encode, and
// persist. It does not reset the buffer itself; the caller does that once
// Flush returns successfully, keeping the buffer's Empty/Accumulating state
// visible to callers that want to inspect it mid-transaction.
func (b *Buffer) Flush(s store.Store, scheme codec.Scheme, indexedCount int) error {
	for _, tokenID := range b.order {
		e := b.entries[tokenID]

		var persisted int
		var err error
		err = store.Retry(func() error {
			var encoded []byte
			persisted, encoded, err = s.GetPostings(tokenID)
			if err != nil {
				return err
			}
			if len(encoded) > 0 {
				existing, decErr := codec.Decode(scheme, encoded, persisted)
				if decErr != nil {
					return fmt.Errorf("index: decode existing postings for token %d: %w", tokenID, decErr)
				}
				e.List = postings.Merge(existing, e.List)
			}
			return nil
		})
		if err != nil {
			return err
		}

		docsCount := e.DocsCount + persisted
		encoded, err := codec.Encode(scheme, e.List, indexedCount)
		if err != nil {
			return fmt.Errorf("index: encode postings for token %d: %w", tokenID, err)
		}

		if err := store.Retry(func() error {
			return s.UpdatePostings(tokenID, docsCount, encoded)
		}); err != nil {
			return err
		}
	}
	return nil
}
