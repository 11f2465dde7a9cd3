package index

import (
	"path/filepath"
	"testing"

	"github.com/hakonhall/wiser/codec"
	"github.com/hakonhall/wiser/store"
	"github.com/hakonhall/wiser/textcodec"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddDocumentAndFlushRoundTrip(t *testing.T) {
	s := openTestStore(t)
	doc1, err := s.AddDocument("d1", "abcabc")
	if err != nil {
		t.Fatal(err)
	}

	b := NewBuffer()
	if err := b.AddDocument(s, doc1, textcodec.Decode([]byte("abcabc")), 2); err != nil {
		t.Fatal(err)
	}
	if b.DocumentCount() != 1 {
		t.Fatalf("DocumentCount = %d", b.DocumentCount())
	}

	if err := b.Flush(s, codec.SchemeGolomb, 1); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	b.Reset()
	if !b.Empty() {
		t.Fatal("expected empty buffer after reset")
	}

	tokenID, docsCount, err := s.GetTokenID("bc", false)
	if err != nil {
		t.Fatal(err)
	}
	if tokenID == 0 {
		t.Fatal("expected token 'bc' to exist")
	}
	if docsCount != 1 {
		t.Fatalf("docs_count = %d, want 1", docsCount)
	}
	persistedDocsCount, encoded, err := s.GetPostings(tokenID)
	if err != nil {
		t.Fatal(err)
	}
	list, err := codec.Decode(codec.SchemeGolomb, encoded, persistedDocsCount)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].DocumentID != doc1 {
		t.Fatalf("list = %+v", list)
	}
	// "bc" occurs at code-point positions 1 and 4 in "abcabc".
	if got, want := list[0].Positions, []int{1, 4}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("positions = %v, want %v", got, want)
	}
}

func TestFlushMergesWithPersisted(t *testing.T) {
	s := openTestStore(t)

	doc1, _ := s.AddDocument("d1", "ab")
	b := NewBuffer()
	b.AddDocument(s, doc1, textcodec.Decode([]byte("ab")), 2)
	if err := b.Flush(s, codec.SchemeGolomb, 1); err != nil {
		t.Fatal(err)
	}
	b.Reset()

	doc2, _ := s.AddDocument("d2", "ab")
	b.AddDocument(s, doc2, textcodec.Decode([]byte("ab")), 2)
	if err := b.Flush(s, codec.SchemeGolomb, 2); err != nil {
		t.Fatal(err)
	}
	b.Reset()

	tokenID, docsCount, err := s.GetTokenID("ab", false)
	if err != nil {
		t.Fatal(err)
	}
	if docsCount != 2 {
		t.Fatalf("docs_count = %d, want 2", docsCount)
	}
	persisted, encoded, err := s.GetPostings(tokenID)
	if err != nil {
		t.Fatal(err)
	}
	list, err := codec.Decode(codec.SchemeGolomb, encoded, persisted)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].DocumentID != doc1 || list[1].DocumentID != doc2 {
		t.Fatalf("list = %+v", list)
	}
}

func TestAddDocumentCountsEachDistinctDocumentBeforeFlush(t *testing.T) {
	s := openTestStore(t)

	doc1, _ := s.AddDocument("d1", "ab")
	doc2, _ := s.AddDocument("d2", "ab")
	doc3, _ := s.AddDocument("d3", "ab")

	b := NewBuffer()
	if err := b.AddDocument(s, doc1, textcodec.Decode([]byte("ab")), 2); err != nil {
		t.Fatal(err)
	}
	if err := b.AddDocument(s, doc2, textcodec.Decode([]byte("ab")), 2); err != nil {
		t.Fatal(err)
	}
	if err := b.AddDocument(s, doc3, textcodec.Decode([]byte("ab")), 2); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(s, codec.SchemeGolomb, 3); err != nil {
		t.Fatal(err)
	}
	b.Reset()

	tokenID, docsCount, err := s.GetTokenID("ab", false)
	if err != nil {
		t.Fatal(err)
	}
	if docsCount != 3 {
		t.Fatalf("docs_count = %d, want 3 (one per distinct document folded in before the flush)", docsCount)
	}
	persisted, encoded, err := s.GetPostings(tokenID)
	if err != nil {
		t.Fatal(err)
	}
	list, err := codec.Decode(codec.SchemeGolomb, encoded, persisted)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("list = %+v, want 3 postings", list)
	}
}
