package codec

import (
	"reflect"
	"testing"

	"github.com/hakonhall/wiser/postings"
)

func sampleLists() []postings.List {
	return []postings.List{
		nil,
		{{DocumentID: 1, Positions: []int{0}}},
		{
			{DocumentID: 1, Positions: []int{0, 4, 10}},
			{DocumentID: 2, Positions: []int{2}},
			{DocumentID: 5, Positions: []int{0, 1, 2, 3}},
		},
		{
			{DocumentID: 1000, Positions: []int{0}},
			{DocumentID: 1001, Positions: []int{999}},
		},
	}
}

func TestRoundTripBothSchemes(t *testing.T) {
	for _, scheme := range []Scheme{SchemeNone, SchemeGolomb} {
		for i, list := range sampleLists() {
			enc, err := Encode(scheme, list, 10)
			if err != nil {
				t.Fatalf("%s[%d]: encode: %v", scheme, i, err)
			}
			got, err := Decode(scheme, enc, len(list))
			if err != nil {
				t.Fatalf("%s[%d]: decode: %v", scheme, i, err)
			}
			if len(got) == 0 && len(list) == 0 {
				continue
			}
			if !reflect.DeepEqual(got, list) {
				t.Fatalf("%s[%d]: round trip mismatch\ngot  %+v\nwant %+v", scheme, i, got, list)
			}
		}
	}
}

func TestGolombDocsCountMismatch(t *testing.T) {
	list := postings.List{{DocumentID: 1, Positions: []int{0}}}
	enc, _ := Encode(SchemeGolomb, list, 10)
	if _, err := Decode(SchemeGolomb, enc, 2); err == nil {
		t.Fatal("expected docs_count mismatch error")
	}
}

func TestGolombTruncatedData(t *testing.T) {
	list := postings.List{{DocumentID: 1, Positions: []int{0, 1, 2}}}
	enc, _ := Encode(SchemeGolomb, list, 10)
	for n := 0; n < len(enc); n++ {
		if _, err := Decode(SchemeGolomb, enc[:n], 1); err == nil {
			t.Fatalf("expected error decoding truncated data at length %d", n)
		}
	}
}

func TestGolombSubstitutesMWhenZero(t *testing.T) {
	// indexedCount smaller than docsCount drives m_doc to 0 at the raw
	// division; the codec must substitute m=1 (P7) and still round-trip.
	list := postings.List{
		{DocumentID: 1, Positions: []int{0}},
		{DocumentID: 2, Positions: []int{0}},
	}
	enc, err := Encode(SchemeGolomb, list, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(SchemeGolomb, enc, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, list) {
		t.Fatalf("got %+v want %+v", got, list)
	}
}

func TestEncodeRejectsNonAscendingDocumentIDs(t *testing.T) {
	list := postings.List{
		{DocumentID: 3, Positions: []int{0}},
		{DocumentID: 2, Positions: []int{0}},
	}
	for _, scheme := range []Scheme{SchemeNone, SchemeGolomb} {
		if _, err := Encode(scheme, list, 10); err == nil {
			t.Fatalf("%s: expected error encoding a non-ascending document-id list", scheme)
		}
	}
}

func TestEncodeRejectsNonAscendingPositions(t *testing.T) {
	list := postings.List{{DocumentID: 1, Positions: []int{4, 2}}}
	if _, err := Encode(SchemeGolomb, list, 10); err == nil {
		t.Fatal("expected error encoding non-ascending positions")
	}
}

func TestRawSchemeIsFlatNoCountPrefix(t *testing.T) {
	list := postings.List{{DocumentID: 7, Positions: []int{1, 2}}}
	enc, _ := Encode(SchemeNone, list, 10)
	// document_id, positions_count, pos0, pos1 = 4 words
	if len(enc) != 4*wordSize {
		t.Fatalf("raw encoding length = %d, want %d", len(enc), 4*wordSize)
	}
}
