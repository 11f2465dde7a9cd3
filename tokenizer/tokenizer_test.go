package tokenizer

import (
	"reflect"
	"testing"
)

func ngrams(toks []Token) []string {
	var out []string
	for _, t := range toks {
		out = append(out, string(t.CodePoints))
	}
	return out
}

func positions(toks []Token) []int {
	var out []int
	for _, t := range toks {
		out = append(out, t.Position)
	}
	return out
}

func TestIndexingModeKeepsShortTrailing(t *testing.T) {
	cp := []rune("abc")
	toks := Tokenize(cp, 2, true)
	if got, want := ngrams(toks), []string{"ab", "bc", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got, want := positions(toks), []int{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("positions got %v want %v", got, want)
	}
}

func TestQueryModeDiscardsShortTrailing(t *testing.T) {
	cp := []rune("a")
	toks := Tokenize(cp, 2, false)
	if len(toks) != 0 {
		t.Fatalf("expected no tokens for a too-short run in query mode, got %v", ngrams(toks))
	}
}

func TestSeparatorsSkip(t *testing.T) {
	cp := []rune("ab cd")
	toks := Tokenize(cp, 2, false)
	if got, want := ngrams(toks), []string{"ab", "cd"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got, want := positions(toks), []int{0, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("positions got %v want %v", got, want)
	}
}

func TestOverlappingNgrams(t *testing.T) {
	cp := []rune("abcabc")
	toks := Tokenize(cp, 2, false)
	want := []string{"ab", "bc", "ca", "ab", "bc"}
	if got := ngrams(toks); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFullwidthSeparator(t *testing.T) {
	cp := []rune("a，b")
	toks := Tokenize(cp, 2, false)
	if len(toks) != 0 {
		t.Fatalf("expected no 2-grams across fullwidth comma, got %v", ngrams(toks))
	}
}
