// Package tokenizer splits decoded Unicode text into overlapping N-grams,
// the same way for both document bodies (indexing) and query strings
// (searching), so that token boundaries line up between the two.
package tokenizer

// separators holds the single-code-point separator set: ASCII whitespace and
// punctuation, plus a handful of CJK/fullwidth punctuation marks. This set is
// authoritative and must not be derived from any general Unicode property
// table — matching behavior against the original wiser tokenizer depends on
// this exact list.
var separators = map[rune]bool{
	' ': true, '\f': true, '\n': true, '\r': true, '\t': true, '\v': true,
	'!': true, '"': true, '#': true, '$': true, '%': true, '&': true,
	'\'': true, '(': true, ')': true, '*': true, '+': true, ',': true,
	'-': true, '.': true, '/': true,
	':': true, ';': true, '<': true, '=': true, '>': true, '?': true, '@': true,
	'[': true, '\\': true, ']': true, '^': true, '_': true, '`': true,
	'{': true, '|': true, '}': true, '~': true,
	0x3000: true, 0x3001: true, 0x3002: true,
	0xFF01: true, 0xFF08: true, 0xFF09: true, 0xFF0C: true,
	0xFF1A: true, 0xFF1B: true, 0xFF1F: true,
}

// IsSeparator reports whether r belongs to the token separator set.
func IsSeparator(r rune) bool {
	return separators[r]
}

// Token is one emitted N-gram: the slice of code points and the 0-based
// code-point offset of its first character in the original input.
type Token struct {
	CodePoints []rune
	Position   int
}

// Tokenize extracts overlapping N-grams of width n from cp.
//
// The cursor advances one code point at a time. At each step separators are
// skipped, then up to n consecutive non-separator code points are taken as a
// token. position is a counter incremented on every step, including steps
// that only skip a separator, so it always reflects the code-point offset of
// the emitted token's first character.
//
// indexing selects which end of a run of non-separator code points gets
// truncated windows: true (indexing a document body) keeps every window,
// including the short ones a run produces right before it ends; false
// (tokenizing a query) discards them, keeping only full-width tokens. The
// short windows of a document body are therefore inserted into the store
// alongside its full-width N-grams, while a query is matched on its
// full-width N-grams only.
func Tokenize(cp []rune, n int, indexing bool) []Token {
	if n <= 0 {
		return nil
	}
	var out []Token
	pos := 0
	for i := 0; i < len(cp); {
		if IsSeparator(cp[i]) {
			i++
			pos++
			continue
		}
		j := i
		for j < len(cp) && j-i < n && !IsSeparator(cp[j]) {
			j++
		}
		length := j - i
		if length >= n || indexing {
			tok := make([]rune, length)
			copy(tok, cp[i:j])
			out = append(out, Token{CodePoints: tok, Position: pos})
		}
		i++
		pos++
	}
	return out
}
