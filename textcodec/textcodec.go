// Package textcodec converts between UTF-8 byte strings and sequences of
// Unicode code points. Both document bodies and query strings pass through
// it so that tokenization always sees the same code point representation.
package textcodec

import (
	"fmt"
	"unicode/utf8"
)

// MaxCodePoint is the highest code point this system will index. The
// original wiser implementation stores code points in a 21-bit field;
// anything above it is treated as a fatal input error rather than silently
// truncated.
const MaxCodePoint = 0x1FFFFF

// Decode converts UTF-8 bytes into a sequence of code points. It panics on
// malformed lead bytes or on a code point above MaxCodePoint: both are
// programmer errors in this system's contract (the producer of body/query
// text is assumed to hand over conforming UTF-8), not conditions a caller
// is expected to recover from.
func Decode(b []byte) []rune {
	out := make([]rune, 0, utf8.RuneCount(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			panic(fmt.Sprintf("textcodec: malformed UTF-8 byte %#x", b[0]))
		}
		if r > MaxCodePoint {
			panic(fmt.Sprintf("textcodec: code point %#x exceeds max %#x", r, MaxCodePoint))
		}
		out = append(out, r)
		b = b[size:]
	}
	return out
}

// Encode converts a sequence of code points back into UTF-8 bytes.
func Encode(cp []rune) []byte {
	out := make([]byte, 0, len(cp))
	var buf [utf8.UTFMax]byte
	for _, r := range cp {
		n := utf8.EncodeRune(buf[:], r)
		out = append(out, buf[:n]...)
	}
	return out
}

// Valid reports whether b is well-formed UTF-8 with every code point at or
// below MaxCodePoint. Callers that read a corpus from an untrusted source
// can use this to reject bad input before it reaches Decode's fatal path.
func Valid(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return false
		}
		if r > MaxCodePoint {
			return false
		}
		b = b[size:]
	}
	return true
}
