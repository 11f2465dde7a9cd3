// Package codec implements the two interchangeable on-disk posting-list
// formats: a flat fixed-width "raw" layout and a bit-packed Golomb-Rice gap
// coding. Both are lossless and symmetric (decode(encode(x)) == x); the byte
// layout produced here is the wire/disk format and must stay bit-exact
// between writer and reader.
//
// The Golomb-Rice parameters and bit layout are grounded directly in
// original_source/src/postings.c's golomb_encoding/golomb_decoding; the
// MSB-first bit accumulator style is adapted from the teacher's gamma-code
// bit writer/reader (index/delta.go), generalized into the standalone
// bitio.Writer/Reader this package builds on.
package codec

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/hakonhall/wiser/bitio"
	"github.com/hakonhall/wiser/postings"
)

// Scheme selects a posting-list encoding. The chosen scheme is persisted in
// the store's settings table under key "compress_method".
type Scheme string

const (
	SchemeNone   Scheme = "none"
	SchemeGolomb Scheme = "golomb"
)

// DecodeError reports malformed encoded bytes or a length mismatch against
// an expected docs_count.
type DecodeError struct {
	Scheme Scheme
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decode error (%s): %s", e.Scheme, e.Reason)
}

const wordSize = 4 // bytes per little-endian 32-bit integer field

func putUint32(dst []byte, v int) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func getUint32(b []byte) int {
	return int(binary.LittleEndian.Uint32(b))
}

// Encode serializes list using scheme. indexedCount is the total number of
// indexed documents, needed by the golomb scheme to pick the document-id gap
// parameter.
func Encode(scheme Scheme, list postings.List, indexedCount int) ([]byte, error) {
	if err := validateAscending(list); err != nil {
		return nil, err
	}
	switch scheme {
	case SchemeNone:
		return encodeRaw(list), nil
	case SchemeGolomb:
		return encodeGolomb(list, indexedCount), nil
	default:
		return nil, fmt.Errorf("codec: unknown scheme %q", scheme)
	}
}

// validateAscending enforces spec.md §3 I2 ("strictly increasing by
// document_id") before a single gap or position is computed: the golomb
// scheme's gap arithmetic (encodeGolomb below) silently mis-encodes a
// non-ascending list instead of failing loudly, since a negative gap isn't
// range-checked by golombEncode. Callers (index.Buffer.Flush, which encodes
// the output of postings.Merge) are expected to already hand Encode an
// ascending list; this is a defense
// against that invariant being violated upstream, not a normal error path.
func validateAscending(list postings.List) error {
	for i := 1; i < len(list); i++ {
		if list[i].DocumentID <= list[i-1].DocumentID {
			return fmt.Errorf("codec: postings list not strictly ascending by document_id: %d then %d", list[i-1].DocumentID, list[i].DocumentID)
		}
	}
	for _, p := range list {
		for i := 1; i < len(p.Positions); i++ {
			if p.Positions[i] <= p.Positions[i-1] {
				return fmt.Errorf("codec: document %d positions not strictly ascending: %d then %d", p.DocumentID, p.Positions[i-1], p.Positions[i])
			}
		}
	}
	return nil
}

// Decode deserializes data using scheme. docsCount is the persisted
// document count for this token record; for the golomb scheme it is also
// checked against the docs_count recovered from the stream (I-level
// invariant: the number of postings recovered must equal the stored
// docs_count, or decoding fails).
func Decode(scheme Scheme, data []byte, docsCount int) (postings.List, error) {
	switch scheme {
	case SchemeNone:
		return decodeRaw(data)
	case SchemeGolomb:
		return decodeGolomb(data, docsCount)
	default:
		return nil, fmt.Errorf("codec: unknown scheme %q", scheme)
	}
}

// --- scheme "none": raw fixed-width ---

func encodeRaw(list postings.List) []byte {
	size := 0
	for _, p := range list {
		size += wordSize * (2 + len(p.Positions))
	}
	out := make([]byte, size)
	off := 0
	for _, p := range list {
		putUint32(out[off:], p.DocumentID)
		off += wordSize
		putUint32(out[off:], len(p.Positions))
		off += wordSize
		for _, pos := range p.Positions {
			putUint32(out[off:], pos)
			off += wordSize
		}
	}
	return out
}

func decodeRaw(data []byte) (postings.List, error) {
	var out postings.List
	off := 0
	for off < len(data) {
		if off+2*wordSize > len(data) {
			return nil, &DecodeError{SchemeNone, "truncated posting header"}
		}
		docID := getUint32(data[off:])
		off += wordSize
		count := getUint32(data[off:])
		off += wordSize
		if count < 0 || off+count*wordSize > len(data) {
			return nil, &DecodeError{SchemeNone, "truncated position list"}
		}
		positions := make([]int, count)
		for i := 0; i < count; i++ {
			positions[i] = getUint32(data[off:])
			off += wordSize
		}
		out = append(out, postings.Posting{DocumentID: docID, Positions: positions})
	}
	return out, nil
}

// --- scheme "golomb": Golomb-Rice with gap coding ---

// golombParams returns (b, t) for parameter m, per
// b = ceil(log2(m)), t = 2^b - m.
func golombParams(m int) (b, t int) {
	b = bits.Len(uint(m - 1))
	t = (1 << uint(b)) - m
	return b, t
}

// effectiveM substitutes 1 whenever the computed parameter would be
// non-positive (P7: "for m_doc == 0 the implementation substitutes m = 1").
func effectiveM(m int) int {
	if m <= 0 {
		return 1
	}
	return m
}

func golombEncode(w *bitio.Writer, m, b, t, n int) {
	for i := n / m; i > 0; i-- {
		w.AppendBit(1)
	}
	w.AppendBit(0)
	if m == 1 {
		return
	}
	r := n % m
	if r < t {
		for i := b - 2; i >= 0; i-- {
			w.AppendBit(uint(r>>uint(i)) & 1)
		}
	} else {
		r += t
		for i := b - 1; i >= 0; i-- {
			w.AppendBit(uint(r>>uint(i)) & 1)
		}
	}
}

func golombDecode(r *bitio.Reader, m, b, t int) (int, error) {
	n := 0
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			break
		}
		n += m
	}
	if m == 1 {
		return n, nil
	}
	rem := 0
	for i := 0; i < b-1; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		rem = (rem << 1) | int(bit)
	}
	if rem >= t {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		rem = (rem<<1 | int(bit)) - t
	}
	n += rem
	return n, nil
}

func encodeGolomb(list postings.List, indexedCount int) []byte {
	docsCount := len(list)
	w := bitio.NewWriter()
	header := make([]byte, 2*wordSize)
	putUint32(header[0:], docsCount)
	mDoc := 0
	if docsCount > 0 {
		mDoc = effectiveM(indexedCount / docsCount)
	} else {
		mDoc = 1
	}
	putUint32(header[wordSize:], mDoc)
	w.AppendBytes(header)

	if docsCount > 0 {
		b, t := golombParams(mDoc)
		prevDoc := 0
		for _, p := range list {
			gap := p.DocumentID - prevDoc - 1
			golombEncode(w, mDoc, b, t, gap)
			prevDoc = p.DocumentID
		}
		w.AppendByteAlign()
	}

	for _, p := range list {
		countField := make([]byte, wordSize)
		putUint32(countField, len(p.Positions))
		w.AppendBytes(countField)

		mPos := 1
		if len(p.Positions) > 0 {
			maxPos := p.Positions[len(p.Positions)-1]
			mPos = effectiveM((maxPos + 1) / len(p.Positions))
		}
		mField := make([]byte, wordSize)
		putUint32(mField, mPos)
		w.AppendBytes(mField)

		bp, tp := golombParams(mPos)
		prevPos := -1
		for _, pos := range p.Positions {
			gap := pos - prevPos - 1
			golombEncode(w, mPos, bp, tp, gap)
			prevPos = pos
		}
		w.AppendByteAlign()
	}

	return w.Bytes()
}

func decodeGolomb(data []byte, expectedDocsCount int) (postings.List, error) {
	r := bitio.NewReader(data)
	header, err := r.ReadBytes(2 * wordSize)
	if err != nil {
		return nil, &DecodeError{SchemeGolomb, "truncated header"}
	}
	docsCount := getUint32(header[0:])
	mDoc := getUint32(header[wordSize:])
	if docsCount < 0 {
		return nil, &DecodeError{SchemeGolomb, "negative docs_count"}
	}

	docIDs := make([]int, docsCount)
	if docsCount > 0 {
		if mDoc <= 0 {
			return nil, &DecodeError{SchemeGolomb, "non-positive m_doc"}
		}
		b, t := golombParams(mDoc)
		prev := 0
		for i := 0; i < docsCount; i++ {
			gap, err := golombDecode(r, mDoc, b, t)
			if err != nil {
				return nil, &DecodeError{SchemeGolomb, "truncated document gap stream"}
			}
			prev += gap + 1
			docIDs[i] = prev
		}
		r.ByteAlign()
	}

	out := make(postings.List, docsCount)
	for i := 0; i < docsCount; i++ {
		countField, err := r.ReadBytes(wordSize)
		if err != nil {
			return nil, &DecodeError{SchemeGolomb, "truncated positions_count"}
		}
		count := getUint32(countField)
		if count < 0 {
			return nil, &DecodeError{SchemeGolomb, "negative positions_count"}
		}
		mField, err := r.ReadBytes(wordSize)
		if err != nil {
			return nil, &DecodeError{SchemeGolomb, "truncated m_pos"}
		}
		mPos := getUint32(mField)
		if mPos <= 0 {
			return nil, &DecodeError{SchemeGolomb, "non-positive m_pos"}
		}
		bp, tp := golombParams(mPos)
		positions := make([]int, count)
		prev := -1
		for j := 0; j < count; j++ {
			gap, err := golombDecode(r, mPos, bp, tp)
			if err != nil {
				return nil, &DecodeError{SchemeGolomb, "truncated position gap stream"}
			}
			prev += gap + 1
			positions[j] = prev
		}
		r.ByteAlign()
		out[i] = postings.Posting{DocumentID: docIDs[i], Positions: positions}
	}

	if expectedDocsCount >= 0 && docsCount != expectedDocsCount {
		return nil, &DecodeError{SchemeGolomb, fmt.Sprintf("docs_count mismatch: stream has %d, expected %d", docsCount, expectedDocsCount)}
	}
	return out, nil
}
