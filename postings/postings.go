// Package postings defines the Posting and PostingList types shared by the
// codec, in-memory index, and query engine, and implements the ordered
// two-cursor merge (C6) used when flushing a buffered list against an
// already-persisted list.
package postings

// Posting records the positions where one token occurs inside one document.
type Posting struct {
	DocumentID int
	Positions  []int // strictly increasing, code-point offsets
}

// PositionsCount is the number of positions recorded for this posting.
func (p Posting) PositionsCount() int {
	return len(p.Positions)
}

// List is an ordered sequence of Postings, strictly increasing by
// DocumentID, with no two entries sharing a DocumentID.
type List []Posting

// Merge combines two ordered posting lists into one ordered list.
//
// Preconditions: both a and b are individually sorted ascending by
// DocumentID, and their sets of DocumentIDs are disjoint (spec.md guarantees
// this by construction: a buffered list only ever holds postings for
// documents newer than anything already persisted for that token). The
// result is produced by a two-cursor walk that splices the smaller head
// from either input into the output, the same shape as the teacher's
// postMapReader/postDataWriter merge walk generalized away from docid
// renumbering (this spec never renumbers document ids).
func Merge(a, b List) List {
	out := make(List, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocumentID < b[j].DocumentID:
			out = append(out, a[i])
			i++
		case b[j].DocumentID < a[i].DocumentID:
			out = append(out, b[j])
			j++
		default:
			panic("postings: Merge given overlapping document ids")
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
