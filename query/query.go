// Package query implements the query engine (C9): query tokenization,
// posting-list intersection with a skip-ahead policy, optional phrase
// verification, and TF-IDF scoring. It is grounded directly in
// original_source/src/wiser/search.c (search_docs, search_phrase,
// calc_tf_idf), which spec.md §4.9 is a faithful translation of; the
// two-cursor intersection-walk shape also mirrors the teacher's trigram
// postingList/queryAnd machinery in regexp/match.go.
package query

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hakonhall/wiser/codec"
	"github.com/hakonhall/wiser/postings"
	"github.com/hakonhall/wiser/store"
	"github.com/hakonhall/wiser/textcodec"
	"github.com/hakonhall/wiser/tokenizer"
)

// ErrTooShort is spec.md §4.9 step 2's "too short query" InvalidInput error:
// the query has fewer code points than the configured N-gram width.
var ErrTooShort = errors.New("query: too short query")

// Result is one ranked document.
type Result struct {
	DocumentID int
	Score      float64
}

// Engine runs queries against s using N-gram width n, codec scheme, and
// (optionally) phrase verification.
type Engine struct {
	Store              store.Store
	N                  int
	Scheme             codec.Scheme
	EnablePhraseSearch bool
}

// queryToken is one resolved query token, deduplicated by store id: its
// document frequency and every offset at which the n-gram appeared in the
// query string (a query can contain the same n-gram more than once, e.g.
// "abab" contains "ab" twice; each occurrence gets its own phrase-cursor
// base, but the token contributes to intersection and scoring only once).
type queryToken struct {
	tokenID     int
	docsCount   int
	baseOffsets []int
	list        postings.List // fetched from the store for this token
}

// Run tokenizes query, fetches each token's posting list, intersects them,
// optionally verifies phrase adjacency, scores, and returns results ordered
// by descending score (ties broken by ascending document id, spec.md §4.9
// step 8).
func (e *Engine) Run(query string) ([]Result, error) {
	cp := textcodec.Decode([]byte(query))
	if len(cp) < e.N {
		return nil, ErrTooShort
	}

	toks := tokenizer.Tokenize(cp, e.N, false)

	indexedCount, err := e.Store.DocumentCount()
	if err != nil {
		return nil, fmt.Errorf("query: document count: %w", err)
	}

	byToken := make(map[int]*queryToken, len(toks))
	var order []int
	for _, t := range toks {
		tokenID, docsCount, err := e.Store.GetTokenID(string(t.CodePoints), false)
		if err != nil {
			return nil, fmt.Errorf("query: resolve token %q: %w", string(t.CodePoints), err)
		}
		if tokenID == 0 {
			// Early exit (spec.md §4.9 step 2): any unseen token means
			// no document can possibly match all of them.
			return nil, nil
		}
		qt, ok := byToken[tokenID]
		if !ok {
			qt = &queryToken{tokenID: tokenID, docsCount: docsCount}
			if err := store.Retry(func() error {
				persisted, encoded, err := e.Store.GetPostings(tokenID)
				if err != nil {
					return err
				}
				list, err := codec.Decode(e.Scheme, encoded, persisted)
				if err != nil {
					return fmt.Errorf("query: decode postings for token %q: %w", string(t.CodePoints), err)
				}
				qt.list = list
				return nil
			}); err != nil {
				return nil, err
			}
			if len(qt.list) == 0 {
				// Token exists but its posting list is (unexpectedly) empty.
				return nil, nil
			}
			byToken[tokenID] = qt
			order = append(order, tokenID)
		}
		qt.baseOffsets = append(qt.baseOffsets, t.Position)
	}

	qtoks := make([]*queryToken, len(order))
	for i, id := range order {
		qtoks[i] = byToken[id]
	}

	// Sort tokens by ascending document frequency (fewest documents
	// first); the first one is the driver (spec.md §4.9 step 4).
	sort.SliceStable(qtoks, func(i, j int) bool {
		return qtoks[i].docsCount < qtoks[j].docsCount
	})

	candidates := e.intersect(qtoks)

	scores := make(map[int]float64, len(candidates))
	for docID, cursors := range candidates {
		if e.EnablePhraseSearch {
			if !phraseMatches(qtoks, cursors) {
				continue
			}
		}
		scores[docID] = score(qtoks, cursors, indexedCount)
	}

	results := make([]Result, 0, len(scores))
	for docID, s := range scores {
		results = append(results, Result{DocumentID: docID, Score: s})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	return results, nil
}

// cursorSet maps each query token to the Posting it landed on for one
// candidate document, so scoring and phrase verification can read each
// token's matched position list without re-walking the lists.
type cursorSet map[*queryToken]postings.Posting

// intersect walks the driver's (qtoks[0]'s) postings; for each candidate
// document id, every other token's list must also contain that id (spec.md
// §4.9 step 5). It returns, for each document id that survives
// intersection, the matched Posting from every token.
func (e *Engine) intersect(qtoks []*queryToken) map[int]cursorSet {
	out := make(map[int]cursorSet)
	if len(qtoks) == 0 {
		return out
	}

	cursors := make([]int, len(qtoks)) // cursor[i] = next unread index into qtoks[i].list

	driver := qtoks[0]
	for cursors[0] < len(driver.list) {
		d := driver.list[cursors[0]].DocumentID

		nextDocID := 0
		aligned := true
		for i := 1; i < len(qtoks); i++ {
			list := qtoks[i].list
			for cursors[i] < len(list) && list[cursors[i]].DocumentID < d {
				cursors[i]++
			}
			if cursors[i] >= len(list) {
				// This cursor is exhausted; intersection is over.
				return out
			}
			if list[cursors[i]].DocumentID != d {
				if nextDocID == 0 || list[cursors[i]].DocumentID < nextDocID {
					nextDocID = list[cursors[i]].DocumentID
				}
				aligned = false
			}
		}

		if aligned {
			set := make(cursorSet, len(qtoks))
			for i, qt := range qtoks {
				// Invariant (spec.md §9 Open Question 2): every cursor
				// must actually point at d before we read its
				// posting for scoring/phrase verification.
				if qt.list[cursors[i]].DocumentID != d {
					panic("query: cursor misalignment before scoring")
				}
				set[qt] = qt.list[cursors[i]]
			}
			out[d] = set
			cursors[0]++
			continue
		}

		// Resume the driver from the smallest document id >= nextDocID.
		for cursors[0] < len(driver.list) && driver.list[cursors[0]].DocumentID < nextDocID {
			cursors[0]++
		}
	}
	return out
}

// phraseMatches runs phrase verification (spec.md §4.9 step 6): for each
// (token, query-offset) pair, walk a cursor over that token's matched
// posting's positions, anchored at base = query offset. A token that occurs
// more than once in the query contributes one cursor per occurrence, each
// with its own base. Token A (the occurrence with the smallest base, not
// necessarily the driver) leads the walk; every other cursor must be able to
// reach a position with the same document-relative offset (p - base) as A's.
func phraseMatches(qtoks []*queryToken, cursors cursorSet) bool {
	type cursor struct {
		positions []int
		base      int
		idx       int
	}
	var walkers []*cursor
	for _, qt := range qtoks {
		positions := cursors[qt].Positions
		for _, base := range qt.baseOffsets {
			walkers = append(walkers, &cursor{positions: positions, base: base})
		}
	}
	// Token A is the occurrence with the smallest base; every base offset
	// in a query is unique, so this ordering is unambiguous.
	sort.Slice(walkers, func(i, j int) bool { return walkers[i].base < walkers[j].base })

	a := walkers[0]
	for a.idx < len(a.positions) {
		relA := a.positions[a.idx] - a.base
		nextRel := relA
		matched := true
		for i := 1; i < len(walkers); i++ {
			w := walkers[i]
			for w.idx < len(w.positions) && w.positions[w.idx]-w.base < relA {
				w.idx++
			}
			if w.idx >= len(w.positions) {
				return false
			}
			rel := w.positions[w.idx] - w.base
			if rel != relA {
				matched = false
				if nextRel == relA || rel < nextRel {
					nextRel = rel
				}
				break
			}
		}
		if matched {
			return true
		}
		if nextRel > relA {
			for a.idx < len(a.positions) && a.positions[a.idx]-a.base < nextRel {
				a.idx++
			}
		} else {
			a.idx++
		}
	}
	return false
}

// score implements spec.md §4.9 step 7:
// score(d) = sum over tokens of positions_count_in_d * log2(indexedCount / docsCountToken).
func score(qtoks []*queryToken, cursors cursorSet, indexedCount int) float64 {
	var total float64
	for _, qt := range qtoks {
		posting := cursors[qt]
		idf := math.Log2(float64(indexedCount) / float64(qt.docsCount))
		total += float64(len(posting.Positions)) * idf
	}
	return total
}
