// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package merger folds several seqsets into one merged seqset, and
// migrates readmaps built against an input into one that refers to the
// merged result (spec §4.7).
package merger

import (
	"github.com/biogo/store/llrb"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/mergemap"
	"github.com/grailbio/biograph/seqset"
)

// flatten materializes an input seqset's entries in ascending id order.
// Seqset ids are already assigned in lexicographic sequence order (spec
// §4.4.1's FM-index construction), so this is simply a linear walk rather
// than a separate sort — the one-pass spiral-file "flat" part of spec
// §4.7.1 exists in the original to let construction proceed without
// holding every input in memory at once; this repo accepts that cost in
// exchange for a much smaller merge implementation (see DESIGN.md).
func flatten(ss *seqset.Seqset) ([]dna.Sequence, error) {
	n := ss.Size()
	out := make([]dna.Sequence, n)
	for i := 0; i < n; i++ {
		r, err := ss.EntryRange(uint64(i))
		if err != nil {
			return nil, err
		}
		seq, err := r.Sequence(-1)
		if err != nil {
			return nil, err
		}
		out[i] = seq
	}
	return out, nil
}

// streamCursor is one input's position in the K-way merge, the same
// priority-queue idiom seqset.Range.FindOverlapReadsFair and
// cmd/bio-bam-sort's sorter use over an llrb.Tree (there ordered for a
// max-heap; here, natural ascending order makes DeleteMin() pull the
// lexicographically smallest current entry across every input).
type streamCursor struct {
	entries []dna.Sequence
	pos     int
	input   int
}

func (c *streamCursor) Compare(o llrb.Comparable) int {
	rhs := o.(*streamCursor)
	a, b := c.entries[c.pos], rhs.entries[rhs.pos]
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	case c.input != rhs.input:
		return c.input - rhs.input
	default:
		return 0
	}
}

// Merge runs spec §4.7.2/§4.7.3's streaming merge over inputs, producing
// the merged seqset and one Mergemap per input (in the same order as
// inputs) recording which merged entries each input contributed.
func Merge(ctx biograph.Context, inputs []*seqset.Seqset) (*seqset.Seqset, []*mergemap.Mergemap, error) {
	n := len(inputs)
	flats := make([][]dna.Sequence, n)
	ctx.Report("merge:flatten", 0, int64(n))
	for i, ss := range inputs {
		f, err := flatten(ss)
		if err != nil {
			return nil, nil, err
		}
		flats[i] = f
	}
	ctx.Report("merge:flatten", int64(n), int64(n))

	tree := &llrb.Tree{}
	for i, entries := range flats {
		if len(entries) > 0 {
			tree.Insert(&streamCursor{entries: entries, input: i})
		}
	}

	var mergedEntries []dna.Sequence
	var contributors [][]bool

	var pending dna.Sequence
	var pendingContrib []bool
	havePending := false
	flush := func() {
		if havePending {
			mergedEntries = append(mergedEntries, pending)
			contributors = append(contributors, pendingContrib)
		}
	}

	for tree.Len() > 0 {
		top := tree.DeleteMin().(*streamCursor)
		seq := top.entries[top.pos]
		input := top.input
		top.pos++
		if top.pos < len(top.entries) {
			tree.Insert(top)
		}
		if ctx.Cancelled() {
			return nil, nil, kinderr.E(kinderr.Cancelled, "merger: cancelled during merge")
		}

		switch {
		case !havePending:
			pending, pendingContrib, havePending = seq, make([]bool, n), true
			pendingContrib[input] = true
		case seq.Equal(pending):
			pendingContrib[input] = true
		case seq.HasPrefix(pending):
			// seq strictly extends pending: only the longer sequence
			// survives as a merged entry (spec §4.7.2's prefix rule), but
			// every input along the chain still gets credit.
			pendingContrib[input] = true
			pending = seq
		default:
			flush()
			pending, pendingContrib, havePending = seq, make([]bool, n), true
			pendingContrib[input] = true
		}
	}
	flush()

	maxLen := 0
	for _, e := range mergedEntries {
		if len(e) > maxLen {
			maxLen = len(e)
		}
	}
	merged := seqset.New(len(mergedEntries), uint(maxLen))
	if err := populateMerged(merged, mergedEntries); err != nil {
		return nil, nil, err
	}

	mergedUUID := merged.UUID()
	builders := make([]*mergemap.Builder, n)
	for i, ss := range inputs {
		builders[i] = mergemap.NewBuilder(ss.UUID(), mergedUUID, len(mergedEntries))
	}
	for idx, contrib := range contributors {
		for i, c := range contrib {
			if c {
				builders[i].Set(idx)
			}
		}
	}
	mergemaps := make([]*mergemap.Mergemap, n)
	for i, b := range builders {
		mergemaps[i] = b.Finish()
	}
	return merged, mergemaps, nil
}

// populateMerged fills in a freshly allocated merged seqset from its
// already sorted, prefix-collapsed entry list — the same size/shared/
// prev_a pass seqset/build's populateSeqset runs, restated here since
// that helper is private to its own package.
func populateMerged(ss *seqset.Seqset, entries []dna.Sequence) error {
	for i, e := range entries {
		ss.SetEntrySize(i, uint(len(e)))
		shared := 0
		if i > 0 {
			shared = dna.SharedPrefixLen(entries[i-1], e)
		}
		ss.SetShared(i, uint(shared))
	}
	extended := make(dna.Sequence, 0, 64)
	for b := dna.Base(0); b < 4; b++ {
		for i, e := range entries {
			extended = extended[:0]
			extended = append(extended, byte(b))
			extended = append(extended, e...)
			if idx := searchExact(entries, extended); idx >= 0 {
				ss.SetBit(i, b)
			}
		}
	}
	return ss.Finalize()
}

// searchExact returns the index of an exact match for target within
// sorted (ascending, prefix-unique), or -1.
func searchExact(sorted []dna.Sequence, target dna.Sequence) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid].Less(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(sorted) && sorted[lo].Equal(target) {
		return lo
	}
	return -1
}
