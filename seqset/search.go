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

package seqset

import (
	"github.com/biogo/store/llrb"

	"github.com/grailbio/biograph/internal/dna"
)

// Bitmap restricts the higher-level search primitives (spec §4.4.6) to a
// subset of entries, e.g. "is this seqset id a read".
type Bitmap interface {
	Test(id uint64) bool
}

// AllTrue is a Bitmap that admits every entry.
type AllTrue struct{}

// Test always returns true.
func (AllTrue) Test(uint64) bool { return true }

// FindMaximalPrefixReads depth-first enumerates maximal entries reachable
// from r by successive PushFrontDrop(*, minOverlap+k), collecting those
// passing bitmap.Test(begin). ok is false iff max was hit before the walk
// finished (spec §4.4.6).
func (r Range) FindMaximalPrefixReads(max int, minOverlap uint, bitmap Bitmap) (results []Range, ok bool) {
	ok = true
	r.findMaximalPrefixReads(&results, &ok, max, minOverlap, bitmap)
	return results, ok
}

func (r Range) findMaximalPrefixReads(results *[]Range, ok *bool, max int, minOverlap uint, bitmap Bitmap) bool {
	if bitmap.Test(r.begin) && r.IsMaximal() {
		if len(*results) < max {
			*results = append(*results, r)
		} else {
			*ok = false
			return false
		}
	}
	for b := dna.Base(0); b < 4; b++ {
		next, err := r.PushFrontDrop(b, minOverlap)
		if err != nil || !next.Valid() {
			continue
		}
		if !next.findMaximalPrefixReads(results, ok, max, minOverlap+1, bitmap) {
			return false
		}
	}
	return true
}

// FindOverlapReads is FindMaximalPrefixReads, but returns a map from
// seqset id to the best (largest) overlap found for it rather than a
// flat list (spec §4.4.6).
func (r Range) FindOverlapReads(max int, minOverlap uint, bitmap Bitmap) (results map[uint64]uint, ok bool) {
	results = make(map[uint64]uint)
	ok = true
	r.findOverlapReads(results, &ok, max, minOverlap, bitmap, 0)
	return results, ok
}

func (r Range) findOverlapReads(results map[uint64]uint, ok *bool, max int, minOverlap uint, bitmap Bitmap, added uint) bool {
	if added != 0 && bitmap.Test(r.begin) && r.IsMaximal() {
		if len(results) < max {
			results[r.begin] = uint(r.seqSize) - added
			return true
		}
		*ok = false
		return false
	}
	for b := dna.Base(0); b < 4; b++ {
		next, err := r.PushFrontDrop(b, minOverlap)
		if err != nil || !next.Valid() {
			continue
		}
		if !next.findOverlapReads(results, ok, max, minOverlap+1, bitmap, added+1) {
			return false
		}
	}
	return true
}

// OverlapResult is one hit from FindOverlapReadsFair.
type OverlapResult struct {
	SeqsetID uint64
	Overlap  uint
}

// overlapQueueEntry orders by remaining overlap so the llrb tree below
// acts as a max-heap (spec §4.4.6: "a 'fair' variant uses a max-heap
// keyed by remaining overlap to emit results in nonincreasing overlap
// order"), the same priority-queue idiom the merge pipeline's K-way
// merge uses over flat seqset streams.
type overlapQueueEntry struct {
	r       Range
	overlap uint
	added   uint
	seq     uint64 // tiebreaker so equal-overlap entries remain distinct in the tree
}

func (e *overlapQueueEntry) Compare(o llrb.Comparable) int {
	rhs := o.(*overlapQueueEntry)
	switch {
	case e.overlap < rhs.overlap:
		return -1
	case e.overlap > rhs.overlap:
		return 1
	case e.seq < rhs.seq:
		return -1
	case e.seq > rhs.seq:
		return 1
	default:
		return 0
	}
}

// FindOverlapReadsFair is FindOverlapReads's best-first variant: results
// are emitted in nonincreasing overlap order by always expanding the
// highest-overlap frontier entry next (spec §4.4.6). ok reports whether
// every match was collected; it is false when maxOverlaps truncated the
// search, matching FindOverlapReads and FindMaximalPrefixReads's
// hard-cap signal.
func (r Range) FindOverlapReadsFair(maxOverlaps int, minOverlap uint, bitmap Bitmap) (results []OverlapResult, ok bool) {
	ok = true
	tree := &llrb.Tree{}
	var seq uint64
	push := func(e *overlapQueueEntry) {
		e.seq = seq
		seq++
		tree.Insert(e)
	}
	push(&overlapQueueEntry{r: r, overlap: uint(r.seqSize), added: 0})

	for tree.Len() > 0 {
		top := tree.DeleteMax().(*overlapQueueEntry)
		if top.overlap < minOverlap {
			return results, ok
		}
		if top.added != 0 && bitmap.Test(top.r.begin) && top.r.IsMaximal() {
			if len(results) >= maxOverlaps {
				return results, false
			}
			results = append(results, OverlapResult{SeqsetID: top.r.begin, Overlap: top.overlap})
			continue
		}
		for b := dna.Base(0); b < 4; b++ {
			next, err := top.r.PushFrontDrop(b, top.added+minOverlap)
			if err != nil || !next.Valid() {
				continue
			}
			push(&overlapQueueEntry{r: next, overlap: uint(next.seqSize) - (top.added + 1), added: top.added + 1})
		}
	}
	return results, ok
}
