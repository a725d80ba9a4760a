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

package build

import (
	"github.com/grailbio/biograph/internal/dna"
)

// ReferenceIndex is an injected exact-match search structure over a
// reference sequence (spec §4.6.1's "reference BWT"). Constructing one is
// out of scope here (see cmd/biograph-make-ref's stub); a caller building
// against grailbio/bio's reference index (or any other DNA corpus) can
// satisfy this interface with a thin adapter.
type ReferenceIndex interface {
	// Find returns the forward-orientation start offset of an exact
	// occurrence of seq, or ok=false if none exists.
	Find(seq dna.Sequence) (start int64, ok bool)
}

// Record is one input read or read pair. Mate2 is nil for an unpaired
// record.
type Record struct {
	Mate1 dna.Sequence
	Mate2 dna.Sequence
}

// loadRepo implements the two-pass load of spec §4.6.1: reference-matched
// reads become flyweights pointing into refSeq with no copy; everything
// else is appended to a non-reference region sized by the first pass.
// slots holds one flyweight per read slot, in record order: (mate1,
// mate2) per record, mate2 empty if the record is unpaired.
func loadRepo(records []Record, ref ReferenceIndex, refSeq dna.Sequence) (repo dna.Sequence, slots []flyweight, err error) {
	type pendingNonRef struct {
		slot int
		seq  dna.Sequence
	}

	slots = make([]flyweight, 2*len(records))
	var nonRef []pendingNonRef
	var nonRefLen int64

	for i, rec := range records {
		mate1Slot, mate2Slot := 2*i, 2*i+1
		if len(rec.Mate1) > maxFlyweightLen {
			return nil, nil, errTooLong(len(rec.Mate1))
		}
		if f, ok := matchReference(rec.Mate1, ref); ok {
			slots[mate1Slot] = f
		} else {
			nonRef = append(nonRef, pendingNonRef{mate1Slot, rec.Mate1})
			nonRefLen += int64(len(rec.Mate1))
		}
		if rec.Mate2 == nil {
			slots[mate2Slot] = flyweight{empty: true}
			continue
		}
		if len(rec.Mate2) > maxFlyweightLen {
			return nil, nil, errTooLong(len(rec.Mate2))
		}
		if f, ok := matchReference(rec.Mate2, ref); ok {
			slots[mate2Slot] = f
		} else {
			nonRef = append(nonRef, pendingNonRef{mate2Slot, rec.Mate2})
			nonRefLen += int64(len(rec.Mate2))
		}
	}

	nonRefBuf := make(dna.Sequence, 0, nonRefLen)
	base := int64(len(refSeq))
	for _, nr := range nonRef {
		start := base + int64(len(nonRefBuf))
		nonRefBuf = append(nonRefBuf, nr.seq...)
		slots[nr.slot] = flyweight{start: start, length: uint16(len(nr.seq)), nonRef: true}
	}

	repo = make(dna.Sequence, 0, int64(len(refSeq))+nonRefLen)
	repo = append(repo, refSeq...)
	repo = append(repo, nonRefBuf...)
	return repo, slots, nil
}

// matchReference tries both orientations of seq against ref, returning a
// flyweight anchored into the reference region on a hit.
func matchReference(seq dna.Sequence, ref ReferenceIndex) (flyweight, bool) {
	if ref == nil {
		return flyweight{}, false
	}
	if start, ok := ref.Find(seq); ok {
		return flyweight{start: start, length: uint16(len(seq))}, true
	}
	rc := seq.RevComp()
	if start, ok := ref.Find(rc); ok {
		return flyweight{start: start + int64(len(seq)) - 1, length: uint16(len(seq)), flipped: true}, true
	}
	return flyweight{}, false
}

// originals returns the seed multiset P of spec §4.6.2: both orientations
// of every non-empty read slot.
func originals(slots []flyweight) []flyweight {
	out := make([]flyweight, 0, 2*len(slots))
	for _, f := range slots {
		if f.empty {
			continue
		}
		out = append(out, f, f.revComp())
	}
	return out
}
