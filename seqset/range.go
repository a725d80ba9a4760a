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
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
)

// Range is a triple (begin, end, seqSize) denoting the contiguous id
// interval [begin, end) whose entries all share seqSize bases as a common
// prefix (spec §3.3). The zero Range is invalid; Seqset.Begin constructs
// the range that matches everything.
type Range struct {
	ss      *Seqset
	seqSize uint32
	begin   uint64
	end     uint64
}

// Valid reports whether begin < end.
func (r Range) Valid() bool { return r.begin < r.end }

// Size returns the number of bases the range's common prefix spans.
func (r Range) Size() uint32 { return r.seqSize }

// Begin returns the first id in the range.
func (r Range) Begin() uint64 { return r.begin }

// End returns one past the last id in the range.
func (r Range) End() uint64 { return r.end }

// Seqset returns the owning Seqset.
func (r Range) Seqset() *Seqset { return r.ss }

// Shared returns how many bases this range's first entry shares with the
// previous entry of the same size; r must be valid.
func (r Range) Shared() uint {
	return r.ss.EntryShared(r.begin)
}

// pushFrontUnchecked implements spec §4.4.2 without validating r.Valid();
// used internally by Find/FindNear, which push repeatedly starting from
// an always-valid empty_range and only need to stop once a push produces
// an invalid range.
func (r Range) pushFrontUnchecked(b dna.Base) Range {
	subBegin := r.ss.prev[b].Rank1(int(r.begin))
	subEnd := r.ss.prev[b].Rank1(int(r.end))
	fixed := r.ss.fixed[b]
	newBegin := fixed + uint64(subBegin)
	newEnd := fixed + uint64(subEnd)
	if newBegin < newEnd && r.ss.EntrySize(newBegin) < uint(r.seqSize+1) {
		newBegin++
	}
	return Range{ss: r.ss, seqSize: r.seqSize + 1, begin: newBegin, end: newEnd}
}

// PushFront extends the range by pushing base b onto the front of its
// sequence (spec §4.4.2). It is a programming error to call PushFront on
// an invalid range.
func (r Range) PushFront(b dna.Base) (Range, error) {
	if !r.Valid() {
		return Range{}, kinderr.E(kinderr.IO, "seqset: PushFront on an invalid range")
	}
	return r.pushFrontUnchecked(b), nil
}

// PushFrontDrop pushes b, widening the range (dropping leading context)
// as needed to keep it non-empty, down to a floor of minCtx bases of
// context (spec §4.4.3). It returns an invalid range if minCtx cannot be
// reached.
func (r Range) PushFrontDrop(b dna.Base, minCtx uint) (Range, error) {
	if !r.Valid() {
		return Range{}, kinderr.E(kinderr.IO, "seqset: PushFrontDrop on an invalid range")
	}
	ss := r.ss
	fixed := ss.fixed[b]
	oBegin, oEnd, oContext := r.begin, r.end, uint(r.seqSize)
	if oContext < minCtx {
		return Range{ss: ss}, nil
	}
	subBegin := ss.prev[b].Rank1(int(oBegin))
	subEnd := ss.prev[b].Rank1(int(oEnd))

	for subBegin == subEnd ||
		(subBegin+1 == subEnd && ss.EntrySize(fixed+uint64(subBegin)) < oContext+1) {
		drop := ss.EntryShared(oBegin)
		if oEnd != uint64(ss.n) {
			if s := ss.EntryShared(oEnd); s > drop {
				drop = s
			}
		}
		if subBegin != subEnd {
			if s := ss.EntrySize(fixed+uint64(subBegin)) - 1; s > drop {
				drop = s
			}
		}
		if drop < minCtx {
			return Range{ss: ss}, nil
		}

		lt := ss.initSharedLTSearch()
		updateBegin, updateEnd := false, false
		if oBegin > 0 && ss.EntryShared(oBegin) >= drop {
			dropBegin := lt.PrevLess(int(oBegin), int32(drop))
			oBegin = uint64(dropBegin)
			updateBegin = true
		}
		if oEnd < uint64(ss.n) && ss.EntryShared(oEnd) >= drop {
			dropEnd := lt.NextLess(int(oEnd), int32(drop))
			oEnd = uint64(dropEnd)
			updateEnd = true
		}
		if updateBegin {
			subBegin = ss.prev[b].Rank1(int(oBegin))
		}
		if updateEnd {
			subEnd = ss.prev[b].Rank1(int(oEnd))
		}
		oContext = drop
	}

	newBegin := fixed + uint64(subBegin)
	newEnd := fixed + uint64(subEnd)
	if newBegin < newEnd && ss.EntrySize(newBegin) < oContext+1 {
		newBegin++
	}
	return Range{ss: ss, seqSize: uint32(oContext + 1), begin: newBegin, end: newEnd}, nil
}

// Front returns the first base of the range's sequence; r must be valid
// and non-empty.
func (r Range) Front() (dna.Base, error) {
	if !r.Valid() {
		return 0, kinderr.E(kinderr.IO, "seqset: Front on an invalid range")
	}
	if r.seqSize == 0 {
		return 0, kinderr.E(kinderr.IO, "seqset: Front on an empty range")
	}
	return r.ss.EntryGetBase(r.begin), nil
}

// PopFront removes the first base of the range's sequence, widening begin
// and end to cover every entry that still shares the (now one-shorter)
// prefix (spec §4.4.4).
func (r Range) PopFront() (Range, error) {
	if !r.Valid() {
		return Range{}, kinderr.E(kinderr.IO, "seqset: PopFront on an invalid range")
	}
	if r.seqSize == 0 {
		return Range{}, kinderr.E(kinderr.IO, "seqset: PopFront on an empty range")
	}
	newContext := r.seqSize - 1
	newBegin := r.ss.EntryPopFront(r.begin)
	newEnd := newBegin + 1
	for newBegin > 0 && r.ss.EntryShared(newBegin) >= uint(newContext) {
		newBegin--
	}
	for newEnd < uint64(r.ss.n) && r.ss.EntryShared(newEnd) >= uint(newContext) {
		newEnd++
	}
	return Range{ss: r.ss, seqSize: newContext, begin: newBegin, end: newEnd}, nil
}

// PopBack drops the last count bases of the range's sequence (spec
// §4.4.4).
func (r Range) PopBack(count uint32) (Range, error) {
	if !r.Valid() {
		return Range{}, kinderr.E(kinderr.IO, "seqset: PopBack on an invalid range")
	}
	if uint32(r.seqSize) < count {
		return Range{}, kinderr.Errorf(kinderr.IO, "seqset: PopBack(%d) from a range of size %d", count, r.seqSize)
	}
	newContext := r.seqSize - count
	newBegin, newEnd := r.begin, r.end
	for newBegin > 0 && r.ss.EntryShared(newBegin) >= uint(newContext) {
		newBegin--
	}
	for newEnd < uint64(r.ss.n) && r.ss.EntryShared(newEnd) >= uint(newContext) {
		newEnd++
	}
	return Range{ss: r.ss, seqSize: newContext, begin: newBegin, end: newEnd}, nil
}

// Truncate shortens the range to at most count bases, a no-op if it is
// already that short or shorter.
func (r Range) Truncate(count uint32) (Range, error) {
	if !r.Valid() {
		return Range{}, kinderr.E(kinderr.IO, "seqset: Truncate on an invalid range")
	}
	if r.seqSize > count {
		return r.PopBack(r.seqSize - count)
	}
	return r, nil
}

// Sequence reconstructs up to size bases of the range's sequence (the
// longest common prefix of its member entries) by repeated pop-front
// (size<0 means "all seqSize bases").
func (r Range) Sequence(size int) (dna.Sequence, error) {
	if !r.Valid() {
		return nil, kinderr.E(kinderr.IO, "seqset: Sequence on an invalid range")
	}
	if size < 0 || size > int(r.seqSize) {
		size = int(r.seqSize)
	}
	out := make(dna.Sequence, size)
	cur := r.begin
	for i := 0; i < size; i++ {
		b := r.ss.EntryGetBase(cur)
		out[i] = byte(b)
		cur = r.ss.innerPopFront(b, cur)
	}
	return out, nil
}

// IsMaximal reports whether this range refers to exactly one entry at its
// full length, with no valid push_front extension.
func (r Range) IsMaximal() bool {
	if r.begin+1 != r.end {
		return false
	}
	if uint(r.seqSize) != r.ss.EntrySize(r.begin) {
		return false
	}
	for b := dna.Base(0); b < 4; b++ {
		if r.pushFrontUnchecked(b).Valid() {
			return false
		}
	}
	return true
}

// IsSeqsetEntry reports whether this range refers to a single full
// seqset entry (a weaker condition than IsMaximal: push_front may still
// succeed).
func (r Range) IsSeqsetEntry() bool {
	return r.begin+1 == r.end && uint(r.seqSize) == r.ss.EntrySize(r.begin)
}

// SeqsetID returns the single entry id this range names. Panics if
// !IsSeqsetEntry().
func (r Range) SeqsetID() uint64 {
	if !r.IsSeqsetEntry() {
		panic("seqset: SeqsetID called on a range that is not a single entry")
	}
	return r.begin
}

// Next returns the next range of the same size (spec's seqset_range::next,
// used to iterate entry_range(0), entry_range(1), … via a
// same-sized-range walk instead of a naive per-id scan).
func (r Range) Next() Range {
	out := Range{ss: r.ss, seqSize: r.seqSize, begin: r.end, end: r.end}
	ss := out.ss
	for out.begin < uint64(ss.n) && ss.EntrySize(out.begin) < uint(out.seqSize) {
		out.begin++
	}
	if out.begin == uint64(ss.n) {
		out.end = out.begin
		return out
	}
	out.end = out.begin + 1
	for out.end < uint64(ss.n) && ss.EntryShared(out.end) >= uint(out.seqSize) {
		out.end++
	}
	return out
}

// SharedPrefixLength returns the length of the longest common prefix
// between this range's sequence and rhs's.
func (r Range) SharedPrefixLength(rhs Range) uint {
	sharedBases := uint(r.seqSize)
	if uint(rhs.seqSize) < sharedBases {
		sharedBases = uint(rhs.seqSize)
	}
	if r.end > rhs.begin && rhs.end > r.begin {
		return sharedBases
	}
	var lo, hi uint64
	if r.end > rhs.begin {
		lo, hi = rhs.end, r.begin
	} else {
		lo, hi = r.end, rhs.begin
	}
	for idx := lo; idx <= hi; idx++ {
		if s := r.ss.EntryShared(idx); s < sharedBases {
			sharedBases = s
		}
	}
	return sharedBases
}
