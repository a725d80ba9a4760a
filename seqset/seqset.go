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

// Package seqset implements the content-addressed, suffix-closed,
// prefix-unique entry set (spec §3.2, §4.4): the FM-index-like structure
// every other component in this module is built around.
package seqset

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
)

// state is the construction state machine (spec §4.4.7): Create → Setting
// (mutable) → Finalize → Ready (immutable).
type state int32

const (
	stateCreate state = iota
	stateSetting
	stateReady
)

// Seqset is a finalized, read-only entry set once Finalize has run; during
// construction (stateSetting) callers populate it via SetSize/SetShared/
// SetBit in any order before calling Finalize.
type Seqset struct {
	uuid uuid.UUID

	n int32
	state

	entrySizes *bitpack.Vector  // width large enough for max_entry_len
	shared     *bitpack.Vector  // width large enough for max_entry_len-1
	prev       [4]*bitpack.Bitcount
	fixed      [5]uint64 // C[0..4], set by Finalize

	sharedLTOnce sync.Once
	sharedLT     *bitpack.LessThanSearch

	popFrontCacheMu sync.Mutex
	popFrontCache   []uint64 // entries[i] = pop_front(i); nil until PopulatePopFrontCache
}

// New starts building a fresh Seqset with room for n entries, each at most
// maxEntryLen bases. The caller moves through SetSize/SetShared/SetBit in
// any order, then calls Finalize.
func New(n int, maxEntryLen uint) *Seqset {
	return &Seqset{
		uuid:       uuid.New(),
		n:          int32(n),
		state:      stateSetting,
		entrySizes: bitpack.NewVector(n, bitpack.WidthForMaxValue(uint64(maxEntryLen))),
		shared:     bitpack.NewVector(n, widthForSharedMax(maxEntryLen)),
		prev: [4]*bitpack.Bitcount{
			bitpack.NewBitcount(n), bitpack.NewBitcount(n),
			bitpack.NewBitcount(n), bitpack.NewBitcount(n),
		},
	}
}

func widthForSharedMax(maxEntryLen uint) uint {
	if maxEntryLen == 0 {
		return 1
	}
	return bitpack.WidthForMaxValue(uint64(maxEntryLen - 1))
}

// UUID identifies this seqset; it is assigned by New and stored by
// WriteArchive, so OpenArchive restores the same value. Readmaps and
// mergemaps record it to detect mismatched cross-references (spec §4.2,
// §4.4.8).
func (s *Seqset) UUID() uuid.UUID { return s.uuid }

// Size returns |E|.
func (s *Seqset) Size() int { return int(s.n) }

func (s *Seqset) requireSetting() {
	if atomic.LoadInt32((*int32)(&s.state)) != int32(stateSetting) {
		panic("seqset: mutator called outside the Setting state")
	}
}

func (s *Seqset) requireReady() {
	if atomic.LoadInt32((*int32)(&s.state)) != int32(stateReady) {
		panic("seqset: structural accessor called before Finalize")
	}
}

// SetEntrySize records size[row] = entrySize during construction.
func (s *Seqset) SetEntrySize(row int, entrySize uint) {
	s.requireSetting()
	s.entrySizes.Set(row, uint64(entrySize))
}

// SetShared records shared[row] = sharedLen during construction.
func (s *Seqset) SetShared(row int, sharedLen uint) {
	s.requireSetting()
	s.shared.Set(row, uint64(sharedLen))
}

// SetBit records prev_a[row] during construction. Safe to call
// concurrently across distinct rows and bases from multiple builder
// goroutines (Bitcount.SetAtomic).
func (s *Seqset) SetBit(row int, b dna.Base) {
	s.requireSetting()
	s.prev[b].SetAtomic(row)
}

// Finalize computes C[·] by summing prev_a's popcounts in base order and
// transitions to the Ready state (spec §4.4.7). It fails if the total
// does not equal the declared entry count.
func (s *Seqset) Finalize() error {
	s.requireSetting()
	var offset uint64
	for b := dna.Base(0); b < 4; b++ {
		s.prev[b].Finalize()
		s.fixed[b] = offset
		offset += uint64(s.prev[b].PopCount())
	}
	s.fixed[4] = offset
	if offset != uint64(s.n) {
		return kinderr.Errorf(kinderr.Consistency,
			"seqset: finalize: prev_a counts sum to %d, want %d entries", offset, s.n)
	}
	atomic.StoreInt32((*int32)(&s.state), int32(stateReady))
	return nil
}

// EntrySize returns size[i].
func (s *Seqset) EntrySize(i uint64) uint {
	s.requireReady()
	return uint(s.entrySizes.Get(int(i)))
}

// EntryShared returns shared[i].
func (s *Seqset) EntryShared(i uint64) uint {
	s.requireReady()
	return uint(s.shared.Get(int(i)))
}

// EntryHasFront reports whether prev_b[i] is set.
func (s *Seqset) EntryHasFront(i uint64, b dna.Base) bool {
	s.requireReady()
	return s.prev[b].Get(int(i))
}

// EntryPushFront returns C[b] + rank_b(i), the FM-index push-front
// primitive (spec §3.2).
func (s *Seqset) EntryPushFront(i uint64, b dna.Base) uint64 {
	s.requireReady()
	return s.fixed[b] + uint64(s.prev[b].Rank1(int(i)))
}

// EntryGetBase returns the first base of entry(i), found via the 4-way
// partition of C[·] by comparing i against C[1], C[2] and C[3] in turn.
func (s *Seqset) EntryGetBase(i uint64) dna.Base {
	s.requireReady()
	switch {
	case i < s.fixed[1]:
		return dna.A
	case i < s.fixed[2]:
		return dna.C
	case i < s.fixed[3]:
		return dna.G
	default:
		return dna.T
	}
}

// Begin returns the range spanning the whole seqset (spec §4.4.1's
// empty_range).
func (s *Seqset) Begin() Range {
	s.requireReady()
	return Range{ss: s, seqSize: 0, begin: 0, end: uint64(s.n)}
}

// End returns the canonical invalid range.
func (s *Seqset) End() Range {
	return Range{ss: s, seqSize: 0, begin: 0, end: 0}
}

// EntryRange returns entry_range(i): ({i, i+1, size[i]}).
func (s *Seqset) EntryRange(i uint64) (Range, error) {
	s.requireReady()
	if i >= uint64(s.n) {
		return Range{}, kinderr.Errorf(kinderr.IO, "seqset: entry %d out of range [0,%d)", i, s.n)
	}
	return Range{ss: s, seqSize: uint32(s.EntrySize(i)), begin: i, end: i + 1}, nil
}

// Find locates the range of entries whose prefix equals seq, pushing
// bases from right to left (spec §4.4.1).
func (s *Seqset) Find(seq dna.Sequence) Range {
	r := s.Begin()
	for i := 0; i < len(seq) && r.Valid(); i++ {
		r = r.pushFrontUnchecked(dna.Base(seq[len(seq)-1-i]))
	}
	return r
}

// FindExisting assumes seq names an existing entry and returns its id
// directly, skipping range bookkeeping. Behavior is undefined if seq is
// not present.
func (s *Seqset) FindExisting(seq dna.Sequence) uint64 {
	s.requireReady()
	var id uint64
	for i := 0; i < len(seq); i++ {
		id = s.EntryPushFront(id, dna.Base(seq[len(seq)-i-1]))
	}
	return id
}

// FindExistingUnique is FindExisting, optimized for the common case where
// the first expectedUniqueLen bases already disambiguate seq.
func (s *Seqset) FindExistingUnique(seq dna.Sequence, expectedUniqueLen int) uint64 {
	s.requireReady()
	for len(seq) > expectedUniqueLen {
		id := s.FindExisting(seq[:expectedUniqueLen])
		next := id + 1
		if next == uint64(s.n) || s.EntryShared(next) < uint(expectedUniqueLen) {
			return id
		}
		expectedUniqueLen *= 2
	}
	return s.FindExisting(seq)
}

// FindNear enumerates, via depth-first search over the Hamming ball
// around seq, every range within maxMismatch substitutions of seq,
// stopping once maxResults have been collected. The returned bool is
// false iff the result was truncated at maxResults (spec §4.4.1).
func (s *Seqset) FindNear(seq dna.Sequence, maxMismatch, maxResults int) ([]Range, bool) {
	if maxMismatch == 0 {
		if maxResults == 0 {
			return nil, false
		}
		r := s.Find(seq)
		if r.Valid() {
			return []Range{r}, true
		}
		return nil, true
	}
	var out []Range
	ok := findNearDFS(&out, seq, maxMismatch, maxResults, s.Begin(), len(seq)-1)
	return out, ok
}

// findNearDFS is an explicit recursive descent over the Hamming ball
// (redesign note: a bounded-depth DFS over at most len(seq) levels is
// preferred here to a coroutine/generator-style iterator — Go has
// neither, and the recursion depth is capped by read length).
func findNearDFS(out *[]Range, seq dna.Sequence, maxMismatch, maxResults int, cur Range, seqPos int) bool {
	if seqPos == -1 {
		if len(*out) >= maxResults {
			return false
		}
		*out = append(*out, cur)
		return true
	}
	if maxMismatch == 0 {
		next := cur.pushFrontUnchecked(dna.Base(seq[seqPos]))
		if !next.Valid() {
			return true
		}
		return findNearDFS(out, seq, 0, maxResults, next, seqPos-1)
	}
	for b := dna.Base(0); b < 4; b++ {
		next := cur.pushFrontUnchecked(b)
		if !next.Valid() {
			continue
		}
		newMismatch := maxMismatch
		if b != dna.Base(seq[seqPos]) {
			newMismatch--
		}
		if !findNearDFS(out, seq, newMismatch, maxResults, next, seqPos-1) {
			return false
		}
	}
	return true
}

// initSharedLTSearch lazily builds the shared-less-than search summary
// (spec §4.4.5), private to this process.
func (s *Seqset) initSharedLTSearch() *bitpack.LessThanSearch {
	s.sharedLTOnce.Do(func() {
		v := make([]int32, s.n)
		for i := range v {
			v[i] = int32(s.shared.Get(i))
		}
		s.sharedLT = bitpack.NewLessThanSearch(v)
	})
	return s.sharedLT
}

// PopulatePopFrontCache builds the O(1) pop_front cache in one sequential
// pass over all entries on the calling goroutine; it does not fan the
// work out (spec §4.4.5). Calling it twice is a no-op.
func (s *Seqset) PopulatePopFrontCache() {
	s.popFrontCacheMu.Lock()
	defer s.popFrontCacheMu.Unlock()
	if s.popFrontCache != nil {
		return
	}
	cache := make([]uint64, s.n)
	var baseOffset [4]uint64
	for b := dna.Base(0); b < 4; b++ {
		baseOffset[b] = s.fixed[b]
	}
	for i := int64(0); i < int64(s.n); i++ {
		for b := dna.Base(0); b < 4; b++ {
			if s.prev[b].Get(int(i)) {
				cache[baseOffset[b]] = uint64(i)
				baseOffset[b]++
			}
		}
	}
	s.popFrontCache = cache
}

// IsPopFrontCached reports whether PopulatePopFrontCache has completed.
func (s *Seqset) IsPopFrontCached() bool {
	s.popFrontCacheMu.Lock()
	defer s.popFrontCacheMu.Unlock()
	return s.popFrontCache != nil
}

// EntryPopFront returns the inverse of EntryPushFront: the id reached by
// popping entry(i)'s first base. O(1) once cached, O(log n) otherwise.
func (s *Seqset) EntryPopFront(i uint64) uint64 {
	s.popFrontCacheMu.Lock()
	cache := s.popFrontCache
	s.popFrontCacheMu.Unlock()
	if cache != nil {
		return cache[i]
	}
	b := s.EntryGetBase(i)
	return s.innerPopFront(b, i)
}

// innerPopFront is the uncached O(log n) path: offset was reached by
// pushing b onto some original id r, i.e. offset == C[b] + rank_b(r), so
// r is the (offset-C[b])-th (0-indexed) set bit of prev_b.
func (s *Seqset) innerPopFront(b dna.Base, offset uint64) uint64 {
	targetRank := int(offset - s.fixed[b])
	return uint64(s.prev[b].Select1(targetRank))
}
