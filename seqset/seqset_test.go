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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/biograph/internal/dna"
)

func TestFindRoundTrip(t *testing.T) {
	ss, all := buildFromStrings("ACGTACGT", "TTTTGGGG", "ACGTTTTT")
	for _, e := range all {
		r := ss.Find(e)
		require.True(t, r.Valid(), "Find(%s)", e)
		assert.True(t, r.Begin() < r.End())
		seq, err := r.Sequence(-1)
		require.NoError(t, err)
		assert.True(t, seq.HasPrefix(e) || e.HasPrefix(seq))
	}
}

func TestFindMissingIsInvalid(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGT")
	seq, err := dna.FromString("GGGGGGGG")
	require.NoError(t, err)
	r := ss.Find(seq)
	assert.False(t, r.Valid())
}

func TestFinalizeRejectsShortfall(t *testing.T) {
	ss := New(3, 4)
	ss.SetEntrySize(0, 0)
	ss.SetEntrySize(1, 1)
	ss.SetEntrySize(2, 2)
	ss.SetBit(1, dna.A)
	// entry 2 never gets a prev bit: the popcount sum falls short of 3.
	err := ss.Finalize()
	assert.Error(t, err)
}

func TestMutatorPanicsAfterFinalize(t *testing.T) {
	ss, _ := buildFromStrings("ACGT")
	assert.Panics(t, func() { ss.SetEntrySize(0, 1) })
}

func TestAccessorPanicsBeforeFinalize(t *testing.T) {
	ss := New(1, 4)
	assert.Panics(t, func() { ss.EntrySize(0) })
}

func TestEntryRangeAndNext(t *testing.T) {
	ss, all := buildFromStrings("ACGT", "AAAA")
	r, err := ss.EntryRange(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Begin())
	assert.Equal(t, uint64(1), r.End())

	// Walking Next() over same-size ranges, one walk per size, must visit
	// every entry in the walk for its own size.
	seen := map[uint64]bool{}
	for size := uint32(0); size <= uint32(len(all[len(all)-1])); size++ {
		cur := Range{ss: ss, seqSize: size, begin: 0, end: 0}
		cur = cur.Next()
		for cur.Valid() {
			for id := cur.Begin(); id < cur.End(); id++ {
				if ss.EntrySize(id) == uint(size) {
					seen[id] = true
				}
			}
			cur = cur.Next()
		}
	}
	for i := range all {
		assert.True(t, seen[uint64(i)], "entry %d of size %d never visited", i, len(all[i]))
	}
}

func TestPushPopFrontInverse(t *testing.T) {
	ss, all := buildFromStrings("ACGTACGTAC", "GGCATTACAG")
	for _, e := range all {
		if len(e) == 0 {
			continue
		}
		r := ss.Find(e)
		require.True(t, r.Valid())
		popped, err := r.PopFront()
		require.NoError(t, err)
		require.True(t, popped.Valid())
		pushed, err := popped.PushFront(e.Base(0))
		require.NoError(t, err)
		assert.Equal(t, r.Begin(), pushed.Begin())
		assert.Equal(t, r.End(), pushed.End())
	}
}

func TestPopFrontCacheAgreesWithUncached(t *testing.T) {
	ss, all := buildFromStrings("ACGTACGTAC", "GGCATTACAG", "TTTTACGTAC")
	ss.PopulatePopFrontCache()
	assert.True(t, ss.IsPopFrontCached())
	for _, e := range all {
		r := ss.Find(e)
		if !r.Valid() || len(e) == 0 {
			continue
		}
		assert.Equal(t, ss.innerPopFront(e.Base(0), r.Begin()), ss.EntryPopFront(r.Begin()))
	}
}

func TestIsMaximalOnlyFullReads(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGT")
	full, err := dna.FromString("ACGTACGT")
	require.NoError(t, err)
	r := ss.Find(full)
	require.True(t, r.Valid())
	assert.True(t, r.IsMaximal())

	suffix, err := dna.FromString("CGTACGT")
	require.NoError(t, err)
	r2 := ss.Find(suffix)
	require.True(t, r2.Valid())
	assert.False(t, r2.IsMaximal())
}

func TestFindNearExactMatchesFind(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGT")
	seq, err := dna.FromString("ACGTACGT")
	require.NoError(t, err)
	results, ok := ss.FindNear(seq, 0, 10)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsMaximal())
}

func TestFindNearWithMismatchesFindsSubstitutions(t *testing.T) {
	ss, _ := buildFromStrings("AAAAAAAA", "AAAACAAA")
	seq, err := dna.FromString("AAAAAAAA")
	require.NoError(t, err)
	results, ok := ss.FindNear(seq, 1, 10)
	require.True(t, ok)
	// Both the exact match and the single-substitution read should surface.
	var sawExact, sawMismatch bool
	for _, r := range results {
		if !r.IsMaximal() {
			continue
		}
		s, err := r.Sequence(-1)
		require.NoError(t, err)
		switch s.String() {
		case "AAAAAAAA":
			sawExact = true
		case "AAAACAAA":
			sawMismatch = true
		}
	}
	assert.True(t, sawExact)
	assert.True(t, sawMismatch)
}

func TestFindNearTruncatesAtMaxResults(t *testing.T) {
	ss, _ := buildFromStrings("AAAAAAAA", "AAAACAAA", "AAAAGAAA", "AAAATAAA")
	seq, err := dna.FromString("AAAAAAAA")
	require.NoError(t, err)
	_, ok := ss.FindNear(seq, 1, 1)
	assert.False(t, ok)
}

func TestFindMaximalPrefixReads(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGTAC", "ACGTACGTTT")
	seed, err := dna.FromString("GTACGT")
	require.NoError(t, err)
	r := ss.Find(seed)
	require.True(t, r.Valid())
	results, ok := r.FindMaximalPrefixReads(10, uint(len(seed)), AllTrue{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(results), 2)
	for _, res := range results {
		assert.True(t, res.IsMaximal())
	}
}

func TestFindOverlapReadsReportsBestOverlap(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGTAC", "ACGTACGTTT")
	seed, err := dna.FromString("GTACGT")
	require.NoError(t, err)
	r := ss.Find(seed)
	require.True(t, r.Valid())
	results, ok := r.FindOverlapReads(10, uint(len(seed)), AllTrue{})
	require.True(t, ok)
	assert.NotEmpty(t, results)
}

func TestFindOverlapReadsFairNonIncreasing(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGTAC", "ACGTACGTTT", "ACGTACGAAA")
	seed, err := dna.FromString("GTACG")
	require.NoError(t, err)
	r := ss.Find(seed)
	require.True(t, r.Valid())
	results, ok := r.FindOverlapReadsFair(10, uint(len(seed)), AllTrue{})
	require.True(t, ok)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Overlap, results[i-1].Overlap)
	}
}

// TestFindOverlapReadsFairTruncatesAtCap covers the hard-cap behavior
// spec §4.4.6 requires of both find_overlap_reads variants: once
// maxOverlaps results are collected, the search stops and reports ok
// == false rather than silently returning more than the caller asked
// for.
func TestFindOverlapReadsFairTruncatesAtCap(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGTAC", "ACGTACGTTT", "ACGTACGAAA")
	seed, err := dna.FromString("GTACG")
	require.NoError(t, err)
	r := ss.Find(seed)
	require.True(t, r.Valid())

	full, ok := r.FindOverlapReadsFair(10, uint(len(seed)), AllTrue{})
	require.True(t, ok)
	require.NotEmpty(t, full)

	capped, ok := r.FindOverlapReadsFair(len(full)-1, uint(len(seed)), AllTrue{})
	assert.False(t, ok)
	assert.Len(t, capped, len(full)-1)
}

func TestSharedPrefixLength(t *testing.T) {
	ss, _ := buildFromStrings("ACGTACGT", "ACGTTTTT")
	a, err := dna.FromString("ACGTACGT")
	require.NoError(t, err)
	b, err := dna.FromString("ACGTTTTT")
	require.NoError(t, err)
	ra := ss.Find(a)
	rb := ss.Find(b)
	require.True(t, ra.Valid())
	require.True(t, rb.Valid())
	assert.Equal(t, uint(4), ra.SharedPrefixLength(rb))
}
