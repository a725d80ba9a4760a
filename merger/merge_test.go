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

package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/seqset"
	ssbuild "github.com/grailbio/biograph/seqset/build"
)

func seq(t *testing.T, s string) dna.Sequence {
	t.Helper()
	d, err := dna.FromString(s)
	require.NoError(t, err)
	return d
}

func buildFrom(t *testing.T, reads ...string) *seqset.Seqset {
	t.Helper()
	var recs []ssbuild.Record
	for _, r := range reads {
		recs = append(recs, ssbuild.Record{Mate1: seq(t, r)})
	}
	ss, err := ssbuild.Build(biograph.Context{}, recs, ssbuild.Options{})
	require.NoError(t, err)
	return ss
}

// sequences returns every entry of ss, in id order.
func sequences(t *testing.T, ss *seqset.Seqset) []dna.Sequence {
	t.Helper()
	out, err := flatten(ss)
	require.NoError(t, err)
	return out
}

func TestMergeUnionsDistinctSequences(t *testing.T) {
	a := buildFrom(t, "ACGTACGTAC")
	b := buildFrom(t, "TTTTGGGGCC")

	merged, mms, err := Merge(biograph.Context{}, []*seqset.Seqset{a, b})
	require.NoError(t, err)
	require.Len(t, mms, 2)

	got := sequences(t, merged)
	assert.Len(t, got, merged.Size())
	assert.True(t, merged.Size() >= 2, "both distinct reads' suffix-closure entries survive")

	// Every entry in a and b must be locatable in the merged result, and
	// every mergemap bit set must point back to a real contributed entry.
	for i, ss := range []*seqset.Seqset{a, b} {
		for id := 0; id < ss.Size(); id++ {
			r, err := ss.EntryRange(uint64(id))
			require.NoError(t, err)
			s, err := r.Sequence(-1)
			require.NoError(t, err)
			found := merged.Find(s)
			require.True(t, found.Valid())
			mergedID := found.Begin()
			assert.True(t, mms[i].Contains(mergedID), "input %d's entry %d must be recorded as contributed", i, id)
		}
	}
}

func TestMergePrefixCollapseCreditsBothInputs(t *testing.T) {
	// "ACGT" from input 0 is a strict prefix of "ACGTAA" from input 1:
	// only the longer sequence survives, but input 0 still gets credit
	// at the surviving merged position.
	short := buildFrom(t, "ACGT")
	long := buildFrom(t, "ACGTAA")

	merged, mms, err := Merge(biograph.Context{}, []*seqset.Seqset{short, long})
	require.NoError(t, err)

	found := merged.Find(seq(t, "ACGTAA"))
	require.True(t, found.Valid())
	mergedID := found.Begin()

	assert.True(t, mms[1].Contains(mergedID), "the input owning the surviving sequence is credited")
	assert.True(t, mms[0].Contains(mergedID), "the input whose sequence was merely a prefix is still credited")

	// "ACGT" on its own must never appear as a standalone merged entry.
	for id := 0; id < merged.Size(); id++ {
		r, err := merged.EntryRange(uint64(id))
		require.NoError(t, err)
		s, err := r.Sequence(-1)
		require.NoError(t, err)
		assert.False(t, s.Equal(seq(t, "ACGT")), "a collapsed prefix must not survive as its own entry")
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := buildFrom(t, "ACGTACGTAC", "CATCATCATC")
	b := buildFrom(t, "TTTTGGGGCC", "ACGTACGTAC")

	m1, _, err := Merge(biograph.Context{}, []*seqset.Seqset{a, b})
	require.NoError(t, err)
	m2, _, err := Merge(biograph.Context{}, []*seqset.Seqset{b, a})
	require.NoError(t, err)

	assert.ElementsMatch(t, stringsOf(t, m1), stringsOf(t, m2))
}

func stringsOf(t *testing.T, ss *seqset.Seqset) []string {
	t.Helper()
	seqs := sequences(t, ss)
	out := make([]string, len(seqs))
	for i, s := range seqs {
		out[i] = s.String()
	}
	return out
}
