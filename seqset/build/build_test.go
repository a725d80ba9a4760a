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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
)

func seq(t *testing.T, s string) dna.Sequence {
	t.Helper()
	d, err := dna.FromString(s)
	require.NoError(t, err)
	return d
}

func TestBuildEmptyCorpus(t *testing.T) {
	ss, err := Build(biograph.Context{}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, ss.Size())
	r := ss.Find(dna.Sequence{})
	assert.True(t, r.Valid())
}

func TestBuildDisjointReadsLexOrder(t *testing.T) {
	a := seq(t, "ACGTACGT")
	b := seq(t, "TTTTGGGG")
	ss, err := Build(biograph.Context{}, []Record{{Mate1: a}, {Mate1: b}}, Options{})
	require.NoError(t, err)

	ra := ss.Find(a)
	rb := ss.Find(b)
	require.True(t, ra.Valid())
	require.True(t, rb.Valid())
	assert.True(t, ra.Begin() < rb.Begin())
}

func TestBuildPrefixDedup(t *testing.T) {
	full := seq(t, "ACGTACGTA")
	prefix := full[:len(full)-1]
	ssFull, err := Build(biograph.Context{}, []Record{{Mate1: full}}, Options{})
	require.NoError(t, err)
	ssBoth, err := Build(biograph.Context{}, []Record{{Mate1: full}, {Mate1: prefix}}, Options{})
	require.NoError(t, err)

	// A read and its own proper prefix must produce the same entry set as
	// the read alone (spec §8.3).
	assert.Equal(t, ssFull.Size(), ssBoth.Size())
	r1 := ssFull.Find(full)
	r2 := ssBoth.Find(full)
	require.True(t, r1.Valid())
	require.True(t, r2.Valid())
}

func TestBuildHomopolymerCollapsesToLongestPerOrientation(t *testing.T) {
	// Every all-A read is a prefix of the longest one (and likewise for
	// its all-T reverse complement), so prefix dedup must collapse the
	// whole family down to exactly one entry per orientation (spec
	// §8.3: "the seqset contains one entry ... equal to the maximum").
	reads := []Record{
		{Mate1: seq(t, "AAAA")},
		{Mate1: seq(t, "AAAAAA")},
		{Mate1: seq(t, "AAAAAAAA")},
	}
	ss, err := Build(biograph.Context{}, reads, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, ss.Size())
	longest := seq(t, "AAAAAAAA")
	r := ss.Find(longest)
	require.True(t, r.Valid())
	assert.True(t, r.IsMaximal())
}

func TestBuildRejectsReadLongerThanFlyweightLimit(t *testing.T) {
	tooLong := seq(t, strings.Repeat("A", maxFlyweightLen+2))
	_, err := Build(biograph.Context{}, []Record{{Mate1: tooLong}}, Options{})
	require.Error(t, err)
	assert.True(t, kinderr.Is(err, kinderr.Limit))
}

func TestBuildAcceptsReadAtFlyweightLimitMinusOne(t *testing.T) {
	atLimit := seq(t, strings.Repeat("A", maxFlyweightLen-1))
	_, err := Build(biograph.Context{}, []Record{{Mate1: atLimit}}, Options{})
	assert.NoError(t, err)
}

func TestBuildRejectsOverMemoryBudget(t *testing.T) {
	reads := []Record{{Mate1: seq(t, strings.Repeat("ACGT", 100))}}
	_, err := Build(biograph.Context{}, reads, Options{MaxMemBytes: 1})
	require.Error(t, err)
	assert.True(t, kinderr.Is(err, kinderr.Limit))
}

func TestBuildPairedProducesBothOrientations(t *testing.T) {
	m1 := seq(t, "ACGTACGTAC")
	m2 := seq(t, "GGCATTACAG")
	ss, err := Build(biograph.Context{}, []Record{{Mate1: m1, Mate2: m2}}, Options{})
	require.NoError(t, err)
	assert.True(t, ss.Find(m1).Valid())
	assert.True(t, ss.Find(m1.RevComp()).Valid())
	assert.True(t, ss.Find(m2).Valid())
	assert.True(t, ss.Find(m2.RevComp()).Valid())
}

type stubReference struct {
	seq dna.Sequence
}

func (s stubReference) Find(q dna.Sequence) (int64, bool) {
	idx := strings.Index(s.seq.String(), q.String())
	if idx < 0 {
		return 0, false
	}
	return int64(idx), true
}

func TestBuildWithReferenceMatchesSameSequenceAsWithout(t *testing.T) {
	ref := seq(t, "ACGTACGTACGTTTTTGGGGCCCCAAAA")
	read := seq(t, "ACGTTTTTGGGG")
	withRef, err := Build(biograph.Context{}, []Record{{Mate1: read}}, Options{Reference: stubReference{ref}, ReferenceSeq: ref})
	require.NoError(t, err)
	withoutRef, err := Build(biograph.Context{}, []Record{{Mate1: read}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, withoutRef.Size(), withRef.Size())
	assert.True(t, withRef.Find(read).Valid())
}
