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
	ssbuild "github.com/grailbio/biograph/seqset/build"
)

func seq(t *testing.T, s string) dna.Sequence {
	t.Helper()
	d, err := dna.FromString(s)
	require.NoError(t, err)
	return d
}

func TestBuildUnpairedMateLoopIsTwoCycle(t *testing.T) {
	read := seq(t, "ACGTACGTAC")
	ss, err := ssbuild.Build(biograph.Context{}, []ssbuild.Record{{Mate1: read}}, ssbuild.Options{})
	require.NoError(t, err)

	rm, err := Build(biograph.Context{}, ss, []Record{{Mate1: read}}, Options{})
	require.NoError(t, err)
	require.True(t, rm.HasMateLoop())
	require.Equal(t, 2, rm.Size())

	for id := uint32(0); id < 2; id++ {
		assert.False(t, rm.HasMate(id), "unpaired read must report no mate")
		rc, err := rm.RevComp(id)
		require.NoError(t, err)
		back, err := rm.RevComp(rc)
		require.NoError(t, err)
		assert.Equal(t, id, back, "succ^2(p) == p for an unpaired read")
	}
}

func TestBuildPairedMateLoopSatisfiesFourCycle(t *testing.T) {
	m1 := seq(t, "ACGTACGTAC")
	m2 := seq(t, "GGCATTACAG")
	ss, err := ssbuild.Build(biograph.Context{}, []ssbuild.Record{{Mate1: m1, Mate2: m2}}, ssbuild.Options{})
	require.NoError(t, err)

	rm, err := Build(biograph.Context{}, ss, []Record{{Mate1: m1, Mate2: m2}}, Options{})
	require.NoError(t, err)
	require.True(t, rm.HasMateLoop())
	require.Equal(t, 4, rm.Size())

	for id := uint32(0); id < 4; id++ {
		assert.True(t, rm.HasMate(id))
		mate, err := rm.Mate(id)
		require.NoError(t, err)
		mateOfMate, err := rm.Mate(mate)
		require.NoError(t, err)
		assert.Equal(t, id, mateOfMate, "mate(mate(p)) == p")

		cur := id
		for i := 0; i < 4; i++ {
			cur, err = rm.RevComp(cur)
			require.NoError(t, err)
		}
		assert.Equal(t, id, cur, "succ^4(p) == p for a paired read")
	}
}

func TestBuildForwardAndLengthsMatchInput(t *testing.T) {
	m1 := seq(t, "ACGTACGTAC")
	m2 := seq(t, "GGCATTACAGTT")
	ss, err := ssbuild.Build(biograph.Context{}, []ssbuild.Record{{Mate1: m1, Mate2: m2}}, ssbuild.Options{})
	require.NoError(t, err)
	rm, err := Build(biograph.Context{}, ss, []Record{{Mate1: m1, Mate2: m2}}, Options{})
	require.NoError(t, err)

	var sawForward, sawReverse int
	for id := uint32(0); id < uint32(rm.Size()); id++ {
		if rm.IsForward(id) {
			sawForward++
			assert.Contains(t, []uint{uint(len(m1)), uint(len(m2))}, rm.ReadLength(id))
		} else {
			sawReverse++
		}
	}
	assert.Equal(t, 2, sawForward)
	assert.Equal(t, 2, sawReverse)
}

func TestBuildRejectsReadLongerThanCap(t *testing.T) {
	tooLong := seq(t, strings.Repeat("A", 260))
	ss, err := ssbuild.Build(biograph.Context{}, []ssbuild.Record{{Mate1: tooLong}}, ssbuild.Options{})
	require.NoError(t, err)
	_, err = Build(biograph.Context{}, ss, []Record{{Mate1: tooLong}}, Options{})
	require.Error(t, err)
	assert.True(t, kinderr.Is(err, kinderr.Limit))
}

func TestBuildMultipleRecordsEachGetOwnCycle(t *testing.T) {
	recs := []ssbuild.Record{
		{Mate1: seq(t, "ACGTACGTAC")},
		{Mate1: seq(t, "TTTTGGGGCC"), Mate2: seq(t, "AACCGGTTAA")},
		{Mate1: seq(t, "CATCATCATC")},
	}
	buildRecs := make([]Record, len(recs))
	for i, r := range recs {
		buildRecs[i] = Record{Mate1: r.Mate1, Mate2: r.Mate2}
	}
	ss, err := ssbuild.Build(biograph.Context{}, recs, ssbuild.Options{})
	require.NoError(t, err)
	rm, err := Build(biograph.Context{}, ss, buildRecs, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2+4+2, rm.Size())
	stats := rm.PairStats()
	assert.Equal(t, int64(2), stats.PairedReads)
	assert.Equal(t, int64(2), stats.UnpairedReads)
}
