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

package readmap

import "github.com/grailbio/biograph/internal/dna"

// ApproxCoverage returns, for every position of seq, the number of reads
// (either strand) whose sequence covers that position (spec §4.5.1). It
// does not properly account for reads shorter than a seqset entry's
// stored length in every case (hence "approx").
func (rm *Readmap) ApproxCoverage(seq dna.Sequence) []int {
	fwd, rev := rm.approxStrandCoverageSplit(seq)
	out := make([]int, len(seq))
	for i := range out {
		out[i] = fwd[i] + rev[i]
	}
	return out
}

// ApproxStrandCoverage is ApproxCoverage restricted to one strand.
func (rm *Readmap) ApproxStrandCoverage(seq dna.Sequence, forward bool) []int {
	fwd, rev := rm.approxStrandCoverageSplit(seq)
	if forward {
		return fwd
	}
	return rev
}

// ApproxStrandCoverageSplit returns (forward, reverse) per-base coverage.
func (rm *Readmap) ApproxStrandCoverageSplit(seq dna.Sequence) (forward, reverse []int) {
	return rm.approxStrandCoverageSplit(seq)
}

// approxStrandCoverageSplit walks seq through the seqset one base at a
// time via push_front_drop on the complemented base (the same
// "build-the-reverse-strand-context" trick the teacher's fake_coverage
// and approx_strand_coverage_split use), and whenever the resulting
// range narrows to a single candidate entry, fans out over every read
// attached there to accumulate start/end coverage deltas, finally
// prefix-summing them into per-base counts.
func (rm *Readmap) approxStrandCoverageSplit(seq dna.Sequence) (forward, reverse []int) {
	ss := rm.ss
	n := len(seq)
	rstart := [2][]int{make([]int, n), make([]int, n)}
	rend := [2][]int{make([]int, n), make([]int, n)}

	c := ss.Begin()
	for pos, base := range seq {
		comp := dna.Base(base).Complement()
		next, err := c.PushFrontDrop(comp, 0)
		if err != nil {
			break
		}
		c = next
		if c.Valid() && c.Begin()+1 == c.End() {
			loc := c.Begin()
			lo, hi, ok := rm.EntryReadRange(loc)
			if ok {
				for id := lo; id < hi; id++ {
					readLen := int(rm.ReadLength(uint32(id)))
					if readLen > int(c.Size()) {
						continue
					}
					start := pos + 1 - readLen
					if start < 0 {
						continue
					}
					strand := 1
					if rm.IsForward(uint32(id)) {
						strand = 0
					}
					rstart[strand][start]++
					rend[strand][pos]++
				}
			}
		}
	}

	forward, reverse = make([]int, n), make([]int, n)
	var curF, curR int
	for i := 0; i < n; i++ {
		curF += rstart[0][i]
		forward[i] = curF
		curF -= rend[0][i]

		curR += rstart[1][i]
		reverse[i] = curR
		curR -= rend[1][i]
	}
	return forward, reverse
}
