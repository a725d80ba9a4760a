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

// Package sparsemulti implements the sparse-multi map (spec §4.3): a
// dense destination space [0, D) in which each destination has exactly
// one source in [0, S), and several destinations may share a source. It
// backs readmap's read_ids part (spec §6.3), which maps each read id to
// the seqset entry id it was assigned during the build.
package sparsemulti

import (
	"sort"

	"github.com/grailbio/biograph/internal/bitpack"
)

// Map is a finalized, read-only sparse-multi map.
type Map struct {
	firstInGroup  *bitpack.Bitcount // length D; bit d set iff d is the first destination of its group
	sourceOfGroup *bitpack.Vector   // length G, sorted ascending by source id
	numGroups     int
	numDest       int
}

// NumDestinations returns D.
func (m *Map) NumDestinations() int { return m.numDest }

// NumGroups returns the number of distinct (contiguous-run) source groups.
func (m *Map) NumGroups() int { return m.numGroups }

// SourceRange returns the destination range [lo, hi) whose source id
// equals source, found via binary search over the ascending
// source_of_group array (spec §4.3's source→[lo,hi) lookup). ok is false
// if no group has this source.
func (m *Map) SourceRange(source uint64) (lo, hi int, ok bool) {
	g := sort.Search(m.numGroups, func(i int) bool { return m.sourceOfGroup.Get(i) >= source })
	if g >= m.numGroups || m.sourceOfGroup.Get(g) != source {
		return 0, 0, false
	}
	lo = m.firstInGroup.Select1(g)
	if g+1 < m.numGroups {
		hi = m.firstInGroup.Select1(g + 1)
	} else {
		hi = m.numDest
	}
	return lo, hi, true
}

// DestinationToSource returns the source id of destination d (spec
// §4.3's destination→source lookup): g = rank1(first_in_group, d+1) - 1;
// source_of_group[g].
func (m *Map) DestinationToSource(d int) uint64 {
	return m.sourceOfGroup.Get(m.DestinationToGroup(d))
}

// DestinationToGroup returns the group id of destination d, used by
// callers to deduplicate per-source work (spec §4.3).
func (m *Map) DestinationToGroup(d int) int {
	return m.firstInGroup.Rank1(d+1) - 1
}

// FirstInGroup reports whether destination d is the first destination of
// its group, used by readmap's prefix-read walk (spec §4.5.1) to detect
// group boundaries while scanning destinations in order.
func (m *Map) FirstInGroup(d int) bool {
	return m.firstInGroup.Get(d)
}

// LowerBoundDestination returns the first destination d whose source is
// >= source, or NumDestinations() if every group's source is smaller
// (spec §4.5.1's "sparse_multi.lookup_lower_bound", used to seed
// readmap's outward prefix-read scan from a seqset range's begin id).
func (m *Map) LowerBoundDestination(source uint64) int {
	g := sort.Search(m.numGroups, func(i int) bool { return m.sourceOfGroup.Get(i) >= source })
	if g >= m.numGroups {
		return m.numDest
	}
	return m.firstInGroup.Select1(g)
}

// Builder constructs a Map in a single forward pass that appends groups
// in ascending source order (spec §4.3: "construction is a single pass
// that appends groups in ascending source order").
type Builder struct {
	firstInGroup *bitpack.Bitcount
	sources      []uint64
	maxSource    uint64
	numDest      int
	cursor       int
	lastSource   uint64
	started      bool
}

// NewBuilder starts a Builder for a sparse-multi map with numDest
// destinations, each source fitting in maxSource.
func NewBuilder(numDest int, maxSource uint64) *Builder {
	return &Builder{
		firstInGroup: bitpack.NewBitcount(numDest),
		maxSource:    maxSource,
		numDest:      numDest,
	}
}

// Append records that the next destination (in ascending destination
// order) belongs to source. source must be monotonically non-decreasing
// across calls within the same group run and may repeat; a new group
// starts whenever source differs from the previous call's source (or on
// the very first call).
func (b *Builder) Append(source uint64) {
	if b.cursor >= b.numDest {
		panic("sparsemulti: Append called beyond the declared destination count")
	}
	if !b.started || source != b.lastSource {
		b.firstInGroup.Set(b.cursor)
		b.sources = append(b.sources, source)
		b.lastSource = source
		b.started = true
	}
	b.cursor++
}

// Finish finalizes the bitcount and packs the per-group source array,
// returning the completed Map. Finish panics if fewer than numDest
// destinations were appended.
func (b *Builder) Finish() *Map {
	if b.cursor != b.numDest {
		panic("sparsemulti: Finish called before every destination was appended")
	}
	b.firstInGroup.Finalize()
	width := bitpack.WidthForMaxValue(b.maxSource)
	packed := bitpack.NewVector(len(b.sources), width)
	for i, s := range b.sources {
		packed.Set(i, s)
	}
	return &Map{
		firstInGroup:  b.firstInGroup,
		sourceOfGroup: packed,
		numGroups:     len(b.sources),
		numDest:       b.numDest,
	}
}
