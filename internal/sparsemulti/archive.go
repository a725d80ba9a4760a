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

package sparsemulti

import "github.com/grailbio/biograph/internal/bitpack"

// PartVersion is the version written into part_info.json for every
// sparse-multi sub-part (spec §6.3: "read_ids | sparse-multi sub-part").
const PartVersion = "1.0.0"

// Layout describes a finalized Map in the form callers serialize into a
// spiral-file archive's nested parts: one bitcount (first_in_group) and
// one packed vector (source_of_group). Callers own the archive
// read/write plumbing; Layout only carries the two raw structures so
// they can be written under whatever part-path prefix the enclosing
// archive schema (readmap's read_ids, spec §6.3) wants.
type Layout struct {
	FirstInGroup  *bitpack.Bitcount
	SourceOfGroup *bitpack.Vector
	NumDest       int
	NumGroups     int
}

// Export exposes m's internal structures for serialization.
func (m *Map) Export() Layout {
	return Layout{
		FirstInGroup:  m.firstInGroup,
		SourceOfGroup: m.sourceOfGroup,
		NumDest:       m.numDest,
		NumGroups:     m.numGroups,
	}
}

// FromLayout reconstructs a Map from a Layout read back from an archive.
// firstInGroup must already be finalized.
func FromLayout(l Layout) *Map {
	return &Map{
		firstInGroup:  l.FirstInGroup,
		sourceOfGroup: l.SourceOfGroup,
		numGroups:     l.NumGroups,
		numDest:       l.NumDest,
	}
}
