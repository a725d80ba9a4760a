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

// Package build implements the seqset construction pipeline: loading
// reads into a shared repo via reference-matched and non-reference
// passes, expanding and deduplicating under the prefix-equivalence
// relation, and populating a finalized seqset.Seqset.
package build

import (
	"github.com/grailbio/biograph/internal/dna"
)

// maxFlyweightLen is the largest read length a flyweight can address (the
// 13-bit length field of the original repo handle).
const maxFlyweightLen = (1 << 13) - 1

// flyweight is a repo-relative handle to a read or read-derived substring
// (spec §4.6.1): start indexes into the shared repo, length is its base
// count, flipped marks a reverse-complement view, nonRef marks repo bytes
// outside the reference region, and empty is a sentinel for an absent
// mate slot. Unlike the original's packed 64-bit encoding, this is kept
// as a plain struct — Go slices already give (pointer, length) the same
// compactness a hand-rolled bitfield bought in C++, so there is nothing
// to gain duplicating that packing here (see DESIGN.md).
type flyweight struct {
	start   int64
	length  uint16
	flipped bool
	nonRef  bool
	empty   bool
}

// revComp returns the flyweight viewing the same repo bytes in the
// opposite orientation.
func (f flyweight) revComp() flyweight {
	if f.empty {
		return f
	}
	if f.flipped {
		return flyweight{start: f.start - int64(f.length) + 1, length: f.length, flipped: false, nonRef: f.nonRef}
	}
	return flyweight{start: f.start + int64(f.length) - 1, length: f.length, flipped: true, nonRef: f.nonRef}
}

// dropFront returns the flyweight for the suffix obtained by removing the
// first k bases of f's sequence.
func (f flyweight) dropFront(k int) flyweight {
	if k == 0 {
		return f
	}
	if !f.flipped {
		return flyweight{start: f.start + int64(k), length: f.length - uint16(k), flipped: false, nonRef: f.nonRef}
	}
	return flyweight{start: f.start - int64(k), length: f.length - uint16(k), flipped: true, nonRef: f.nonRef}
}

// bases materializes f's sequence from repo.
func (f flyweight) bases(repo dna.Sequence) dna.Sequence {
	if f.length == 0 {
		return dna.Sequence{}
	}
	if !f.flipped {
		return repo[f.start : f.start+int64(f.length)]
	}
	lo := f.start - int64(f.length) + 1
	return repo[lo : f.start+1].RevComp()
}
