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

import (
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/seqset"
)

func (rm *Readmap) checkOwnSeqset(r seqset.Range) error {
	if rm.ss != nil && r.Seqset() != rm.ss {
		return kinderr.E(kinderr.Input, "readmap: range belongs to a different seqset than this readmap")
	}
	return nil
}

// PrefixReads returns every read id whose sequence is a prefix of some
// entry in r and whose length is at least minReadLen (spec §4.5.1). The
// result lists the ids found walking forward from r's first read in
// ascending order, followed by the ids found walking backward from it in
// descending order; it is not sorted as a whole. The walk fans out from r
// in both directions over neighboring seqset ids, tracking the shrinking
// shared-prefix length as a ceiling on which reads can still qualify, and
// stops expanding outward once the shared prefix drops below minReadLen
// (raised to the readmap's global minimum read length if it is smaller
// than that) — the teacher's read_iterator re-expressed
// as a single forward and a single backward scan instead of a
// lazily-advanced iterator pair (Design Note 9).
func (rm *Readmap) PrefixReads(r seqset.Range, minReadLen int) ([]uint32, error) {
	if err := rm.checkOwnSeqset(r); err != nil {
		return nil, err
	}
	floor := int(rm.MinReadLen())
	if minReadLen < floor {
		minReadLen = floor
	}
	if !r.Valid() || int(r.Size()) < minReadLen {
		return nil, nil
	}

	ss := rm.ss
	var out []uint32
	scan := func(dir int) {
		seqsetID := r.Begin()
		maxLen := int(r.Size())
		readID := rm.readIDs.LowerBoundDestination(r.Begin())
		if dir < 0 {
			readID--
		}
		for readID >= 0 && readID < rm.Size() {
			firstInGroup := readID == 0 || rm.readIDs.FirstInGroup(readID)
			if dir < 0 {
				next := readID + 1
				firstInGroup = next == rm.Size() || rm.readIDs.FirstInGroup(next)
			}
			if firstInGroup {
				newSeqsetID := rm.EntryID(uint32(readID))
				for seqsetID != newSeqsetID {
					var shared uint
					if dir > 0 {
						seqsetID++
						shared = ss.EntryShared(seqsetID)
					} else {
						shared = ss.EntryShared(seqsetID)
						seqsetID--
					}
					if int(shared) < minReadLen {
						return
					}
					if int(shared) < maxLen {
						maxLen = int(shared)
					}
				}
			}
			if int(rm.ReadLength(uint32(readID))) <= maxLen {
				out = append(out, uint32(readID))
			}
			readID += dir
		}
	}
	scan(1)
	scan(-1)
	return out, nil
}

// LongestPrefixRead returns the longest read id whose sequence is a
// prefix of some entry in r, and true if one exists.
func (rm *Readmap) LongestPrefixRead(r seqset.Range) (uint32, bool, error) {
	if err := rm.checkOwnSeqset(r); err != nil {
		return 0, false, err
	}
	if !r.Valid() || int(r.Size()) < int(rm.MinReadLen()) {
		return 0, false, nil
	}
	lo := rm.readIDs.LowerBoundDestination(r.Begin())
	hi := rm.readIDs.LowerBoundDestination(r.End())
	var best uint32
	bestLen := -1
	found := false
	for id := lo; id < hi; id++ {
		l := int(rm.ReadLength(uint32(id)))
		if l > int(r.Size()) {
			continue
		}
		if l > bestLen {
			best, bestLen, found = uint32(id), l, true
			if l == int(r.Size()) {
				return best, true, nil
			}
		}
	}
	return best, found, nil
}

// ContainingRead pairs a read id with the offset, within the queried
// range's extended sequence, at which that read begins.
type ContainingRead struct {
	Offset int
	ReadID uint32
}

// ReadsContaining returns every read whose sequence contains r's sequence
// as a substring, each with the offset at which r's sequence starts
// within that read (spec §4.5.1). The walk is a depth-first search over
// push_front extensions of r, re-expressed here as an explicit stack
// instead of the teacher's containing_read_iterator (Design Note 9).
func (rm *Readmap) ReadsContaining(r seqset.Range) ([]ContainingRead, error) {
	if err := rm.checkOwnSeqset(r); err != nil {
		return nil, err
	}
	if !r.Valid() {
		return nil, nil
	}
	origLen := r.Size()
	var out []ContainingRead
	var walk func(cur seqset.Range) error
	walk = func(cur seqset.Range) error {
		offset := int(cur.Size()) - int(origLen)
		lo := rm.readIDs.LowerBoundDestination(cur.Begin())
		hi := rm.readIDs.LowerBoundDestination(cur.End())
		for id := lo; id < hi; id++ {
			if int(rm.ReadLength(uint32(id))) >= int(cur.Size()) {
				out = append(out, ContainingRead{Offset: offset, ReadID: uint32(id)})
			}
		}
		for b := dna.Base(0); b < 4; b++ {
			next, err := cur.PushFront(b)
			if err != nil {
				return err
			}
			if next.Valid() {
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(r); err != nil {
		return nil, err
	}
	return out, nil
}
