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

// Package readmap implements the read-to-seqset mapping (spec §4.5): for
// every read, which seqset entry it was assigned to, its length, strand,
// and (if pairing data is present) its mate.
package readmap

import (
	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/sparsemulti"
	"github.com/grailbio/biograph/seqset"
)

// nullReadID marks an absent mate/successor slot; mate_pair_ptr and
// mate_loop_ptr are always stored at a fixed 32-bit width (matching the
// teacher's packed_vector<uint32_t, 32>) so this sentinel is always
// representable regardless of read count.
const nullReadID = uint64(0xFFFFFFFF)

// Readmap is a finalized, read-only read-to-seqset mapping.
type Readmap struct {
	seqsetUUID uuid.UUID
	ss         *seqset.Seqset

	readIDs     *sparsemulti.Map // source = seqset id, destination = read id
	readLengths *bitpack.Vector
	isForward   *bitpack.Vector // width 1

	// Exactly one of mateLoop/matePair is non-nil once pairing data is
	// present; neither is set for a readmap built without mates.
	mateLoop *bitpack.Vector
	matePair *bitpack.Vector

	minReadLen, maxReadLen uint // 0 if not yet computed; see calcReadLenLimits
}

// Components bundles the pieces a Readmap is built from; readmap/build
// and the archive reader are the only expected assemblers.
type Components struct {
	SeqsetUUID  uuid.UUID
	Seqset      *seqset.Seqset
	ReadIDs     *sparsemulti.Map
	ReadLengths *bitpack.Vector
	IsForward   *bitpack.Vector
	MateLoop    *bitpack.Vector
	MatePair    *bitpack.Vector
}

// New assembles a Readmap directly from its finalized components.
func New(c Components) *Readmap {
	return &Readmap{
		seqsetUUID:  c.SeqsetUUID,
		ss:          c.Seqset,
		readIDs:     c.ReadIDs,
		readLengths: c.ReadLengths,
		isForward:   c.IsForward,
		mateLoop:    c.MateLoop,
		matePair:    c.MatePair,
	}
}

// Export returns the components backing rm, letting the merge pipeline
// (package merger) derive a migrated readmap without re-deriving parts
// that carry over unchanged (mirrors sparsemulti.Map.Export).
func (rm *Readmap) Export() Components {
	return Components{
		SeqsetUUID:  rm.seqsetUUID,
		Seqset:      rm.ss,
		ReadIDs:     rm.readIDs,
		ReadLengths: rm.readLengths,
		IsForward:   rm.isForward,
		MateLoop:    rm.mateLoop,
		MatePair:    rm.matePair,
	}
}

// SeqsetUUID returns the UUID of the seqset this readmap was built over
// (spec §6.3's readmap.json).
func (rm *Readmap) SeqsetUUID() uuid.UUID { return rm.seqsetUUID }

// Seqset returns the owning seqset, nil if the readmap was opened
// without one attached.
func (rm *Readmap) Seqset() *seqset.Seqset { return rm.ss }

// Size returns the number of reads (both orientations counted).
func (rm *Readmap) Size() int { return rm.readLengths.Len() }

// ReadCount returns the number of distinct input reads (Size()/2).
func (rm *Readmap) ReadCount() int { return rm.Size() / 2 }

// HasPairingData reports whether mate information is present.
func (rm *Readmap) HasPairingData() bool { return rm.mateLoop != nil || rm.matePair != nil }

// HasMateLoop reports whether the faster mate-loop form (spec §4.5.2) is
// available, as opposed to the plain mate-pair pointer.
func (rm *Readmap) HasMateLoop() bool { return rm.mateLoop != nil }

func (rm *Readmap) checkID(id uint32) {
	if int(id) >= rm.Size() {
		panic("readmap: read id out of range")
	}
}

// ReadLength returns the length of read id.
func (rm *Readmap) ReadLength(id uint32) uint {
	rm.checkID(id)
	return uint(rm.readLengths.Get(int(id)))
}

// IsForward reports whether read id is stored in its original sequencing
// orientation, as opposed to its reverse complement.
func (rm *Readmap) IsForward(id uint32) bool {
	rm.checkID(id)
	return rm.isForward.Get(int(id)) != 0
}

// EntryID returns the seqset entry id read id maps to.
func (rm *Readmap) EntryID(id uint32) uint64 {
	rm.checkID(id)
	return rm.readIDs.DestinationToSource(int(id))
}

// EntryReadRange returns the [lo, hi) read-id range attached to seqset
// entry, or ok=false if no read is attached to it.
func (rm *Readmap) EntryReadRange(entry uint64) (lo, hi int, ok bool) {
	return rm.readIDs.SourceRange(entry)
}

// HasMate reports whether read id has a paired mate.
func (rm *Readmap) HasMate(id uint32) bool {
	rm.checkID(id)
	if !rm.HasPairingData() {
		panic("readmap: HasMate called without pairing data present")
	}
	if rm.mateLoop != nil {
		mate := uint64(id)
		for n := 0; n != 2; n++ {
			mate = rm.mateLoop.Get(int(mate))
		}
		return mate != uint64(id)
	}
	return rm.matePair.Get(int(id)) != nullReadID
}

// Mate returns the read id of id's mate.
func (rm *Readmap) Mate(id uint32) (uint32, error) {
	rm.checkID(id)
	if !rm.HasPairingData() {
		return 0, kinderr.E(kinderr.Input, "readmap: no pairing data present")
	}
	if rm.mateLoop != nil {
		rc := rm.mateLoop.Get(int(id))
		mate := rm.mateLoop.Get(int(rc))
		if mate == uint64(id) {
			return 0, kinderr.E(kinderr.Input, "readmap: read has no mate")
		}
		return uint32(mate), nil
	}
	v := rm.matePair.Get(int(id))
	if v == nullReadID {
		return 0, kinderr.E(kinderr.Input, "readmap: read has no mate")
	}
	return uint32(v), nil
}

// MateEntry returns the seqset entry id of id's mate.
func (rm *Readmap) MateEntry(id uint32) (uint64, error) {
	mate, err := rm.Mate(id)
	if err != nil {
		return 0, err
	}
	return rm.EntryID(mate), nil
}

// LoopSuccessor returns the raw mate-loop successor of id, one step
// around the LOOP_START->RC->MATE->MATE_RC->LOOP_START cycle (spec
// §4.5.2), with no interpretation of direction. Most callers want
// RevComp, Mate, or MateRC instead; this is exposed for code (e.g. the
// merge pipeline's migration) that needs to walk every member of a
// read's pairing group rather than jump directly to one of them.
func (rm *Readmap) LoopSuccessor(id uint32) (uint32, error) {
	rm.checkID(id)
	if rm.mateLoop == nil {
		return 0, kinderr.E(kinderr.Input, "readmap: no mate loop table; migrate or rebuild with pairing enabled")
	}
	return uint32(rm.mateLoop.Get(int(id))), nil
}

// RevComp returns the read id of the reverse complement of id. Requires
// a mate loop (spec §4.5.2).
func (rm *Readmap) RevComp(id uint32) (uint32, error) {
	rm.checkID(id)
	if rm.mateLoop == nil {
		return 0, kinderr.E(kinderr.Input, "readmap: no mate loop table; migrate or rebuild with pairing enabled")
	}
	count := 1
	if !rm.IsForward(id) {
		count = 3
	}
	cur := uint64(id)
	for i := 0; i < count; i++ {
		cur = rm.mateLoop.Get(int(cur))
	}
	return uint32(cur), nil
}

// MateRC returns the read id of the reverse complement of id's mate.
// Requires a mate loop.
func (rm *Readmap) MateRC(id uint32) (uint32, error) {
	rm.checkID(id)
	if rm.mateLoop == nil {
		return 0, kinderr.E(kinderr.Input, "readmap: no mate loop table; migrate or rebuild with pairing enabled")
	}
	count := 3
	if !rm.IsForward(id) {
		count = 1
	}
	cur := uint64(id)
	for i := 0; i < count; i++ {
		cur = rm.mateLoop.Get(int(cur))
	}
	return uint32(cur), nil
}

// NumBases returns the total input base count (each read counted once,
// not its reverse complement).
func (rm *Readmap) NumBases() uint64 {
	var sum uint64
	for i := 0; i < rm.Size(); i++ {
		sum += uint64(rm.readLengths.Get(i))
	}
	return sum / 2
}

// PairStats summarizes paired vs. unpaired reads and bases.
type PairStats struct {
	PairedReads, UnpairedReads int64
	PairedBases, UnpairedBases int64
}

// PairStats computes paired/unpaired read and base counts.
func (rm *Readmap) PairStats() PairStats {
	var s PairStats
	for i := 0; i < rm.Size(); i++ {
		if rm.HasMate(uint32(i)) {
			s.PairedReads++
			s.PairedBases += int64(rm.readLengths.Get(i))
		} else {
			s.UnpairedReads++
			s.UnpairedBases += int64(rm.readLengths.Get(i))
		}
	}
	// Every read was counted in both orientations.
	s.PairedReads /= 2
	s.UnpairedReads /= 2
	s.PairedBases /= 2
	s.UnpairedBases /= 2
	return s
}

// calcReadLenLimits computes min/max read length on first use; cheap
// enough (a single linear scan) that this repo skips the teacher's
// chunked-parallel-for + mutex dance (calc_read_len_limits) in favor of a
// plain loop, run once and cached.
func (rm *Readmap) calcReadLenLimits() {
	if rm.maxReadLen != 0 || rm.minReadLen != 0 {
		return
	}
	min, max := ^uint(0), uint(0)
	for i := 0; i < rm.Size(); i++ {
		l := uint(rm.readLengths.Get(i))
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	if rm.Size() == 0 {
		min = 0
	}
	rm.minReadLen, rm.maxReadLen = min, max
}

// MinReadLen returns the shortest read length in the map.
func (rm *Readmap) MinReadLen() uint {
	rm.calcReadLenLimits()
	return rm.minReadLen
}

// MaxReadLen returns the longest read length in the map.
func (rm *Readmap) MaxReadLen() uint {
	rm.calcReadLenLimits()
	return rm.maxReadLen
}
