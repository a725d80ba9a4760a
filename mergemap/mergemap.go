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

// Package mergemap records, for one input seqset folded into a merged
// seqset, which merged entries it contributed (spec §4.7.3). Let M be the
// merged seqset and P the input: a bit is set at merged index x iff the
// sequence at x in M, or a prefix of it (see package merger), is an entry
// of P, in which case that entry has index Rank1(x) within P.
package mergemap

import (
	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
)

// Mergemap is a finalized, read-only per-input contribution record.
type Mergemap struct {
	origSeqsetUUID   uuid.UUID
	mergedSeqsetUUID uuid.UUID
	contributed      *bitpack.Bitcount // length = merged seqset size
}

// OrigSeqsetUUID identifies the input seqset this mergemap describes.
func (m *Mergemap) OrigSeqsetUUID() uuid.UUID { return m.origSeqsetUUID }

// MergedSeqsetUUID identifies the merged seqset this mergemap's bit
// positions are indexed against.
func (m *Mergemap) MergedSeqsetUUID() uuid.UUID { return m.mergedSeqsetUUID }

// Len returns the merged seqset's entry count.
func (m *Mergemap) Len() int { return m.contributed.Len() }

// Contains reports whether the input seqset contributed merged entry id.
func (m *Mergemap) Contains(mergedID uint64) bool {
	return m.contributed.Get(int(mergedID))
}

// OrigID returns the input seqset's own id for merged entry mergedID,
// valid only when Contains(mergedID). It is the count of set bits before
// mergedID (spec: "the sequence with index x in M will be the sequence
// with index B1.count(x) in P1").
func (m *Mergemap) OrigID(mergedID uint64) uint64 {
	return uint64(m.contributed.Rank1(int(mergedID)))
}

// NewMergedID is OrigID's inverse: given an id in the input seqset's own
// numbering, returns the corresponding merged id. Used by fast-migrate
// (package merger) to translate a readmap's seqset ids in one pass.
func (m *Mergemap) NewMergedID(origID uint64) uint64 {
	return uint64(m.contributed.Select1(int(origID)))
}

// NumContributed returns the number of merged entries this input
// contributed.
func (m *Mergemap) NumContributed() int { return m.contributed.PopCount() }

// Builder accumulates Mergemap's bit array as the merge walk discovers
// which merged entries each input participates in.
type Builder struct {
	origSeqsetUUID   uuid.UUID
	mergedSeqsetUUID uuid.UUID
	bits             *bitpack.Bitcount
}

// NewBuilder starts a Builder for an input seqset folded into a merged
// seqset of mergedEntryCount entries.
func NewBuilder(origSeqsetUUID, mergedSeqsetUUID uuid.UUID, mergedEntryCount int) *Builder {
	return &Builder{
		origSeqsetUUID:   origSeqsetUUID,
		mergedSeqsetUUID: mergedSeqsetUUID,
		bits:             bitpack.NewBitcount(mergedEntryCount),
	}
}

// Set records that this input contributed merged entry mergedID.
func (b *Builder) Set(mergedID int) { b.bits.Set(mergedID) }

// Finish finalizes the bit array and returns the completed Mergemap.
func (b *Builder) Finish() *Mergemap {
	b.bits.Finalize()
	return &Mergemap{
		origSeqsetUUID:   b.origSeqsetUUID,
		mergedSeqsetUUID: b.mergedSeqsetUUID,
		contributed:      b.bits,
	}
}
