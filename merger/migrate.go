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
	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/sparsemulti"
	"github.com/grailbio/biograph/mergemap"
	"github.com/grailbio/biograph/readmap"
	"github.com/grailbio/biograph/seqset"
)

// FastMigrate translates rm, built against mm's original seqset, into a
// readmap over the merged seqset, without re-deriving read length,
// orientation, or pairing (spec §4.7.4). Every read's new seqset id is
// mm.NewMergedID(old seqset id); because readmap ids are always in
// nondecreasing seqset-id order (a consequence of how Readmap's read_ids
// sparse-multi is built) and NewMergedID is monotone, the translated ids
// come out already in the nondecreasing order sparsemulti.Builder
// requires.
func FastMigrate(ctx biograph.Context, rm *readmap.Readmap, mm *mergemap.Mergemap, merged *seqset.Seqset) (*readmap.Readmap, error) {
	n := rm.Size()
	builder := sparsemulti.NewBuilder(n, uint64(merged.Size()))
	ctx.Report("migrate:fast", 0, int64(n))
	for id := 0; id < n; id++ {
		oldSeqsetID := rm.EntryID(uint32(id))
		if !mm.Contains(oldSeqsetID) {
			return nil, kinderr.Errorf(kinderr.Consistency,
				"merger: fast-migrate: read %d's seqset entry %d was not recorded as contributed", id, oldSeqsetID)
		}
		builder.Append(mm.NewMergedID(oldSeqsetID))
	}
	ctx.Report("migrate:fast", int64(n), int64(n))

	c := rm.Export()
	c.SeqsetUUID = merged.UUID()
	c.Seqset = merged
	c.ReadIDs = builder.Finish()
	return readmap.New(c), nil
}

// MigrateOptions configures SlowMigrate.
type MigrateOptions struct {
	// DropUnresolved, if true, drops whole mate-loop groups whose
	// sequence cannot be located in the destination seqset instead of
	// failing the migration outright.
	DropUnresolved bool
}

// mateLoopGroups partitions every read id into its mate-loop cycle (2
// members unpaired, 4 paired), used so SlowMigrate can drop or keep a
// whole pairing record atomically.
func mateLoopGroups(rm *readmap.Readmap) [][]int {
	n := rm.Size()
	seen := make([]bool, n)
	var groups [][]int
	for id := 0; id < n; id++ {
		if seen[id] {
			continue
		}
		group := []int{id}
		seen[id] = true
		cur, _ := rm.LoopSuccessor(uint32(id))
		for int(cur) != id && !seen[cur] {
			seen[cur] = true
			group = append(group, int(cur))
			cur, _ = rm.LoopSuccessor(cur)
		}
		groups = append(groups, group)
	}
	return groups
}

// SlowMigrate rebuilds rm's read_ids by re-locating every read's actual
// sequence in dst via Find, for use when no mergemap ties rm's seqset to
// dst (spec §4.7.5: the fallback path when the fast per-input bit
// mapping isn't available). It requires a mate-loop readmap; one opened
// with only the legacy mate-pair pointer must be upgraded first.
//
// Whenever a read's sequence can't be located in dst, opts.DropUnresolved
// decides whether the whole mate-loop group that read belongs to (2
// reads unpaired, 4 paired) is dropped together, keeping every surviving
// mate loop internally consistent, or the migration fails outright.
func SlowMigrate(ctx biograph.Context, rm *readmap.Readmap, dst *seqset.Seqset, opts MigrateOptions) (*readmap.Readmap, error) {
	if !rm.HasMateLoop() {
		return nil, kinderr.E(kinderr.Input, "merger: slow-migrate requires a mate-loop readmap")
	}
	n := rm.Size()

	newSeqsetID := make([]uint64, n)
	resolved := make([]bool, n)
	ctx.Report("migrate:slow", 0, int64(n))
	for id := 0; id < n; id++ {
		entry := rm.EntryID(uint32(id))
		r, err := rm.Seqset().EntryRange(entry)
		if err != nil {
			return nil, err
		}
		seq, err := r.Sequence(int(rm.ReadLength(uint32(id))))
		if err != nil {
			return nil, err
		}
		if found := dst.Find(seq); found.Valid() {
			newSeqsetID[id] = found.Begin()
			resolved[id] = true
		}
	}
	ctx.Report("migrate:slow", int64(n), int64(n))

	keep := make([]bool, n)
	for _, g := range mateLoopGroups(rm) {
		ok := true
		for _, id := range g {
			if !resolved[id] {
				ok = false
				break
			}
		}
		if !ok {
			if !opts.DropUnresolved {
				return nil, kinderr.E(kinderr.Input, "merger: slow-migrate: a read's sequence was not found in the destination seqset")
			}
			continue
		}
		for _, id := range g {
			keep[id] = true
		}
	}

	var order []int
	oldToNew := make(map[int]int, n)
	for id := 0; id < n; id++ {
		if keep[id] {
			oldToNew[id] = len(order)
			order = append(order, id)
		}
	}

	m := len(order)
	builder := sparsemulti.NewBuilder(m, uint64(dst.Size()))
	readLengths := bitpack.NewVector(m, rm.Export().ReadLengths.Width())
	isForward := bitpack.NewVector(m, 1)
	mateLoop := bitpack.NewVector(m, 32)
	for newID, oldID := range order {
		builder.Append(newSeqsetID[oldID])
		readLengths.Set(newID, uint64(rm.ReadLength(uint32(oldID))))
		if rm.IsForward(uint32(oldID)) {
			isForward.Set(newID, 1)
		}
		oldNext, err := rm.LoopSuccessor(uint32(oldID))
		if err != nil {
			return nil, err
		}
		newNext, ok := oldToNew[int(oldNext)]
		if !ok {
			return nil, kinderr.Errorf(kinderr.Consistency,
				"merger: slow-migrate: read %d's mate-loop successor was dropped independently", oldID)
		}
		mateLoop.Set(newID, uint64(newNext))
	}

	return readmap.New(readmap.Components{
		SeqsetUUID:  dst.UUID(),
		Seqset:      dst,
		ReadIDs:     builder.Finish(),
		ReadLengths: readLengths,
		IsForward:   isForward,
		MateLoop:    mateLoop,
	}), nil
}
