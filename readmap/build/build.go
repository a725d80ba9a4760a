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

// Package build constructs a Readmap from a built seqset and a stream of
// corrected-read records (spec §4.8).
package build

import (
	"runtime"
	"sort"

	"github.com/grailbio/base/traverse"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/sparsemulti"
	"github.com/grailbio/biograph/readmap"
	"github.com/grailbio/biograph/seqset"
)

// Record is a single input: either a lone read (Mate2 nil) or an ordered
// pair.
type Record struct {
	Mate1, Mate2 dna.Sequence
}

// Options configures Build.
type Options struct {
	// MaxReadLen bounds the read length the readmap can store (spec
	// §4.5.3); 0 selects the original format's cap of 255.
	MaxReadLen uint
}

const defaultMaxReadLen = 255

// role identifies a mate-loop row's position in its record's successor
// cycle (spec §4.8's row table).
type role int

const (
	roleLoopStart role = iota
	roleRC
	roleMate
	roleMateRC
)

// row is one mate-loop entry prior to final id assignment.
type row struct {
	seqsetID    uint64
	length      int
	forward     bool
	group       int
	role        role
	numRoles    int // 2 (unpaired) or 4 (paired)
	successorID uint64 // seqsetID of the row this one points to, for the canonical sort key
	mateLength  int
	orderHint   int
}

func (r row) nextRole() role {
	return role((int(r.role) + 1) % r.numRoles)
}

// Build runs spec §4.8 over records against the already-finalized ss,
// returning a readmap whose mate_loop_ptr satisfies the succ-cycle
// invariants of spec §4.5.2/§8.1#6.
func Build(ctx biograph.Context, ss *seqset.Seqset, records []Record, opts Options) (*readmap.Readmap, error) {
	maxLen := opts.MaxReadLen
	if maxLen == 0 {
		maxLen = defaultMaxReadLen
	}

	parallelism := ctx.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	rowsPerGroup := make([][]row, len(records))
	ctx.Report("readmap:find", 0, int64(len(records)))
	shards := parallelism
	if shards > len(records) {
		shards = len(records)
	}
	if shards < 1 {
		shards = 1
	}
	if len(records) > 0 {
		err := traverse.Each(shards, func(shard int) error {
			lo := (shard * len(records)) / shards
			hi := ((shard + 1) * len(records)) / shards
			for i := lo; i < hi; i++ {
				grp, err := buildGroup(ss, records[i], i, int(maxLen))
				if err != nil {
					return err
				}
				rowsPerGroup[i] = grp
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if ctx.Cancelled() {
		return nil, kinderr.E(kinderr.Cancelled, "readmap/build: cancelled while locating reads")
	}

	var rows []row
	for _, grp := range rowsPerGroup {
		rows = append(rows, grp...)
	}

	// Sort canonically so the final id assignment is deterministic
	// regardless of record input order or goroutine scheduling (spec
	// §4.8 step 1, §5's "one final sort" ordering guarantee). This repo
	// assigns final ids directly from sorted position instead of an
	// atomic claim-next slot race, since the rows are already fully
	// known in memory by this point and a plain sort is simpler and
	// equally deterministic.
	sort.Slice(rows, func(i, j int) bool { return rowLess(rows[i], rows[j]) })

	finalID := make(map[rowKey]int, len(rows))
	for id, r := range rows {
		finalID[rowKey{r.group, r.role}] = id
	}

	n := len(rows)
	readLengths := bitpack.NewVector(n, bitpack.WidthForMaxValue(uint64(maxLen)))
	isForward := bitpack.NewVector(n, 1)
	mateLoop := bitpack.NewVector(n, 32)
	builder := sparsemulti.NewBuilder(n, uint64(ss.Size()))

	ctx.Report("readmap:assemble", 0, int64(n))
	for id, r := range rows {
		readLengths.Set(id, uint64(r.length))
		if r.forward {
			isForward.Set(id, 1)
		}
		next := finalID[rowKey{r.group, r.nextRole()}]
		mateLoop.Set(id, uint64(next))
		builder.Append(r.seqsetID)
	}
	ctx.Report("readmap:assemble", int64(n), int64(n))

	return readmap.New(readmap.Components{
		SeqsetUUID:  ss.UUID(),
		Seqset:      ss,
		ReadIDs:     builder.Finish(),
		ReadLengths: readLengths,
		IsForward:   isForward,
		MateLoop:    mateLoop,
	}), nil
}

type rowKey struct {
	group int
	role  role
}

func rowLess(a, b row) bool {
	if a.seqsetID != b.seqsetID {
		return a.seqsetID < b.seqsetID
	}
	if a.role != b.role {
		return a.role < b.role
	}
	if a.length != b.length {
		return a.length < b.length
	}
	if a.mateLength != b.mateLength {
		return a.mateLength < b.mateLength
	}
	if a.successorID != b.successorID {
		return a.successorID < b.successorID
	}
	return a.orderHint < b.orderHint
}

// buildGroup locates the seqset ids for one record's rows and fills in
// every row field except the final id (spec §4.8's 2-row unpaired / 4-row
// paired layout).
func buildGroup(ss *seqset.Seqset, rec Record, group, maxLen int) ([]row, error) {
	if len(rec.Mate1) > maxLen || (rec.Mate2 != nil && len(rec.Mate2) > maxLen) {
		return nil, kinderr.Errorf(kinderr.Limit, "readmap/build: read length exceeds the %d-base cap", maxLen)
	}

	locate := func(seq dna.Sequence) (uint64, error) {
		r := ss.Find(seq)
		if !r.Valid() {
			return 0, kinderr.Errorf(kinderr.Input, "readmap/build: read %s not found in seqset", seq)
		}
		return r.Begin(), nil
	}

	m1, err := locate(rec.Mate1)
	if err != nil {
		return nil, err
	}
	m1rc, err := locate(rec.Mate1.RevComp())
	if err != nil {
		return nil, err
	}

	if rec.Mate2 == nil {
		return []row{
			{seqsetID: m1, length: len(rec.Mate1), forward: true, group: group, role: roleLoopStart, numRoles: 2, successorID: m1rc, mateLength: len(rec.Mate1), orderHint: group},
			{seqsetID: m1rc, length: len(rec.Mate1), forward: false, group: group, role: roleRC, numRoles: 2, successorID: m1, mateLength: len(rec.Mate1), orderHint: group},
		}, nil
	}

	m2, err := locate(rec.Mate2)
	if err != nil {
		return nil, err
	}
	m2rc, err := locate(rec.Mate2.RevComp())
	if err != nil {
		return nil, err
	}

	return []row{
		{seqsetID: m1, length: len(rec.Mate1), forward: true, group: group, role: roleLoopStart, numRoles: 4, successorID: m1rc, mateLength: len(rec.Mate2), orderHint: group},
		{seqsetID: m1rc, length: len(rec.Mate1), forward: false, group: group, role: roleRC, numRoles: 4, successorID: m2, mateLength: len(rec.Mate2), orderHint: group},
		{seqsetID: m2, length: len(rec.Mate2), forward: true, group: group, role: roleMate, numRoles: 4, successorID: m2rc, mateLength: len(rec.Mate1), orderHint: group},
		{seqsetID: m2rc, length: len(rec.Mate2), forward: false, group: group, role: roleMateRC, numRoles: 4, successorID: m1, mateLength: len(rec.Mate1), orderHint: group},
	}, nil
}
