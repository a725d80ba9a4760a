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
	"runtime"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/seqset"
)

// bytesPerBase is a conservative per-base memory estimate (working
// sequence copies plus expansion overhead) used by the upfront budget
// check of spec §4.6.5; it is deliberately pessimistic since the check
// must fail before any large allocation happens, not after.
const bytesPerBase = 24

// Options configures Build.
type Options struct {
	// Reference, if non-nil, is searched for exact matches before a read
	// is committed to the non-reference region (spec §4.6.1).
	Reference ReferenceIndex
	// ReferenceSeq is the reference bases Reference indexes; required
	// whenever Reference is non-nil.
	ReferenceSeq dna.Sequence
	// MaxMemBytes bounds the estimated memory the expand/dedup pipeline
	// may use; 0 means unbounded.
	MaxMemBytes int64
}

// Build runs spec §4.6 over records, returning a finalized seqset.
func Build(ctx biograph.Context, records []Record, opts Options) (*seqset.Seqset, error) {
	var totalBases int64
	for _, rec := range records {
		totalBases += int64(len(rec.Mate1))
		if rec.Mate2 != nil {
			totalBases += int64(len(rec.Mate2))
		}
	}
	if opts.MaxMemBytes > 0 && totalBases*bytesPerBase > opts.MaxMemBytes {
		return nil, kinderr.Errorf(kinderr.Limit,
			"seqset/build: estimated memory %d bytes exceeds budget %d bytes", totalBases*bytesPerBase, opts.MaxMemBytes)
	}

	parallelism := ctx.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	ctx.Report("load", 0, int64(len(records)))
	repo, slots, err := loadRepo(records, opts.Reference, opts.ReferenceSeq)
	if err != nil {
		return nil, err
	}
	if ctx.Cancelled() {
		return nil, kinderr.E(kinderr.Cancelled, "seqset/build: cancelled during load")
	}

	seed := originals(slots)
	ctx.Report("expand", 0, int64(len(seed)))
	entries := buildEntrySet(seed, repo, parallelism)
	if ctx.Cancelled() {
		return nil, kinderr.E(kinderr.Cancelled, "seqset/build: cancelled during expand")
	}

	maxLen := 0
	for _, e := range entries {
		if len(e) > maxLen {
			maxLen = len(e)
		}
	}
	ss := seqset.New(len(entries), uint(maxLen))
	ctx.Report("populate", 0, int64(len(entries)))
	if err := populateSeqset(ss, entries); err != nil {
		return nil, err
	}
	ctx.Report("populate", int64(len(entries)), int64(len(entries)))
	return ss, nil
}
