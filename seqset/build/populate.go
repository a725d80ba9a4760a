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
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/seqset"
)

// populateSeqset runs spec §4.6.4's final pass over the sorted, deduped
// entry set: size and shared are filled directly, and prev_a[i] is set
// whenever some entry equals a prepended to entry(i). The original
// tracks this with four parallel cursors advancing in lockstep with the
// main scan; this formulation instead looks up "a+entry(i)" by binary
// search against the same sorted set, an O(n log n) restatement of the
// same O(n) fact (entries is already in memory and sorted, so the
// lookup is cheap, and the cursor bookkeeping buys nothing extra here).
func populateSeqset(ss *seqset.Seqset, entries []dna.Sequence) error {
	for i, e := range entries {
		ss.SetEntrySize(i, uint(len(e)))
		shared := 0
		if i > 0 {
			shared = dna.SharedPrefixLen(entries[i-1], e)
		}
		ss.SetShared(i, uint(shared))
	}
	extended := make(dna.Sequence, 0, 64)
	for b := dna.Base(0); b < 4; b++ {
		for i, e := range entries {
			extended = extended[:0]
			extended = append(extended, byte(b))
			extended = append(extended, e...)
			if searchExact(entries, extended) >= 0 {
				ss.SetBit(i, b)
			}
		}
	}
	return ss.Finalize()
}
