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

package seqset

import (
	"sort"

	"github.com/grailbio/biograph/internal/dna"
)

// buildFromStrings is a brute-force reference builder used only by this
// package's tests: it materializes every suffix of each input sequence
// (the set push_front/pop_front require: closed under dropping the first
// base), sorts and dedups them, and populates a Seqset the slow way. This
// is deliberately a larger entry set than seqset/build's pipeline produces
// for the same input (it only sorts and prefix-dedups its seed reads,
// without eagerly materializing every suffix as its own entry); this
// helper exists to exercise Seqset/Range/search against an entry set with
// real suffix structure, independent of that pipeline.
func buildFromStrings(seqs ...string) (*Seqset, []dna.Sequence) {
	var all []dna.Sequence
	seen := map[string]bool{}
	for _, s := range seqs {
		seq, err := dna.FromString(s)
		if err != nil {
			panic(err)
		}
		for i := 0; i <= len(seq); i++ {
			suffix := seq[i:]
			key := suffix.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, suffix)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Less(all[j]) })

	maxLen := 0
	for _, e := range all {
		if len(e) > maxLen {
			maxLen = len(e)
		}
	}
	ss := New(len(all), uint(maxLen))
	for i, e := range all {
		ss.SetEntrySize(i, uint(len(e)))
		shared := 0
		if i > 0 {
			shared = dna.SharedPrefixLen(all[i-1], e)
		}
		ss.SetShared(i, uint(shared))
		// prev_b[i] marks whether prepending b to entry i yields another
		// entry already present in the set (the BWT-style predecessor
		// relation push_front/pop_front invert).
		for b := dna.Base(0); b < 4; b++ {
			extended := append(dna.Sequence{byte(b)}, e...)
			if seen[extended.String()] {
				ss.SetBit(i, b)
			}
		}
	}
	if err := ss.Finalize(); err != nil {
		panic(err)
	}
	return ss, all
}
