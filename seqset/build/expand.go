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
	"sort"

	"github.com/grailbio/biograph/internal/dna"
)

// sortDedup sorts entries lexicographically and collapses the
// prefix-equivalence relation (spec §4.6.2 step 1/3), keeping the longer
// representative of any X that is a prefix of a kept Y.
func sortDedup(entries []dna.Sequence) []dna.Sequence {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })
	out := entries[:0]
	for i, e := range entries {
		if i+1 < len(entries) && entries[i+1].HasPrefix(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// searchExact returns the index of an exact match for target in sorted,
// or -1.
func searchExact(sorted []dna.Sequence, target dna.Sequence) int {
	idx := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Less(target) })
	if idx < len(sorted) && sorted[idx].Equal(target) {
		return idx
	}
	return -1
}

// dedupExact sorts entries lexicographically and removes byte-identical
// duplicates, without collapsing prefix relationships (mem_seqset.cpp
// sorts+dedups m_originals the same way before expansion: two distinct
// reads where one is a strict prefix of the other both survive this
// pass, only true duplicates are dropped).
func dedupExact(entries []dna.Sequence) []dna.Sequence {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })
	out := entries[:0]
	for i, e := range entries {
		if i > 0 && out[len(out)-1].Equal(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// hasPrefixRelation reports whether suffix is in a prefix relation (in
// either direction) with some entry of sorted: mem_seqset.cpp's
// expand_one_read answers the same question with a std::binary_search
// whose comparator truncates both operands to the shorter of the two
// lengths before comparing, which is exactly bidirectional HasPrefix.
// Any entry standing in that relation to suffix sorts immediately before
// or after it, so checking the two neighbors returned by sort.Search is
// enough.
func hasPrefixRelation(sorted []dna.Sequence, suffix dna.Sequence) bool {
	idx := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Less(suffix) })
	for _, j := range [2]int{idx - 1, idx} {
		if j < 0 || j >= len(sorted) {
			continue
		}
		if o := sorted[j]; o.HasPrefix(suffix) || suffix.HasPrefix(o) {
			return true
		}
	}
	return false
}

// expandOne returns the decreasing-length, non-empty proper suffixes of
// read that are not already covered by originals, stopping at the first
// suffix that is. This is a direct port of mem_seqset.cpp's
// expand_one_read: walk offset from 1 up to (exclusive) len(read),
// checking read[offset:] against the frozen original set and returning
// as soon as a covering entry is found.
func expandOne(read dna.Sequence, originals []dna.Sequence) []dna.Sequence {
	var out []dna.Sequence
	for offset := 1; offset < len(read); offset++ {
		suffix := read[offset:]
		if hasPrefixRelation(originals, suffix) {
			return out
		}
		out = append(out, suffix.Clone())
	}
	return out
}

// buildEntrySet runs spec §4.6.2 over seed, returning the final sorted,
// prefix-unique entry set E.
//
// Step 2 expands every original read into its suffixes via expandOne,
// checked against the frozen, sorted-and-deduped original set only (not
// against any other read's own expansions, and not iterated to a fixed
// point) — mem_seqset.cpp's m_next_read walks m_originals exactly once,
// in however many one_expand_pass calls its buffer-size chunking takes,
// never revisiting a read or widening the comparison set. Every pass's
// output is then merged with the originals themselves and put through
// the same sort-and-prefix-collapse as step 1/3 (do_merge's my_unique
// keeps the longer of two prefix-equivalent flyweights, which is exactly
// what sortDedup already does), producing the final entry set in one
// pass over the corpus. parallelism is accepted for API stability with
// callers that still pass it; expandOne's per-read work is independent
// and a future change can fan it out across parallelism goroutines.
func buildEntrySet(seed []flyweight, repo dna.Sequence, parallelism int) []dna.Sequence {
	raw := make([]dna.Sequence, len(seed))
	for i, f := range seed {
		raw[i] = f.bases(repo).Clone()
	}
	originals := dedupExact(raw)

	entries := make([]dna.Sequence, len(originals))
	copy(entries, originals)
	for _, o := range originals {
		entries = append(entries, expandOne(o, originals)...)
	}
	return sortDedup(entries)
}
