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

package bitpack

// LessThanSearch answers "smallest index j>i with v[j]<t" (and the
// symmetric leftward query) in O(log N) by keeping a segment tree of
// per-block minima over a caller-supplied array of small integers (spec
// §4.1). It is used only to accelerate seqset's push_front_drop (§4.4.3),
// which otherwise must scan outward from a range linearly to find the
// next entry sharing fewer bases with its neighbor.
type LessThanSearch struct {
	n      int   // logical length (queries are restricted to [0, n))
	padded int   // next power of two >= n, the recursive descent's leaf count
	tree   []int32
}

const sentinelMax = int32(1<<31 - 1)

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p == 0 {
		p = 1
	}
	return p
}

// NewLessThanSearch builds the summary over v. v is not retained. The
// backing tree is padded to a power of two so that the recursive interval
// descent in firstBelow/lastBelow below has a well-defined [nlo, nhi)
// range at every node; padding entries are sentinels that never compare
// less than a caller threshold.
func NewLessThanSearch(v []int32) *LessThanSearch {
	n := len(v)
	padded := nextPow2(n)
	t := &LessThanSearch{n: n, padded: padded, tree: make([]int32, 2*padded)}
	for i := range t.tree[padded : padded+padded] {
		t.tree[padded+i] = sentinelMax
	}
	copy(t.tree[padded:], v)
	for i := padded - 1; i >= 1; i-- {
		t.tree[i] = minInt32(t.tree[2*i], t.tree[2*i+1])
	}
	return t
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// rangeMin returns the minimum of v[lo:hi), or math.MaxInt32 if lo >= hi.
func (t *LessThanSearch) rangeMin(lo, hi int) int32 {
	if lo >= hi {
		return sentinelMax
	}
	lo += t.padded
	hi += t.padded
	res := sentinelMax
	for lo < hi {
		if lo&1 == 1 {
			res = minInt32(res, t.tree[lo])
			lo++
		}
		if hi&1 == 1 {
			hi--
			res = minInt32(res, t.tree[hi])
		}
		lo >>= 1
		hi >>= 1
	}
	return res
}

// NextLess returns the smallest index j in (i, n) with v[j] < t, or n if
// there is none.
func (t *LessThanSearch) NextLess(i int, threshold int32) int {
	lo := i + 1
	if lo >= t.n {
		return t.n
	}
	if t.rangeMin(lo, t.n) >= threshold {
		return t.n
	}
	// Descend the tree, always choosing the left child that still
	// contains a value below threshold.
	return t.firstBelow(1, 0, t.padded, lo, t.n, threshold)
}

// PrevLess returns the largest index j in [0, i) with v[j] < t, or -1 if
// there is none.
func (t *LessThanSearch) PrevLess(i int, threshold int32) int {
	hi := i
	if hi <= 0 {
		return -1
	}
	if t.rangeMin(0, hi) >= threshold {
		return -1
	}
	return t.lastBelow(1, 0, t.padded, 0, hi, threshold)
}

// firstBelow finds the first index in [qlo, qhi) with a value < threshold,
// restricted to the subtree rooted at node covering [nlo, nhi).
func (t *LessThanSearch) firstBelow(node, nlo, nhi, qlo, qhi int, threshold int32) int {
	if qhi <= nlo || nhi <= qlo || t.tree[node] >= threshold {
		return t.n
	}
	if nhi-nlo == 1 {
		return nlo
	}
	mid := (nlo + nhi) / 2
	if r := t.firstBelow(2*node, nlo, mid, qlo, qhi, threshold); r != t.n {
		return r
	}
	return t.firstBelow(2*node+1, mid, nhi, qlo, qhi, threshold)
}

func (t *LessThanSearch) lastBelow(node, nlo, nhi, qlo, qhi int, threshold int32) int {
	if qhi <= nlo || nhi <= qlo || t.tree[node] >= threshold {
		return -1
	}
	if nhi-nlo == 1 {
		return nlo
	}
	mid := (nlo + nhi) / 2
	if r := t.lastBelow(2*node+1, mid, nhi, qlo, qhi, threshold); r != -1 {
		return r
	}
	return t.lastBelow(2*node, nlo, mid, qlo, qhi, threshold)
}
