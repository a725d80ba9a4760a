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

import (
	"math/bits"
	"sync/atomic"

	"github.com/grailbio/base/bitset"
)

// blockWords is the number of 64-bit words summarized by one coarse rank
// counter. A small block keeps Rank1 to a handful of popcounts; this
// mirrors the teacher's circular.Bitmap, which keeps one population
// summary (wordPops) per logical row so that scans stay local to a few
// words instead of walking the whole bitmap (math/bits.OnesCount64 is
// used for the actual per-word count, the same intrinsic
// sourcegraph/zoekt's index reader reaches for popcounts; no packaged
// popcount exists anywhere in the corpus so the stdlib call is used
// directly rather than introducing a dependency for one function).
const blockWords = 8

// Bitcount is a rank-1 bit array: Get(i), and after Finalize, Rank1(i) in
// O(1) via a two-level (coarse block + per-word) index, and Select1(k) via
// binary search over the coarse index followed by a linear scan of the
// target block.
type Bitcount struct {
	n         int
	words     []uint64
	blockRank []uint64 // cumulative popcount at the start of block b
	finalized int32    // 0 = SETTING, 1 = READY (atomic so readers never see a half-populated state)
}

// NewBitcount allocates a Bitcount of n bits, all initially zero.
func NewBitcount(n int) *Bitcount {
	nwords := (n + WordBits - 1) / WordBits
	return &Bitcount{n: n, words: make([]uint64, nwords)}
}

// Len returns the number of bits.
func (b *Bitcount) Len() int { return b.n }

func (b *Bitcount) checkIndex(i int) {
	if i < 0 || i >= b.n {
		panic("bitpack: bitcount index out of range")
	}
}

// Get reports whether bit i is set.
func (b *Bitcount) Get(i int) bool {
	b.checkIndex(i)
	return b.words[i/WordBits]&(uint64(1)<<(uint(i)%WordBits)) != 0
}

// Set sets bit i to 1. It is a programming error to call Set after
// Finalize.
func (b *Bitcount) Set(i int) {
	if atomic.LoadInt32(&b.finalized) != 0 {
		panic("bitpack: Set called on a finalized Bitcount")
	}
	b.checkIndex(i)
	b.words[i/WordBits] |= uint64(1) << (uint(i) % WordBits)
}

// SetAtomic sets bit i to 1 using an atomic OR, safe for concurrent
// setters touching the same word (builders setting prev_a[i] from
// multiple worker goroutines, spec §5).
func (b *Bitcount) SetAtomic(i int) {
	if atomic.LoadInt32(&b.finalized) != 0 {
		panic("bitpack: SetAtomic called on a finalized Bitcount")
	}
	b.checkIndex(i)
	wordIdx := i / WordBits
	bit := uint64(1) << (uint(i) % WordBits)
	for {
		old := atomic.LoadUint64(&b.words[wordIdx])
		if old&bit != 0 {
			return
		}
		if atomic.CompareAndSwapUint64(&b.words[wordIdx], old, old|bit) {
			return
		}
	}
}

// Finalize computes the rank index. After Finalize, Rank1/Select1 are
// available and Set/SetAtomic must not be called. Readers must only ever
// observe a Bitcount that is either entirely un-finalized or entirely
// finalized — see IsFinalized.
func (b *Bitcount) Finalize() {
	nblocks := (len(b.words) + blockWords - 1) / blockWords
	blockRank := make([]uint64, nblocks+1)
	var total uint64
	for blk := 0; blk < nblocks; blk++ {
		blockRank[blk] = total
		start := blk * blockWords
		end := start + blockWords
		if end > len(b.words) {
			end = len(b.words)
		}
		for _, w := range b.words[start:end] {
			total += uint64(bits.OnesCount64(w))
		}
	}
	blockRank[nblocks] = total
	b.blockRank = blockRank
	atomic.StoreInt32(&b.finalized, 1)
}

// IsFinalized reports whether Finalize has completed.
func (b *Bitcount) IsFinalized() bool { return atomic.LoadInt32(&b.finalized) != 0 }

// Rank1 returns the number of set bits in [0, i). Requires Finalize.
func (b *Bitcount) Rank1(i int) int {
	if !b.IsFinalized() {
		panic("bitpack: Rank1 called before Finalize")
	}
	if i < 0 || i > b.n {
		panic("bitpack: Rank1 index out of range")
	}
	if i == 0 {
		return 0
	}
	wordIdx := (i - 1) / WordBits
	blk := wordIdx / blockWords
	count := int(b.blockRank[blk])
	blockStart := blk * blockWords
	for w := blockStart; w < wordIdx; w++ {
		count += bits.OnesCount64(b.words[w])
	}
	bitInWord := uint(i) - uint(wordIdx)*WordBits
	tail := b.words[wordIdx]
	if bitInWord < WordBits {
		tail &= (uint64(1) << bitInWord) - 1
	}
	count += bits.OnesCount64(tail)
	return count
}

// PopCount returns the total number of set bits, equivalent to Rank1(Len()).
func (b *Bitcount) PopCount() int { return b.Rank1(b.n) }

// Select1 returns the index of the k-th set bit (0-indexed), or -1 if
// there is no such bit. Requires Finalize. Implemented as a binary search
// over the coarse block index followed by a linear scan of the target
// block, since no inverse index is maintained (spec §4.1: "without it,
// select1 is a binary search over coarse counters followed by a scan").
func (b *Bitcount) Select1(k int) int {
	if !b.IsFinalized() {
		panic("bitpack: Select1 called before Finalize")
	}
	if k < 0 || k >= b.PopCount() {
		return -1
	}
	nblocks := len(b.blockRank) - 1
	// Find the last block whose cumulative rank is <= k.
	lo, hi := 0, nblocks-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if int(b.blockRank[mid]) <= k {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	blk := lo
	remaining := k - int(b.blockRank[blk])
	start := blk * blockWords
	end := start + blockWords
	if end > len(b.words) {
		end = len(b.words)
	}

	// Scan the target block's words with bitset.NonzeroWordScanner, the
	// same scanner circular.Bitmap.NewRowScanner hands callers for
	// walking set bits a row at a time: convert the uint64 block to the
	// []uintptr row shape it expects (cheap, at most blockWords words)
	// and walk its Next() sequence rather than hand-rolling the bit loop.
	row := make([]uintptr, end-start)
	nzWords := 0
	for i, w := range b.words[start:end] {
		row[i] = uintptr(w)
		if w != 0 {
			nzWords++
		}
	}
	scanner, col := bitset.NewNonzeroWordScanner(row, nzWords)
	for ; col != -1; col = scanner.Next() {
		if remaining == 0 {
			idx := start*WordBits + col
			if idx >= b.n {
				return -1
			}
			return idx
		}
		remaining--
	}
	return -1
}
