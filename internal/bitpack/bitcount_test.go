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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRandomBitcount(n int, seed int64) (*Bitcount, []bool) {
	b := NewBitcount(n)
	bits := make([]bool, n)
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		if r.Intn(3) == 0 {
			b.Set(i)
			bits[i] = true
		}
	}
	b.Finalize()
	return b, bits
}

func TestBitcountRank1(t *testing.T) {
	n := 1000
	b, bits := buildRandomBitcount(n, 1)
	rank := 0
	for i := 0; i <= n; i++ {
		assert.Equal(t, rank, b.Rank1(i), "rank mismatch at %d", i)
		if i < n && bits[i] {
			rank++
		}
	}
	assert.Equal(t, rank, b.PopCount())
}

func TestBitcountSelect1(t *testing.T) {
	n := 500
	b, bits := buildRandomBitcount(n, 2)
	var ones []int
	for i, set := range bits {
		if set {
			ones = append(ones, i)
		}
	}
	for k, want := range ones {
		assert.Equal(t, want, b.Select1(k))
	}
	assert.Equal(t, -1, b.Select1(len(ones)))
	assert.Equal(t, -1, b.Select1(-1))
}

func TestBitcountSetAfterFinalizePanics(t *testing.T) {
	b := NewBitcount(8)
	b.Finalize()
	require.Panics(t, func() { b.Set(0) })
}

func TestBitcountSetAtomicConcurrent(t *testing.T) {
	b := NewBitcount(64)
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		w := w
		go func() {
			for i := w; i < 64; i += 4 {
				b.SetAtomic(i)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	b.Finalize()
	assert.Equal(t, 64, b.PopCount())
}

func TestBitcountEmpty(t *testing.T) {
	b := NewBitcount(0)
	b.Finalize()
	assert.Equal(t, 0, b.PopCount())
	assert.Equal(t, -1, b.Select1(0))
}
