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
)

func bruteNextLess(v []int32, i int, threshold int32) int {
	for j := i + 1; j < len(v); j++ {
		if v[j] < threshold {
			return j
		}
	}
	return len(v)
}

func brutePrevLess(v []int32, i int, threshold int32) int {
	for j := i - 1; j >= 0; j-- {
		if v[j] < threshold {
			return j
		}
	}
	return -1
}

func TestLessThanSearchAgainstBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 3, 7, 8, 9, 31, 32, 33, 100, 257} {
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(r.Intn(20))
		}
		lt := NewLessThanSearch(v)
		for trial := 0; trial < 50; trial++ {
			i := r.Intn(n + 1) - 1 // -1..n-1
			threshold := int32(r.Intn(22))
			assert.Equal(t, bruteNextLess(v, i, threshold), lt.NextLess(i, threshold),
				"n=%d i=%d threshold=%d", n, i, threshold)
			j := r.Intn(n + 1) // 0..n
			assert.Equal(t, brutePrevLess(v, j, threshold), lt.PrevLess(j, threshold),
				"n=%d j=%d threshold=%d", n, j, threshold)
		}
	}
}

func TestLessThanSearchNotFound(t *testing.T) {
	v := []int32{5, 5, 5, 5}
	lt := NewLessThanSearch(v)
	assert.Equal(t, len(v), lt.NextLess(0, 5))
	assert.Equal(t, -1, lt.PrevLess(len(v), 5))
}

func TestLessThanSearchNonPowerOfTwo(t *testing.T) {
	// n=5 is not a power of two; exercises the padded-leaf sentinel path.
	v := []int32{3, 9, 1, 9, 9}
	lt := NewLessThanSearch(v)
	assert.Equal(t, 2, lt.NextLess(0, 5))
	assert.Equal(t, 5, lt.NextLess(2, 5))
	assert.Equal(t, 2, lt.PrevLess(5, 5))
	assert.Equal(t, 0, lt.PrevLess(2, 5))
}
