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

package sparsemulti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildExample(t *testing.T) (*Map, []uint64) {
	// destinations 0..8, grouped by source as:
	// source 2: dests 0,1,2
	// source 2: (same run continues, still group 0)
	// source 5: dests 3
	// source 5: dests 4,5
	// source 9: dests 6,7,8
	dests := []uint64{2, 2, 2, 5, 5, 5, 9, 9, 9}
	b := NewBuilder(len(dests), 9)
	for _, s := range dests {
		b.Append(s)
	}
	m := b.Finish()
	require.Equal(t, 3, m.NumGroups())
	return m, dests
}

func TestDestinationToSource(t *testing.T) {
	m, dests := buildExample(t)
	for d, want := range dests {
		assert.Equal(t, want, m.DestinationToSource(d), "dest %d", d)
	}
}

func TestDestinationToGroupDedup(t *testing.T) {
	m, _ := buildExample(t)
	assert.Equal(t, 0, m.DestinationToGroup(0))
	assert.Equal(t, 0, m.DestinationToGroup(2))
	assert.Equal(t, 1, m.DestinationToGroup(3))
	assert.Equal(t, 1, m.DestinationToGroup(5))
	assert.Equal(t, 2, m.DestinationToGroup(8))
}

func TestSourceRange(t *testing.T) {
	m, _ := buildExample(t)
	lo, hi, ok := m.SourceRange(5)
	require.True(t, ok)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 6, hi)

	lo, hi, ok = m.SourceRange(9)
	require.True(t, ok)
	assert.Equal(t, 6, lo)
	assert.Equal(t, 9, hi)

	_, _, ok = m.SourceRange(4)
	assert.False(t, ok)
}

func TestSingleDestinationGroups(t *testing.T) {
	b := NewBuilder(4, 100)
	b.Append(10)
	b.Append(20)
	b.Append(20)
	b.Append(99)
	m := b.Finish()
	assert.Equal(t, 3, m.NumGroups())
	lo, hi, ok := m.SourceRange(20)
	require.True(t, ok)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)
}

func TestFinishBeforeCompletePanics(t *testing.T) {
	b := NewBuilder(3, 10)
	b.Append(1)
	assert.Panics(t, func() { b.Finish() })
}
