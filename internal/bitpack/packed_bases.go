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

// PackedBases is a 2-bit-per-base specialization of Vector, used to store
// DNA sequences compactly in the flat/merged entry streams (spec §4.7.1)
// and on disk (spec §6.2: "2 bits per base packed AAAA|CCCC|..., first
// base in the low bits of the first byte"). It is a thin convenience
// wrapper: PackedBases is exactly Vector with Width()==2.
type PackedBases struct {
	*Vector
}

// NewPackedBases allocates storage for n bases.
func NewPackedBases(n int) PackedBases {
	return PackedBases{NewVector(n, 2)}
}

// SetBase stores base (0..3) at position i.
func (p PackedBases) SetBase(i int, base byte) {
	p.Set(i, uint64(base))
}

// GetBase returns the base (0..3) at position i.
func (p PackedBases) GetBase(i int) byte {
	return byte(p.Get(i))
}

// ToBytes unpacks the first n bases into a one-byte-per-base slice, the
// in-memory dna.Sequence convention.
func (p PackedBases) ToBytes(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = p.GetBase(i)
	}
	return out
}

// PackBytes packs a one-byte-per-base slice into a fresh PackedBases.
func PackBytes(bases []byte) PackedBases {
	p := NewPackedBases(len(bases))
	for i, b := range bases {
		p.SetBase(i, b)
	}
	return p
}
