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

import "encoding/binary"

// wordsToBytes flattens words into a little-endian byte slice, the
// on-disk representation every packed structure in this package shares
// (spec §6.2's "fixed" part is spelled out the same way: "5·u64
// little-endian").
func wordsToBytes(words []uint64) []byte {
	out := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

func bytesToWords(data []byte) []uint64 {
	words := make([]uint64, len(data)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return words
}

// Bytes serializes v's backing words for storage in a spiral-file part.
func (v *Vector) Bytes() []byte { return wordsToBytes(v.words) }

// VectorFromBytes reconstructs a Vector previously serialized with Bytes.
func VectorFromBytes(data []byte, n int, width uint) *Vector {
	return &Vector{width: width, n: n, words: bytesToWords(data)}
}

// Bytes serializes b's backing words (the rank index is not included;
// BitcountFromBytes rebuilds it).
func (b *Bitcount) Bytes() []byte { return wordsToBytes(b.words) }

// BitcountFromBytes reconstructs a finalized Bitcount previously
// serialized with Bytes, re-running Finalize to rebuild the rank index.
func BitcountFromBytes(data []byte, n int) *Bitcount {
	b := &Bitcount{n: n, words: bytesToWords(data)}
	b.Finalize()
	return b
}
