// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dna defines the 4-symbol DNA alphabet and sequence operations
// shared by seqset, readmap, mergemap, and merger. A Sequence is one byte
// per base with ACGT encoded as 0123, the in-memory convention used
// throughout the teacher's biosimd package (which encodes the same
// alphabet as ACGT=0123 for its ReverseComp2* family); on-disk forms pack
// four bases per byte (see internal/bitpack.PackedBases).
package dna

import (
	"fmt"

	"github.com/grailbio/base/simd"
)

// Base is one of the four DNA bases, encoded 0..3.
type Base byte

// The four bases, in the canonical sort order used to assign seqset ids.
const (
	A Base = 0
	C Base = 1
	G Base = 2
	T Base = 3
)

// NumBases is the alphabet size.
const NumBases = 4

func (b Base) String() string {
	switch b {
	case A:
		return "A"
	case C:
		return "C"
	case G:
		return "G"
	case T:
		return "T"
	default:
		return fmt.Sprintf("Base(%d)", byte(b))
	}
}

// Complement returns the Watson-Crick complement of b: A<->T, C<->G.
func (b Base) Complement() Base {
	return 3 - b
}

// Sequence is a non-owning view over a list of bases, one byte per base,
// each in [0,4). It is ordered lexicographically over the integer codes.
type Sequence []byte

// FromString parses an upper-case ACGT string into a Sequence.
func FromString(s string) (Sequence, error) {
	seq := make(Sequence, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A':
			seq[i] = byte(A)
		case 'C':
			seq[i] = byte(C)
		case 'G':
			seq[i] = byte(G)
		case 'T':
			seq[i] = byte(T)
		default:
			return nil, fmt.Errorf("dna: invalid base %q at offset %d in %q", s[i], i, s)
		}
	}
	return seq, nil
}

// String renders seq back to an upper-case ACGT string.
func (seq Sequence) String() string {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[i] = "ACGT"[b]
	}
	return string(out)
}

// Base returns the base at position i.
func (seq Sequence) Base(i int) Base { return Base(seq[i]) }

// Less reports whether seq sorts strictly before other, lexicographically
// over the integer base codes (a strict prefix sorts before its extension).
func (seq Sequence) Less(other Sequence) bool {
	n := len(seq)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if seq[i] != other[i] {
			return seq[i] < other[i]
		}
	}
	return len(seq) < len(other)
}

// Equal reports byte-for-byte equality.
func (seq Sequence) Equal(other Sequence) bool {
	if len(seq) != len(other) {
		return false
	}
	for i := range seq {
		if seq[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a prefix of seq.
func (seq Sequence) HasPrefix(prefix Sequence) bool {
	if len(prefix) > len(seq) {
		return false
	}
	return seq[:len(prefix)].Equal(prefix)
}

// SharedPrefixLen returns the length of the longest common prefix of a and b.
func SharedPrefixLen(a, b Sequence) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// RevComp returns the reverse complement of seq: bases are complemented and
// the order is reversed. Adapted from the teacher's
// biosimd.ReverseComp2(dst, src), which reverse-complements an ACGT=0123
// byte sequence via simd.Reverse8 (byte reversal) followed by
// simd.XorConst8Inplace(dst, 3) (complementing every base in place, since
// complement(b) == 3-b == 3^b for b in {0,1,2,3}).
func (seq Sequence) RevComp() Sequence {
	out := make(Sequence, len(seq))
	simd.Reverse8(out, seq)
	simd.XorConst8Inplace(out, 3)
	return out
}

// RevCompInplace reverse-complements seq in place.
func (seq Sequence) RevCompInplace() {
	simd.Reverse8Inplace(seq)
	simd.XorConst8Inplace(seq, 3)
}

// Clone returns an independent copy of seq.
func (seq Sequence) Clone() Sequence {
	out := make(Sequence, len(seq))
	copy(out, seq)
	return out
}
