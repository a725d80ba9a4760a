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

package spiralfile

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// memBufKind discriminates the sealed set of MemBuf variants (redesign
// flag: "replace virtual base classes for membuf with a sealed set of
// variants behind a single type").
type memBufKind int

const (
	kindOwnedRAM memBufKind = iota
	kindMmapView
	kindFilePreload
	kindSubView
)

// MemBuf is a read-only view of one archive part's bytes. It is backed by
// one of four variants selected at open time and never dispatches
// virtually per access; every variant exposes the same flat []byte via
// Bytes.
//
//   - OwnedRAM: bytes fully owned by this MemBuf, e.g. an in-memory part
//     built by a Writer before Close.
//   - MmapView: a view into an mmap'd region of an open archive file.
//   - FilePreload: bytes read eagerly from disk into a private buffer
//     (spec §4.2's "open into RAM" mode, used for random-access-heavy
//     indexes on slow storage).
//   - SubView: a byte-range slice of another MemBuf, for nested sub-parts.
type MemBuf struct {
	kind   memBufKind
	data   []byte
	mapped []byte // the full mmap region, kept alive for munmap on Close
	parent *MemBuf
}

// NewOwnedRAM wraps a caller-owned byte slice as a MemBuf. Writer does not
// use it: CreatePart hands out a plain []byte.
func NewOwnedRAM(data []byte) MemBuf {
	return MemBuf{kind: kindOwnedRAM, data: data}
}

// newMmapView maps fd at [offset, offset+size) into memory; the returned
// MemBuf's Close unmaps it.
func newMmapView(fd int, offset int64, size int, writable bool) (MemBuf, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	// mmap requires the offset to be page-aligned; callers (Reader) pass
	// the whole-file mapping's base and slice from there instead of
	// mapping each part independently, so offset here is always 0 and
	// size is the whole file. See reader.go.
	region, err := unix.Mmap(fd, offset, size, prot, unix.MAP_SHARED)
	if err != nil {
		return MemBuf{}, fmt.Errorf("spiralfile: mmap failed: %w", err)
	}
	return MemBuf{kind: kindMmapView, data: region, mapped: region}, nil
}

// newFilePreload wraps eagerly-read bytes.
func newFilePreload(data []byte) MemBuf {
	return MemBuf{kind: kindFilePreload, data: data}
}

// Sub returns the [lo, hi) byte range of b as a SubView MemBuf. Used to
// carve a contiguous mmap'd or RAM-resident region into the named parts
// nested beneath it.
func (b MemBuf) Sub(lo, hi int) MemBuf {
	if lo < 0 || hi > len(b.data) || lo > hi {
		panic(fmt.Sprintf("spiralfile: invalid sub-range [%d,%d) of length %d", lo, hi, len(b.data)))
	}
	return MemBuf{kind: kindSubView, data: b.data[lo:hi], parent: &b}
}

// Bytes returns the view's bytes. The slice is valid until Close.
func (b MemBuf) Bytes() []byte { return b.data }

// Len returns len(Bytes()).
func (b MemBuf) Len() int { return len(b.data) }

// Close releases any OS resources (mmap regions) held by the view. It is
// a no-op for OwnedRAM, FilePreload, and SubView.
func (b MemBuf) Close() error {
	if b.kind == kindMmapView && b.mapped != nil {
		return unix.Munmap(b.mapped)
	}
	return nil
}
