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

package seqset

import (
	"encoding/binary"
	"encoding/json"
	"path"

	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/spiralfile"
)

// PartVersion is the version string written to every seqset part's
// part_info.json.
const PartVersion = "1.1.0"

var baseNames = [4]string{"prev_A", "prev_C", "prev_G", "prev_T"}

// metadata is the JSON document stored at "<prefix>/seqset.json" (spec
// §6.2). EntryWidth/SharedWidth extend the documented {num_entries}
// shape with the two packed-vector bit widths, so Open can reconstruct
// entry_sizes/shared without the caller having to already know
// max_entry_len. UUID carries the seqset's own identity, so readmaps and
// mergemaps that recorded it still match after a reopen.
type metadata struct {
	NumEntries  uint64 `json:"num_entries"`
	EntryWidth  uint   `json:"entry_width"`
	SharedWidth uint   `json:"shared_width"`
	UUID        string `json:"uuid"`
}

// WriteArchive serializes a Ready seqset into w under the given part
// path prefix (spec §6.2).
func (s *Seqset) WriteArchive(w *spiralfile.Writer, prefix string) error {
	s.requireReady()

	meta := metadata{
		NumEntries:  uint64(s.n),
		EntryWidth:  s.entrySizes.Width(),
		SharedWidth: s.shared.Width(),
		UUID:        s.uuid.String(),
	}
	if err := createJSONPart(w, path.Join(prefix, "seqset.json"), meta); err != nil {
		return err
	}

	fixedBytes := make([]byte, 5*8)
	for i, v := range s.fixed {
		binary.LittleEndian.PutUint64(fixedBytes[i*8:], v)
	}
	if err := createBytesPart(w, path.Join(prefix, "fixed"), fixedBytes); err != nil {
		return err
	}
	if err := createBytesPart(w, path.Join(prefix, "entry_sizes"), s.entrySizes.Bytes()); err != nil {
		return err
	}
	if err := createBytesPart(w, path.Join(prefix, "shared"), s.shared.Bytes()); err != nil {
		return err
	}
	for b := 0; b < 4; b++ {
		if err := createBytesPart(w, path.Join(prefix, baseNames[b]), s.prev[b].Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// OpenArchive reconstructs a Ready seqset from a spiral-file archive
// opened at r, under the given part path prefix.
func OpenArchive(r *spiralfile.Reader, prefix string) (*Seqset, error) {
	metaBuf, err := r.OpenPart(path.Join(prefix, "seqset.json"), PartVersion)
	if err != nil {
		return nil, err
	}
	var meta metadata
	if err := json.Unmarshal(metaBuf.Bytes(), &meta); err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "seqset: malformed seqset.json: %v", err)
	}
	n := int(meta.NumEntries)
	id, err := uuid.Parse(meta.UUID)
	if err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "seqset: malformed uuid in seqset.json: %v", err)
	}

	fixedBuf, err := r.OpenPart(path.Join(prefix, "fixed"), PartVersion)
	if err != nil {
		return nil, err
	}
	if fixedBuf.Len() != 5*8 {
		return nil, kinderr.Errorf(kinderr.Consistency, "seqset: fixed part has %d bytes, want 40", fixedBuf.Len())
	}
	var fixed [5]uint64
	for i := range fixed {
		fixed[i] = binary.LittleEndian.Uint64(fixedBuf.Bytes()[i*8:])
	}

	sizesBuf, err := r.OpenPart(path.Join(prefix, "entry_sizes"), PartVersion)
	if err != nil {
		return nil, err
	}
	sharedBuf, err := r.OpenPart(path.Join(prefix, "shared"), PartVersion)
	if err != nil {
		return nil, err
	}

	var prev [4]*bitpack.Bitcount
	for b := 0; b < 4; b++ {
		buf, err := r.OpenPart(path.Join(prefix, baseNames[b]), PartVersion)
		if err != nil {
			return nil, err
		}
		prev[b] = bitpack.BitcountFromBytes(buf.Bytes(), n)
	}

	s := &Seqset{
		uuid:       id,
		n:          int32(n),
		state:      stateReady,
		entrySizes: bitpack.VectorFromBytes(sizesBuf.Bytes(), n, meta.EntryWidth),
		shared:     bitpack.VectorFromBytes(sharedBuf.Bytes(), n, meta.SharedWidth),
		prev:       prev,
		fixed:      fixed,
	}
	return s, nil
}

func createJSONPart(w *spiralfile.Writer, path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return createBytesPart(w, path, data)
}

func createBytesPart(w *spiralfile.Writer, path string, data []byte) error {
	buf, err := w.CreatePart(path, len(data), PartVersion)
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}
