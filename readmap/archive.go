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

package readmap

import (
	"encoding/json"
	"path"

	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/sparsemulti"
	"github.com/grailbio/biograph/internal/spiralfile"
	"github.com/grailbio/biograph/seqset"
)

// PartVersion is the version string written to this readmap's own parts'
// part_info.json (spec §6.3). Nested parts (read_ids' sub-parts) carry
// their own version from the sparsemulti package.
const PartVersion = "1.0.0"

type metadata struct {
	SeqsetUUID string `json:"seqset_uuid"`
	NumReads   uint64 `json:"num_reads"`
	LenWidth   uint   `json:"read_length_width"`
	HasLoop    bool   `json:"has_mate_loop"`
	HasPair    bool   `json:"has_mate_pair"`
}

// WriteArchive serializes rm into w under the given part path prefix
// (spec §6.3).
func (rm *Readmap) WriteArchive(w *spiralfile.Writer, prefix string) error {
	meta := metadata{
		SeqsetUUID: rm.seqsetUUID.String(),
		NumReads:   uint64(rm.Size()),
		LenWidth:   rm.readLengths.Width(),
		HasLoop:    rm.mateLoop != nil,
		HasPair:    rm.matePair != nil,
	}
	if err := createJSONPart(w, path.Join(prefix, "readmap.json"), meta); err != nil {
		return err
	}
	if err := writeSparseMulti(w, path.Join(prefix, "read_ids"), rm.readIDs); err != nil {
		return err
	}
	if err := createBytesPart(w, path.Join(prefix, "read_lengths"), rm.readLengths.Bytes()); err != nil {
		return err
	}
	if err := createBytesPart(w, path.Join(prefix, "is_forward"), rm.isForward.Bytes()); err != nil {
		return err
	}
	if rm.mateLoop != nil {
		return createBytesPart(w, path.Join(prefix, "mate_loop_ptr"), rm.mateLoop.Bytes())
	}
	if rm.matePair != nil {
		return createBytesPart(w, path.Join(prefix, "mate_pair_ptr"), rm.matePair.Bytes())
	}
	return nil
}

// OpenArchive reconstructs a Readmap from an archive opened at r, under
// the given part path prefix. ss, if non-nil, is attached as the owning
// seqset and its UUID is checked against the stored one.
func OpenArchive(r *spiralfile.Reader, prefix string, ss *seqset.Seqset) (*Readmap, error) {
	metaBuf, err := r.OpenPart(path.Join(prefix, "readmap.json"), PartVersion)
	if err != nil {
		return nil, err
	}
	var meta metadata
	if err := json.Unmarshal(metaBuf.Bytes(), &meta); err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "readmap: malformed readmap.json: %v", err)
	}
	seqsetUUID, err := uuid.Parse(meta.SeqsetUUID)
	if err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "readmap: malformed seqset_uuid: %v", err)
	}
	if ss != nil && ss.UUID() != seqsetUUID {
		return nil, kinderr.Errorf(kinderr.Identity,
			"readmap: seqset UUID %s does not match readmap's recorded %s", ss.UUID(), seqsetUUID)
	}

	n := int(meta.NumReads)
	readIDs, err := readSparseMulti(r, path.Join(prefix, "read_ids"), n)
	if err != nil {
		return nil, err
	}
	lenBuf, err := r.OpenPart(path.Join(prefix, "read_lengths"), PartVersion)
	if err != nil {
		return nil, err
	}
	fwdBuf, err := r.OpenPart(path.Join(prefix, "is_forward"), PartVersion)
	if err != nil {
		return nil, err
	}

	c := Components{
		SeqsetUUID:  seqsetUUID,
		Seqset:      ss,
		ReadIDs:     readIDs,
		ReadLengths: bitpack.VectorFromBytes(lenBuf.Bytes(), n, meta.LenWidth),
		IsForward:   bitpack.VectorFromBytes(fwdBuf.Bytes(), n, 1),
	}
	if meta.HasLoop {
		loopBuf, err := r.OpenPart(path.Join(prefix, "mate_loop_ptr"), PartVersion)
		if err != nil {
			return nil, err
		}
		c.MateLoop = bitpack.VectorFromBytes(loopBuf.Bytes(), n, 32)
	} else if meta.HasPair {
		pairBuf, err := r.OpenPart(path.Join(prefix, "mate_pair_ptr"), PartVersion)
		if err != nil {
			return nil, err
		}
		c.MatePair = bitpack.VectorFromBytes(pairBuf.Bytes(), n, 32)
	}
	return New(c), nil
}

func writeSparseMulti(w *spiralfile.Writer, prefix string, m *sparsemulti.Map) error {
	l := m.Export()
	if err := createJSONPart(w, path.Join(prefix, "sparse_multi.json"), sparseMultiMeta{
		NumDest:       l.NumDest,
		NumGroups:     l.NumGroups,
		SourceWidth:   l.SourceOfGroup.Width(),
	}); err != nil {
		return err
	}
	if err := createBytesPart(w, path.Join(prefix, "first_in_group"), l.FirstInGroup.Bytes()); err != nil {
		return err
	}
	return createBytesPart(w, path.Join(prefix, "source_of_group"), l.SourceOfGroup.Bytes())
}

func readSparseMulti(r *spiralfile.Reader, prefix string, numDest int) (*sparsemulti.Map, error) {
	metaBuf, err := r.OpenPart(path.Join(prefix, "sparse_multi.json"), sparsemulti.PartVersion)
	if err != nil {
		return nil, err
	}
	var meta sparseMultiMeta
	if err := json.Unmarshal(metaBuf.Bytes(), &meta); err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "readmap: malformed sparse_multi.json: %v", err)
	}
	firstBuf, err := r.OpenPart(path.Join(prefix, "first_in_group"), sparsemulti.PartVersion)
	if err != nil {
		return nil, err
	}
	sourceBuf, err := r.OpenPart(path.Join(prefix, "source_of_group"), sparsemulti.PartVersion)
	if err != nil {
		return nil, err
	}
	return sparsemulti.FromLayout(sparsemulti.Layout{
		FirstInGroup:  bitpack.BitcountFromBytes(firstBuf.Bytes(), numDest),
		SourceOfGroup: bitpack.VectorFromBytes(sourceBuf.Bytes(), meta.NumGroups, meta.SourceWidth),
		NumDest:       numDest,
		NumGroups:     meta.NumGroups,
	}), nil
}

type sparseMultiMeta struct {
	NumDest     int  `json:"num_dest"`
	NumGroups   int  `json:"num_groups"`
	SourceWidth uint `json:"source_width"`
}

func createJSONPart(w *spiralfile.Writer, p string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return createBytesPart(w, p, data)
}

func createBytesPart(w *spiralfile.Writer, p string, data []byte) error {
	buf, err := w.CreatePart(p, len(data), PartVersion)
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}
