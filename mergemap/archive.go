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

package mergemap

import (
	"encoding/json"
	"path"

	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/bitpack"
	"github.com/grailbio/biograph/internal/kinderr"
	"github.com/grailbio/biograph/internal/spiralfile"
)

// PartVersion is the version string written to a mergemap's parts (spec
// §6.4).
const PartVersion = "1.0.0"

type metadata struct {
	OrigSeqsetUUID   string `json:"orig_seqset_uuid"`
	MergedSeqsetUUID string `json:"merged_seqset_uuid"`
	MergedEntryCount int    `json:"merged_entry_count"`
}

// WriteArchive serializes m into w under the given part path prefix.
func (m *Mergemap) WriteArchive(w *spiralfile.Writer, prefix string) error {
	meta := metadata{
		OrigSeqsetUUID:   m.origSeqsetUUID.String(),
		MergedSeqsetUUID: m.mergedSeqsetUUID.String(),
		MergedEntryCount: m.contributed.Len(),
	}
	if err := createJSONPart(w, path.Join(prefix, "mergemap.json"), meta); err != nil {
		return err
	}
	return createBytesPart(w, path.Join(prefix, "merged_entries"), m.contributed.Bytes())
}

// OpenArchive reconstructs a Mergemap from an archive opened at r, under
// the given part path prefix.
func OpenArchive(r *spiralfile.Reader, prefix string) (*Mergemap, error) {
	metaBuf, err := r.OpenPart(path.Join(prefix, "mergemap.json"), PartVersion)
	if err != nil {
		return nil, err
	}
	var meta metadata
	if err := json.Unmarshal(metaBuf.Bytes(), &meta); err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "mergemap: malformed mergemap.json: %v", err)
	}
	origUUID, err := uuid.Parse(meta.OrigSeqsetUUID)
	if err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "mergemap: malformed orig_seqset_uuid: %v", err)
	}
	mergedUUID, err := uuid.Parse(meta.MergedSeqsetUUID)
	if err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "mergemap: malformed merged_seqset_uuid: %v", err)
	}
	bitsBuf, err := r.OpenPart(path.Join(prefix, "merged_entries"), PartVersion)
	if err != nil {
		return nil, err
	}
	return &Mergemap{
		origSeqsetUUID:   origUUID,
		mergedSeqsetUUID: mergedUUID,
		contributed:      bitpack.BitcountFromBytes(bitsBuf.Bytes(), meta.MergedEntryCount),
	}, nil
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
