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
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/file"

	"github.com/grailbio/biograph/internal/kinderr"
)

// pendingPart is a part registered with Writer.CreatePart, buffered in RAM
// until Close serializes the whole archive.
type pendingPart struct {
	path    string
	header  PartHeader
	data    []byte
}

// Writer builds a spiral-file archive. Parts are registered by path and
// size up front (spec §4.2's Create operation), filled in by the caller,
// and serialized as store-only ZIP entries on Close.
type Writer struct {
	header ArchiveHeader
	parts  []*pendingPart
	byPath map[string]*pendingPart
}

// NewWriter starts building an archive with the given creator version and
// command line; a fresh UUID is assigned to the archive.
func NewWriter(creatorVersion string, commandLine []string, now func() time.Time) *Writer {
	return &Writer{
		header: ArchiveHeader{
			UUID:           uuid.New(),
			CreatorVersion: creatorVersion,
			CommandLine:    commandLine,
			CreatedAt:      now(),
		},
		byPath: make(map[string]*pendingPart),
	}
}

// UUID returns the archive's identity, assigned at construction.
func (w *Writer) UUID() uuid.UUID { return w.header.UUID }

// CreatePart registers a part of the given size and returns a mutable
// buffer for the caller to fill in. path may be nested ("prefix/sub/…").
// It is an error to register the same path twice.
func (w *Writer) CreatePart(path string, size int, partVersion string) ([]byte, error) {
	if _, exists := w.byPath[path]; exists {
		return nil, kinderr.Errorf(kinderr.Input, "spiralfile: duplicate part %q", path)
	}
	p := &pendingPart{
		path:   path,
		header: PartHeader{Version: partVersion},
		data:   make([]byte, size),
	}
	w.parts = append(w.parts, p)
	w.byPath[path] = p
	return p.data, nil
}

// Close writes the archive to path via the teacher's file abstraction
// (so Writer works against any of grailbio/base/file's registered
// backends, not just the local filesystem). The registered parts stay
// referenced by the Writer after Close.
func (w *Writer) Close(ctx context.Context, path string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(ctx); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out.Writer(ctx))
	defer func() {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}()

	headerBytes, err := json.Marshal(w.header)
	if err != nil {
		return err
	}
	if err = writeStoredEntry(zw, archiveInfoName, headerBytes); err != nil {
		return err
	}

	sorted := make([]*pendingPart, len(w.parts))
	copy(sorted, w.parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	for _, p := range sorted {
		infoBytes, ierr := json.Marshal(p.header)
		if ierr != nil {
			return ierr
		}
		if err = writeStoredEntry(zw, p.path+"/"+partInfoSuffix, infoBytes); err != nil {
			return err
		}
		if err = writeStoredEntry(zw, p.path, p.data); err != nil {
			return err
		}
	}
	return nil
}

// writeStoredEntry writes name into zw as an uncompressed (store-only)
// entry (spec §6.1: "members must be uncompressed and uncompressed-size
// must equal compressed-size").
func writeStoredEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, bytes.NewReader(data))
	return err
}
