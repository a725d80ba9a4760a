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
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/google/uuid"

	"github.com/grailbio/biograph/internal/kinderr"
)

// OpenMode selects the backend Open uses to hand back part bytes.
type OpenMode int

const (
	// OpenMmapReadOnly maps the archive file read-only; OpenPart views
	// are zero-copy slices of that mapping.
	OpenMmapReadOnly OpenMode = iota
	// OpenMmapReadWrite maps the archive file read-write.
	OpenMmapReadWrite
	// OpenRAM reads each part on demand into a private buffer instead of
	// mapping it (spec §4.2: "used for random-access-heavy indexes on
	// slow storage").
	OpenRAM
)

// Reader is an opened spiral-file archive.
type Reader struct {
	Header ArchiveHeader

	mode    OpenMode
	f       *os.File
	zr      *zip.Reader
	zfiles  map[string]*zip.File
	mapping MemBuf // the whole-file mmap, present when mode is one of the Mmap variants
}

// Open opens path as a spiral-file archive. Open only supports local
// files, since mmap requires a real file descriptor; RAM-backed
// random-access callers that need a remote backend should fetch the
// archive locally first via the teacher's file abstraction.
func Open(path string, mode OpenMode) (r *Reader, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()

	zr, err := zip.NewReader(f, size)
	if err != nil {
		return nil, kinderr.Errorf(kinderr.IO, "spiralfile: %s: not a valid archive: %v", path, err)
	}

	reader := &Reader{
		mode:   mode,
		f:      f,
		zr:     zr,
		zfiles: make(map[string]*zip.File, len(zr.File)),
	}
	for _, zf := range zr.File {
		if zf.Method != zip.Store || zf.UncompressedSize64 != zf.CompressedSize64 {
			return nil, kinderr.Errorf(kinderr.IO,
				"spiralfile: %s: part %q is compressed; archives must be store-only", path, zf.Name)
		}
		reader.zfiles[zf.Name] = zf
	}

	headerData, err := readZipMember(reader.zfiles, archiveInfoName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(headerData, &reader.Header); err != nil {
		return nil, kinderr.Errorf(kinderr.Consistency, "spiralfile: %s: malformed %s: %v", path, archiveInfoName, err)
	}

	if mode == OpenMmapReadOnly || mode == OpenMmapReadWrite {
		view, merr := newMmapView(int(f.Fd()), 0, int(size), mode == OpenMmapReadWrite)
		if merr != nil {
			return nil, merr
		}
		reader.mapping = view
	}
	return reader, nil
}

// Close releases the archive's file descriptor and any mmap mapping.
func (r *Reader) Close() error {
	if r.mapping.Bytes() != nil {
		if err := r.mapping.Close(); err != nil {
			return err
		}
	}
	return r.f.Close()
}

// ArchiveUUID returns the identity recorded at archive creation time,
// used to cross-check references between a readmap and its seqset
// (spec §4.2 failure clause: "UUID mismatch across cross-references").
func (r *Reader) ArchiveUUID() uuid.UUID { return r.Header.UUID }

// OpenPart opens the named part, version-gated against maxVersion (the
// largest part version this caller understands; spec §4.2's Version
// gate). If path has no "<path>/part_info.json" entry this is a fatal
// open error.
func (r *Reader) OpenPart(path string, maxVersion string) (MemBuf, error) {
	infoData, err := readZipMember(r.zfiles, path+"/"+partInfoSuffix)
	if err != nil {
		return MemBuf{}, err
	}
	var info PartHeader
	if err := json.Unmarshal(infoData, &info); err != nil {
		return MemBuf{}, kinderr.Errorf(kinderr.Consistency, "spiralfile: part %s: malformed part_info.json: %v", path, err)
	}
	stored, err := parseVersion(info.Version)
	if err != nil {
		return MemBuf{}, err
	}
	max, err := parseVersion(maxVersion)
	if err != nil {
		return MemBuf{}, err
	}
	if err := checkVersionGate(path, stored, max); err != nil {
		return MemBuf{}, err
	}

	zf, ok := r.zfiles[path]
	if !ok {
		return MemBuf{}, kinderr.Errorf(kinderr.IO, "spiralfile: part %q not found", path)
	}

	if r.mode == OpenRAM {
		rc, err := zf.Open()
		if err != nil {
			return MemBuf{}, err
		}
		defer rc.Close()
		data, err := ioutil.ReadAll(rc)
		if err != nil {
			return MemBuf{}, err
		}
		return newFilePreload(data), nil
	}

	offset, err := zf.DataOffset()
	if err != nil {
		return MemBuf{}, err
	}
	size := int64(zf.UncompressedSize64)
	return r.mapping.Sub(int(offset), int(offset+size)), nil
}

func readZipMember(zfiles map[string]*zip.File, name string) ([]byte, error) {
	zf, ok := zfiles[name]
	if !ok {
		return nil, kinderr.Errorf(kinderr.IO, "spiralfile: missing required member %q", name)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ioutil.ReadAll(rc)
}
