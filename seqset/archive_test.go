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
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/biograph/internal/spiralfile"
)

func fixedNow() time.Time { return time.Unix(1600000000, 0).UTC() }

func TestArchiveRoundTrip(t *testing.T) {
	ss, all := buildFromStrings("ACGTACGTAC", "GGCATTACAG", "TTTTACGTAC")

	w := spiralfile.NewWriter("test-1.0.0", nil, fixedNow)
	require.NoError(t, ss.WriteArchive(w, "seqset"))

	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "archive.bg")
	require.NoError(t, w.Close(context.Background(), path))

	r, err := spiralfile.Open(path, spiralfile.OpenRAM)
	require.NoError(t, err)
	defer r.Close()

	restored, err := OpenArchive(r, "seqset")
	require.NoError(t, err)
	assert.Equal(t, ss.Size(), restored.Size())
	assert.Equal(t, ss.fixed, restored.fixed)

	for i, e := range all {
		assert.Equal(t, ss.EntrySize(uint64(i)), restored.EntrySize(uint64(i)))
		assert.Equal(t, ss.EntryShared(uint64(i)), restored.EntryShared(uint64(i)))
		restoredFound := restored.Find(e)
		assert.True(t, restoredFound.Valid())
	}
}
