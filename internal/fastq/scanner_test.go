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

package fastq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/biograph/internal/kinderr"
)

const fourRecords = "" +
	"@r1\nACGT\n+\nIIII\n" +
	"@r2\nTTTT\n+\nJJJJ\n"

func TestScannerReadsAllFields(t *testing.T) {
	sc := NewScanner(strings.NewReader(fourRecords), All)
	var r Read
	require.True(t, sc.Scan(&r))
	assert.Equal(t, "@r1", r.ID)
	assert.Equal(t, "ACGT", r.Seq)
	assert.Equal(t, "+", r.Unk)
	assert.Equal(t, "IIII", r.Qual)

	require.True(t, sc.Scan(&r))
	assert.Equal(t, "TTTT", r.Seq)

	require.False(t, sc.Scan(&r))
	assert.NoError(t, sc.Err())
}

func TestScannerSeqOnlySkipsOtherFields(t *testing.T) {
	sc := NewScanner(strings.NewReader(fourRecords), Seq)
	var r Read
	require.True(t, sc.Scan(&r))
	assert.Equal(t, "", r.ID)
	assert.Equal(t, "ACGT", r.Seq)
	assert.Equal(t, "", r.Unk)
	assert.Equal(t, "", r.Qual)
}

func TestScannerRejectsMissingAtPrefix(t *testing.T) {
	sc := NewScanner(strings.NewReader("r1\nACGT\n+\nIIII\n"), All)
	var r Read
	require.False(t, sc.Scan(&r))
	require.Error(t, sc.Err())
	assert.True(t, kinderr.Is(sc.Err(), kinderr.Input))
}

func TestScannerRejectsTruncatedRecord(t *testing.T) {
	sc := NewScanner(strings.NewReader("@r1\nACGT\n"), All)
	var r Read
	require.False(t, sc.Scan(&r))
	require.Error(t, sc.Err())
	assert.True(t, kinderr.Is(sc.Err(), kinderr.Input))
}

func TestPairScannerReadsInLockstep(t *testing.T) {
	r1 := "@r1/1\nACGT\n+\nIIII\n@r2/1\nGGGG\n+\nIIII\n"
	r2 := "@r1/2\nTTTT\n+\nJJJJ\n@r2/2\nCCCC\n+\nJJJJ\n"
	sc := NewPairScanner(strings.NewReader(r1), strings.NewReader(r2), All)
	var a, b Read
	require.True(t, sc.Scan(&a, &b))
	assert.Equal(t, "ACGT", a.Seq)
	assert.Equal(t, "TTTT", b.Seq)

	require.True(t, sc.Scan(&a, &b))
	assert.Equal(t, "GGGG", a.Seq)
	assert.Equal(t, "CCCC", b.Seq)

	require.False(t, sc.Scan(&a, &b))
	assert.NoError(t, sc.Err())
}

func TestPairScannerRejectsMismatchedCounts(t *testing.T) {
	r1 := "@r1/1\nACGT\n+\nIIII\n@r2/1\nGGGG\n+\nIIII\n"
	r2 := "@r1/2\nTTTT\n+\nJJJJ\n"
	sc := NewPairScanner(strings.NewReader(r1), strings.NewReader(r2), All)
	var a, b Read
	require.True(t, sc.Scan(&a, &b))
	require.False(t, sc.Scan(&a, &b))
	require.Error(t, sc.Err())
	assert.True(t, kinderr.Is(sc.Err(), kinderr.Input))
}

// TestScannerOverGzipStream confirms the scanner works unchanged when fed
// through a gzip reader, the way cmd/biograph-create's callers wrap
// compressed FASTQ input before handing it to NewScanner.
func TestScannerOverGzipStream(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(fourRecords))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()

	sc := NewScanner(zr, All)
	var r Read
	require.True(t, sc.Scan(&r))
	assert.Equal(t, "ACGT", r.Seq)
	require.True(t, sc.Scan(&r))
	assert.Equal(t, "TTTT", r.Seq)
	require.False(t, sc.Scan(&r))
	assert.NoError(t, sc.Err())
}
