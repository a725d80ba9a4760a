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

// Package fastq scans FASTQ-formatted read streams for the cmd/
// entrypoints that turn raw sequencing reads into seqset/readmap input
// records.
package fastq

import (
	"bufio"
	"io"

	"github.com/grailbio/biograph/internal/kinderr"
)

// A Read is a single FASTQ record: an ID, sequence, line 3 ("unknown"),
// and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

var errEOF = kinderr.E(kinderr.IO, "fastq: eof")

// Scanner reads FASTQ records from a stream. The Scan method returns the
// next record, reporting whether the read succeeded. Scanners are not
// threadsafe.
//
// Scanner requires ID lines to begin with "@" and line 3 to begin with
// "+", but performs no further validation (seq/qual length agreement,
// base alphabet, and so on).
type Scanner struct {
	b      *bufio.Scanner
	err    error
	fields Field
}

// Field enumerates FASTQ fields, used to select which fields NewScanner
// fills in.
type Field uint

const (
	// ID causes Read.ID to be filled.
	ID Field = 1 << iota
	// Seq causes Read.Seq to be filled.
	Seq
	// Unk causes Read.Unk to be filled.
	Unk
	// Qual causes Read.Qual to be filled.
	Qual
	// All equals ID|Seq|Unk|Qual.
	All = ID | Seq | Unk | Qual
)

// NewScanner constructs a Scanner reading raw FASTQ data from r. fields
// selects which of a record's fields get populated; a typical value is
// All or ID|Seq.
func NewScanner(r io.Reader, fields Field) *Scanner {
	return &Scanner{b: bufio.NewScanner(r), fields: fields}
}

// Scan reads the next record into read. It returns false once scanning
// is done; callers then check Err to distinguish a clean EOF from a
// malformed stream.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if err := f.b.Err(); err != nil {
			f.err = kinderr.Errorf(kinderr.IO, "fastq: %v", err)
		} else {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		f.err = kinderr.E(kinderr.Input, "fastq: record id line missing '@' prefix")
		return false
	}
	if f.fields&ID != 0 {
		read.ID = string(id)
	}
	if !f.scanRequired() {
		return false
	}
	if f.fields&Seq != 0 {
		read.Seq = f.b.Text()
	}
	if !f.scanRequired() {
		return false
	}
	unk := f.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = kinderr.E(kinderr.Input, "fastq: record separator line missing '+' prefix")
		return false
	}
	if f.fields&Unk != 0 {
		read.Unk = string(unk)
	}
	if !f.scanRequired() {
		return false
	}
	if f.fields&Qual != 0 {
		read.Qual = f.b.Text()
	}
	return true
}

func (f *Scanner) scanRequired() bool {
	if ok := f.b.Scan(); ok {
		return true
	}
	if err := f.b.Err(); err != nil {
		f.err = kinderr.Errorf(kinderr.IO, "fastq: %v", err)
	} else {
		f.err = kinderr.E(kinderr.Input, "fastq: truncated record")
	}
	return false
}

// Err returns the scanning error, if any; nil after a clean EOF.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// PairScanner composes two Scanners to read an R1/R2 FASTQ pair in
// lockstep, the shape seqset/build and readmap/build both want for
// paired input (spec §4.6, §4.8).
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner creates a FASTQ pair scanner over r1, r2.
func NewPairScanner(r1, r2 io.Reader, fields Field) *PairScanner {
	return &PairScanner{
		r1: NewScanner(r1, fields),
		r2: NewScanner(r2, fields),
	}
}

// Scan reads the next record pair into r1, r2.
func (p *PairScanner) Scan(r1, r2 *Read) bool {
	ok1 := p.r1.Scan(r1)
	ok2 := p.r2.Scan(r2)
	if ok1 != ok2 {
		p.err = kinderr.E(kinderr.Input, "fastq: mate streams have different record counts")
	}
	return ok1 && ok2
}

// Err returns the scanning error, if any; check after Scan returns
// false.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return err
	}
	if err := p.r2.Err(); err != nil {
		return err
	}
	return p.err
}
