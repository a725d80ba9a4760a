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
package main

/*
biograph-create builds a seqset and readmap from one or more FASTQ read
streams (spec §4.6, §4.8) and writes them to a single archive.
*/

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/dna"
	"github.com/grailbio/biograph/internal/fastq"
	"github.com/grailbio/biograph/internal/spiralfile"
	"github.com/grailbio/biograph/readmap"
	rmbuild "github.com/grailbio/biograph/readmap/build"
	"github.com/grailbio/biograph/seqset"
	ssbuild "github.com/grailbio/biograph/seqset/build"
)

// creatorVersion is recorded in every archive this tool writes (spec
// §6.1's file_info.json).
const creatorVersion = "biograph-create/1.0.0"

var (
	refDir      = flag.String("ref", "", "Reference index directory (requires a biograph-make-ref output; not yet implemented, see cmd/biograph-make-ref)")
	outPath     = flag.String("out", "", "Output archive path")
	tempDir     = flag.String("temp-dir", "", "Directory for intermediate spill files (default os.TempDir())")
	maxMemBytes = flag.Int64("max-mem-bytes", 0, "Upper bound on estimated build memory; 0 = unbounded")
	maxReadLen  = flag.Uint("max-read-len", 0, "Upper bound on read length the readmap can store; 0 selects the format default")
	parallelism = flag.Int("parallelism", 0, "Worker goroutines per stage; 0 = runtime.NumCPU()")
	keepTmp     = flag.Bool("keep-tmp", false, "Keep partial output on failure instead of removing it")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] --out <archive> <r1.fastq>[,<r2.fastq>]...\n", os.Args[0])
	fmt.Printf("Each positional argument is either a single FASTQ path (unpaired reads) or\n")
	fmt.Printf("two comma-separated FASTQ paths (mate1,mate2).\n")
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *outPath == "" || flag.NArg() == 0 {
		log.Fatalf("--out and at least one read-file argument are required")
	}
	if *refDir != "" {
		log.Fatalf("--ref requires a reference index, which cmd/biograph-make-ref does not yet build (out of scope)")
	}

	ctx := vcontext.Background()
	bgCtx := biograph.Context{
		TempDir:     *tempDir,
		Parallelism: *parallelism,
		Cancel:      ctx.Done(),
		Progress: func(ev biograph.ProgressEvent) {
			log.Printf("%s: %d/%d", ev.Stage, ev.Done, ev.Total)
		},
	}

	ssRecords, rmRecords, err := loadRecords(ctx, flag.Args())
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}

	ss, err := ssbuild.Build(bgCtx, ssRecords, ssbuild.Options{MaxMemBytes: *maxMemBytes})
	if err != nil {
		cleanup()
		log.Fatalf("building seqset: %v", err)
	}
	rm, err := rmbuild.Build(bgCtx, ss, rmRecords, rmbuild.Options{MaxReadLen: *maxReadLen})
	if err != nil {
		cleanup()
		log.Fatalf("building readmap: %v", err)
	}

	if err := writeArchive(ctx, *outPath, ss, rm); err != nil {
		cleanup()
		log.Fatalf("writing %s: %v", *outPath, err)
	}
	log.Printf("wrote %s: %d seqset entries, %d reads", *outPath, ss.Size(), rm.Size())
}

func cleanup() {
	if *keepTmp {
		return
	}
	if err := os.Remove(*outPath); err != nil && !os.IsNotExist(err) {
		log.Printf("cleanup: %v", err)
	}
}

func writeArchive(ctx context.Context, path string, ss *seqset.Seqset, rm *readmap.Readmap) error {
	w := spiralfile.NewWriter(creatorVersion, os.Args, time.Now)
	if err := ss.WriteArchive(w, "seqset"); err != nil {
		return err
	}
	if err := rm.WriteArchive(w, "readmap"); err != nil {
		return err
	}
	return w.Close(ctx, path)
}

// loadRecords reads every positional argument (one or two comma-joined
// FASTQ paths) into the parallel record slices seqset/build and
// readmap/build each want.
func loadRecords(ctx context.Context, args []string) ([]ssbuild.Record, []rmbuild.Record, error) {
	var ssRecords []ssbuild.Record
	var rmRecords []rmbuild.Record
	for _, arg := range args {
		paths := strings.SplitN(arg, ",", 2)
		recs, err := readFASTQPaths(ctx, paths)
		if err != nil {
			return nil, nil, err
		}
		ssRecords = append(ssRecords, recs...)
		for _, r := range recs {
			rmRecords = append(rmRecords, rmbuild.Record{Mate1: r.Mate1, Mate2: r.Mate2})
		}
	}
	return ssRecords, rmRecords, nil
}

func openRead(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	return struct {
		io.Reader
		io.Closer
	}{r, closerFunc(func() error { return f.Close(ctx) })}, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func readFASTQPaths(ctx context.Context, paths []string) ([]ssbuild.Record, error) {
	r1, err := openRead(ctx, paths[0])
	if err != nil {
		return nil, err
	}
	defer r1.Close()

	if len(paths) == 1 {
		var recs []ssbuild.Record
		sc := fastq.NewScanner(r1, fastq.Seq)
		var rd fastq.Read
		for sc.Scan(&rd) {
			seq, err := dna.FromString(rd.Seq)
			if err != nil {
				return nil, err
			}
			recs = append(recs, ssbuild.Record{Mate1: seq})
		}
		if sc.Err() != nil {
			return nil, sc.Err()
		}
		return recs, nil
	}

	r2, err := openRead(ctx, paths[1])
	if err != nil {
		return nil, err
	}
	defer r2.Close()

	var recs []ssbuild.Record
	sc := fastq.NewPairScanner(r1, r2, fastq.Seq)
	var rd1, rd2 fastq.Read
	for sc.Scan(&rd1, &rd2) {
		s1, err := dna.FromString(rd1.Seq)
		if err != nil {
			return nil, err
		}
		s2, err := dna.FromString(rd2.Seq)
		if err != nil {
			return nil, err
		}
		recs = append(recs, ssbuild.Record{Mate1: s1, Mate2: s2})
	}
	if sc.Err() != nil {
		return nil, sc.Err()
	}
	return recs, nil
}
