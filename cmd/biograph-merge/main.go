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
biograph-merge folds several biograph-create archives into one, producing
a single merged seqset plus a fast-migrated readmap per input (spec
§4.7).
*/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/spiralfile"
	"github.com/grailbio/biograph/mergemap"
	"github.com/grailbio/biograph/merger"
	"github.com/grailbio/biograph/readmap"
	"github.com/grailbio/biograph/seqset"
)

const creatorVersion = "biograph-merge/1.0.0"

type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }
func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	inputs      inputList
	outPath     = flag.String("out", "", "Output merged archive path")
	tempDir     = flag.String("temp-dir", "", "Directory for intermediate spill files")
	parallelism = flag.Int("parallelism", 0, "Worker goroutines per stage; 0 = runtime.NumCPU()")
	keepTmp     = flag.Bool("keep-tmp", false, "Keep partial output on failure instead of removing it")
)

func usage() {
	fmt.Printf("Usage: %s --in <archive> [--in <archive> ...] --out <merged-archive>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Var(&inputs, "in", "Input archive path; repeatable")
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *outPath == "" || len(inputs) < 2 {
		log.Fatalf("--out and at least two --in archives are required")
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

	seqsets := make([]*seqset.Seqset, len(inputs))
	readmaps := make([]*readmap.Readmap, len(inputs))
	for i, path := range inputs {
		ss, rm, err := openArchive(path)
		if err != nil {
			log.Fatalf("opening %s: %v", path, err)
		}
		seqsets[i] = ss
		readmaps[i] = rm
	}

	merged, mms, err := merger.Merge(bgCtx, seqsets)
	if err != nil {
		log.Fatalf("merging seqsets: %v", err)
	}

	migrated := make([]*readmap.Readmap, len(inputs))
	for i, rm := range readmaps {
		m, err := merger.FastMigrate(bgCtx, rm, mms[i], merged)
		if err != nil {
			log.Fatalf("migrating readmap for %s: %v", inputs[i], err)
		}
		migrated[i] = m
	}

	if err := writeMerged(ctx, *outPath, merged, migrated, mms); err != nil {
		if !*keepTmp {
			if rerr := os.Remove(*outPath); rerr != nil && !os.IsNotExist(rerr) {
				log.Printf("cleanup: %v", rerr)
			}
		}
		log.Fatalf("writing %s: %v", *outPath, err)
	}
	log.Printf("wrote %s: %d merged entries from %d inputs", *outPath, merged.Size(), len(inputs))
}

func openArchive(path string) (*seqset.Seqset, *readmap.Readmap, error) {
	r, err := spiralfile.Open(path, spiralfile.OpenRAM)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	ss, err := seqset.OpenArchive(r, "seqset")
	if err != nil {
		return nil, nil, err
	}
	rm, err := readmap.OpenArchive(r, "readmap", ss)
	if err != nil {
		return nil, nil, err
	}
	return ss, rm, nil
}

// writeMerged writes the merged seqset under "seqset", and per input i
// the migrated readmap under "readmap/<i>" and its provenance mergemap
// under "mergemap/<i>", preserving which merged entries each input
// contributed for any later re-migration.
func writeMerged(ctx context.Context, path string, merged *seqset.Seqset, migrated []*readmap.Readmap, mms []*mergemap.Mergemap) error {
	w := spiralfile.NewWriter(creatorVersion, os.Args, time.Now)
	if err := merged.WriteArchive(w, "seqset"); err != nil {
		return err
	}
	for i, rm := range migrated {
		if err := rm.WriteArchive(w, fmt.Sprintf("readmap/%d", i)); err != nil {
			return err
		}
		if err := mms[i].WriteArchive(w, fmt.Sprintf("mergemap/%d", i)); err != nil {
			return err
		}
	}
	return w.Close(ctx, path)
}
