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
biograph-migrate-readmap rebuilds a readmap against a seqset it was not
built against and has no mergemap linking it to (spec §4.7.5's
slow-migrate fallback), by re-locating every read's sequence directly.
*/

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/biograph"
	"github.com/grailbio/biograph/internal/spiralfile"
	"github.com/grailbio/biograph/merger"
	"github.com/grailbio/biograph/readmap"
	"github.com/grailbio/biograph/seqset"
)

const creatorVersion = "biograph-migrate-readmap/1.0.0"

var (
	origSeqsetPath  = flag.String("orig-seqset", "", "Archive containing the readmap's original seqset")
	origReadmapPath = flag.String("orig-readmap", "", "Archive containing the readmap to migrate")
	newSeqsetPath   = flag.String("new-seqset", "", "Archive containing the destination seqset")
	newReadmapPath  = flag.String("new-readmap", "", "Output path for the migrated readmap archive")
	dropUnresolved  = flag.Bool("drop-unresolved", false, "Drop whole mate-loop groups that cannot be located in the destination seqset instead of failing")
	parallelism     = flag.Int("parallelism", 0, "Worker goroutines per stage; 0 = runtime.NumCPU()")
)

func usage() {
	fmt.Printf("Usage: %s --orig-seqset <a> --orig-readmap <a> --new-seqset <a> --new-readmap <out>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *origSeqsetPath == "" || *origReadmapPath == "" || *newSeqsetPath == "" || *newReadmapPath == "" {
		log.Fatalf("--orig-seqset, --orig-readmap, --new-seqset, and --new-readmap are all required")
	}

	ctx := vcontext.Background()
	bgCtx := biograph.Context{
		Parallelism: *parallelism,
		Cancel:      ctx.Done(),
		Progress: func(ev biograph.ProgressEvent) {
			log.Printf("%s: %d/%d", ev.Stage, ev.Done, ev.Total)
		},
	}

	origSS, err := openSeqset(*origSeqsetPath)
	if err != nil {
		log.Fatalf("opening %s: %v", *origSeqsetPath, err)
	}
	origRM, err := openReadmap(*origReadmapPath, origSS)
	if err != nil {
		log.Fatalf("opening %s: %v", *origReadmapPath, err)
	}
	newSS, err := openSeqset(*newSeqsetPath)
	if err != nil {
		log.Fatalf("opening %s: %v", *newSeqsetPath, err)
	}

	migrated, err := merger.SlowMigrate(bgCtx, origRM, newSS, merger.MigrateOptions{DropUnresolved: *dropUnresolved})
	if err != nil {
		log.Fatalf("slow-migrate: %v", err)
	}

	w := spiralfile.NewWriter(creatorVersion, os.Args, time.Now)
	if err := migrated.WriteArchive(w, "readmap"); err != nil {
		log.Fatalf("writing %s: %v", *newReadmapPath, err)
	}
	if err := w.Close(ctx, *newReadmapPath); err != nil {
		log.Fatalf("writing %s: %v", *newReadmapPath, err)
	}
	log.Printf("wrote %s: %d of %d reads migrated", *newReadmapPath, migrated.Size(), origRM.Size())
}

func openSeqset(path string) (*seqset.Seqset, error) {
	r, err := spiralfile.Open(path, spiralfile.OpenRAM)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return seqset.OpenArchive(r, "seqset")
}

func openReadmap(path string, ss *seqset.Seqset) (*readmap.Readmap, error) {
	r, err := spiralfile.Open(path, spiralfile.OpenRAM)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readmap.OpenArchive(r, "readmap", ss)
}
