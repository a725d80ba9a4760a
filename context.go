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

// Package biograph ties together the seqset, readmap, and merge pipeline
// packages behind the CLI entrypoints in cmd/. Context replaces the
// process-wide globals (thread count, temp directory, progress logging)
// the original build tool read out of task parameters and a singleton
// logger; every long-running entrypoint here takes one by value instead.
package biograph

// Context carries the configuration every long-running builder/merge
// operation needs, threaded explicitly rather than read from globals
// (cf. DESIGN.md's discussion of Design Note 9).
type Context struct {
	// TempDir holds intermediate spill files; required whenever a stage
	// may exceed its memory budget.
	TempDir string
	// Parallelism bounds the number of worker goroutines a stage spawns;
	// 0 means the stage picks runtime.NumCPU().
	Parallelism int
	// Progress receives periodic ProgressEvents; nil disables reporting.
	Progress func(ProgressEvent)
	// Cancel is sampled between stage iterations; a closed channel
	// aborts the operation at the next checkpoint with kinderr.Cancelled.
	Cancel <-chan struct{}
}

// report delivers an event if the caller installed a Progress callback.
func (c Context) report(stage string, done, total int64) {
	if c.Progress == nil {
		return
	}
	c.Progress(ProgressEvent{Stage: stage, Done: done, Total: total})
}

// Report is the exported form of report, used by sibling packages
// (seqset/build, mergemap, merger, readmap/build) that cannot call the
// unexported report method since they live outside this package.
func (c Context) Report(stage string, done, total int64) { c.report(stage, done, total) }

// Cancelled reports whether the cooperative cancellation channel has
// fired.
func (c Context) Cancelled() bool {
	if c.Cancel == nil {
		return false
	}
	select {
	case <-c.Cancel:
		return true
	default:
		return false
	}
}

// ProgressEvent is one update emitted by a long-running stage.
type ProgressEvent struct {
	Stage string
	Done  int64
	Total int64
}
