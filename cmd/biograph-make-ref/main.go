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

// biograph-make-ref, which would build the reference BWT index that
// seqset/build.Options.Reference and cmd/biograph-create's --ref consume,
// is out of scope for this repo (spec §1's explicit non-goal) and is not
// implemented.

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "biograph-make-ref is out of scope for this repo; build a seqset/build.ReferenceIndex adapter instead")
	os.Exit(1)
}
