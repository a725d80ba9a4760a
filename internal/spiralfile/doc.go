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

// Package spiralfile implements the archive container that backs every
// on-disk seqset, readmap, and mergemap: a single ZIP file with store-only
// (uncompressed) entries, an archive-level JSON header carrying a UUID and
// creator version, and a per-part JSON header carrying a version string
// (spec §4.2, §6.1). Store-only entries let a part's bytes be addressed as
// a single contiguous range of the underlying file, which is what lets
// Open hand back an mmap view instead of copying.
//
// The nested-subpart naming in Create ("prefix/subpart/…") is just a ZIP
// entry name with slashes; there is no directory entry in the archive,
// mirroring how the teacher's pamutil treats path components as pure
// naming convention rather than a filesystem structure (adapted from
// pamutil.FileInfo's path grammar, which encodes genomic coordinates this
// format has no use for).
package spiralfile
