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
	"time"

	"github.com/google/uuid"
)

// archiveInfoName is the fixed entry name for the archive-level header
// (spec §6.1).
const archiveInfoName = "file_info.json"

// partInfoSuffix names the per-part header entry relative to a part's
// directory prefix (spec §6.1: "<path>/part_info.json").
const partInfoSuffix = "part_info.json"

// ArchiveHeader is the JSON document stored at file_info.json.
type ArchiveHeader struct {
	UUID          uuid.UUID `json:"uuid"`
	CreatorVersion string   `json:"creator_version"`
	CommandLine   []string  `json:"command_line"`
	CreatedAt     time.Time `json:"created_at"`
}

// PartHeader is the JSON document stored at "<path>/part_info.json".
type PartHeader struct {
	Version string `json:"version"`
}
