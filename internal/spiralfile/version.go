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
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/biograph/internal/kinderr"
)

// version is a parsed "X.Y.Z" part version string.
type version struct {
	major, minor, patch int
}

func parseVersion(s string) (version, error) {
	fields := strings.SplitN(s, ".", 3)
	var v version
	var err error
	if v.major, err = strconv.Atoi(fields[0]); err != nil {
		return version{}, kinderr.Errorf(kinderr.Version, "malformed version %q", s)
	}
	if len(fields) > 1 {
		if v.minor, err = strconv.Atoi(fields[1]); err != nil {
			return version{}, kinderr.Errorf(kinderr.Version, "malformed version %q", s)
		}
	}
	if len(fields) > 2 {
		if v.patch, err = strconv.Atoi(fields[2]); err != nil {
			return version{}, kinderr.Errorf(kinderr.Version, "malformed version %q", s)
		}
	}
	return v, nil
}

func (v version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// checkVersionGate fails if stored's major version exceeds max's major
// version (spec §4.2: "opening fails if the stored version's major number
// exceeds the caller's").
func checkVersionGate(part string, stored, max version) error {
	if stored.major > max.major {
		return kinderr.Errorf(kinderr.Version,
			"part %s: stored version %s is newer than the maximum understood version %s",
			part, stored, max)
	}
	return nil
}
