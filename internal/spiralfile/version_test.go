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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, version{1, 2, 3}, v)
	assert.Equal(t, "1.2.3", v.String())

	v, err = parseVersion("5")
	require.NoError(t, err)
	assert.Equal(t, version{5, 0, 0}, v)

	_, err = parseVersion("x.1.1")
	assert.Error(t, err)
}

func TestCheckVersionGate(t *testing.T) {
	assert.NoError(t, checkVersionGate("p", version{1, 5, 0}, version{1, 0, 0}))
	assert.NoError(t, checkVersionGate("p", version{2, 0, 0}, version{2, 9, 9}))
	assert.Error(t, checkVersionGate("p", version{3, 0, 0}, version{2, 9, 9}))
}
