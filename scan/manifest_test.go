// Copyright 2023-2025 Mezzo AV, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezzoav/drivermux/report"
	"github.com/mezzoav/drivermux/scan"
	"github.com/mezzoav/drivermux/trie"
)

func writeManifest(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drivers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `render:
  - name: opengl
    type: example.com/mezzo/gl.Driver
  - name: vulkan
    type: example.com/mezzo/vk.Driver
video:
  - name: x11
    type: example.com/mezzo/x11.Driver
`)

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)
	require.True(t, r.Ok(), "diagnostics: %v", r.Render(report.Simple))
	require.Len(t, regs, 3)

	assert.Equal(t, "render", regs[0].Domain)
	assert.Equal(t, "opengl", regs[0].Name)
	assert.Equal(t, scan.TargetRef{PkgPath: "example.com/mezzo/gl", Name: "Driver"}, regs[0].Target)
	assert.Equal(t, "opengl", regs[0].At.Text())
	loc := regs[0].At.StartLoc()
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 11, loc.Column)

	assert.Equal(t, "video", regs[2].Domain)
	assert.Equal(t, "x11", regs[2].At.Text())
}

func TestLoadManifestUnknownDomain(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `audio:
  - name: pipewire
    type: example.com/mezzo/pw.Driver
render:
  - name: opengl
    type: example.com/mezzo/gl.Driver
`)

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)

	// The unknown section is skipped; the known one still loads.
	require.Len(t, regs, 1)
	assert.Equal(t, "opengl", regs[0].Name)

	errors, _ := r.Counts()
	assert.Equal(t, 1, errors)
	assert.Contains(t, r[0].Err.Error(), `unknown dispatch domain "audio"`)
}

func TestLoadManifestInvalidEntries(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `render:
  - name: opengl
  - type: example.com/mezzo/vk.Driver
  - name: "two words"
    type: example.com/mezzo/gl.Driver
  - name: metal
    type: NoDotsHere
  - name: ok
    type: example.com/mezzo/sw.Driver
    extra: ignored
`)

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)

	// Only the last entry survives, with a warning for its stray key.
	require.Len(t, regs, 1)
	assert.Equal(t, "ok", regs[0].Name)

	errors, warnings := r.Counts()
	assert.Equal(t, 4, errors)
	assert.Equal(t, 1, warnings)

	var invalid *trie.InvalidName
	require.ErrorAs(t, r[2].Err, &invalid)
	assert.Equal(t, "two words", invalid.Name)
}

func TestLoadManifestDuplicateKeys(t *testing.T) {
	t.Parallel()

	// Decoding into a yaml.Node sees both occurrences of a repeated key,
	// so the walk has to diagnose them itself.
	path := writeManifest(t, `render:
  - name: opengl
    name: vulkan
    type: example.com/mezzo/gl.Driver
  - name: metal
    type: example.com/mezzo/mtl.Driver
`)

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)

	// The entry with the repeated key is dropped; the next one still loads.
	require.Len(t, regs, 1)
	assert.Equal(t, "metal", regs[0].Name)

	errors, _ := r.Counts()
	assert.Equal(t, 1, errors)
	assert.Contains(t, r[0].Err.Error(), `manifest key "name" given twice`)
	assert.Equal(t, 3, r[0].Primary().Span.StartLoc().Line)
}

func TestLoadManifestNotYAML(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "render: [unclosed\n")

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)
	assert.Empty(t, regs)

	require.Len(t, r, 1)
	assert.Equal(t, report.Error, r[0].Level)
	assert.Contains(t, r[0].Err.Error(), "not valid YAML")
	assert.Equal(t, path, r[0].InFile)
}

func TestLoadManifestEmpty(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "")

	var r report.Report
	regs, err := scan.LoadManifest(path, testDomains, &r)
	require.NoError(t, err)
	assert.Empty(t, regs)

	errors, warnings := r.Counts()
	assert.Equal(t, 0, errors)
	assert.Equal(t, 1, warnings)
	assert.Contains(t, r[0].Err.Error(), "registers no drivers")
}

func TestLoadManifestWrongShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "root is a list",
			text: "- opengl\n- vulkan\n",
			want: "manifest root must map domain names to driver lists",
		},
		{
			name: "domain is a scalar",
			text: "render: opengl\n",
			want: `domain "render" must hold a list of drivers`,
		},
		{
			name: "entry is a scalar",
			text: "render:\n  - opengl\n",
			want: "driver entries must be mappings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeManifest(t, tt.text)
			var r report.Report
			regs, err := scan.LoadManifest(path, testDomains, &r)
			require.NoError(t, err)
			assert.Empty(t, regs)
			require.Len(t, r, 1)
			assert.Contains(t, r[0].Err.Error(), tt.want)
		})
	}
}

func TestLoadManifestUnreadable(t *testing.T) {
	t.Parallel()

	var r report.Report
	_, err := scan.LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"), testDomains, &r)
	require.Error(t, err)
	assert.True(t, r.Ok())
}
