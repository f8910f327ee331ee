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
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezzoav/drivermux/report"
	"github.com/mezzoav/drivermux/scan"
	"github.com/mezzoav/drivermux/trie"
)

const testPkgPath = "example.com/drivers"

var testDomains = []scan.Domain{
	{Name: "render", Interface: testPkgPath + ".Render", Func: "MatchRender"},
	{Name: "video", Interface: testPkgPath + ".Video", Func: "MatchVideo"},
}

// parseAndCheck parses and type-checks one file of driver source in
// memory, so directive scanning runs without the go toolchain.
func parseAndCheck(t *testing.T, path, src string) scan.Source {
	t.Helper()

	fset := token.NewFileSet()
	syntax, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	require.NoError(t, err)

	defs := make(map[*ast.Ident]types.Object)
	var conf types.Config
	pkg, err := conf.Check(testPkgPath, fset, []*ast.File{syntax}, &types.Info{Defs: defs})
	require.NoError(t, err)

	return scan.Source{
		File:   report.NewFile(path, src),
		Syntax: syntax,
		Fset:   fset,
		Pkg:    pkg,
		Defs:   defs,
	}
}

func ifaceOf(t *testing.T, pkg *types.Package, name string) *types.Interface {
	t.Helper()
	obj := pkg.Scope().Lookup(name)
	require.NotNil(t, obj, "interface %s", name)
	iface, ok := obj.Type().Underlying().(*types.Interface)
	require.True(t, ok, "%s is not an interface", name)
	return iface
}

func ifacesOf(t *testing.T, pkg *types.Package) map[string]*types.Interface {
	t.Helper()
	return map[string]*types.Interface{
		"render": ifaceOf(t, pkg, "Render"),
		"video":  ifaceOf(t, pkg, "Video"),
	}
}

const interfaces = `
type Render interface {
	DriverName() string
}

type Video interface {
	DriverName() string
	Displays() int
}
`

func TestScanFile(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//drivermux:render opengl
type GL struct{}

func (*GL) DriverName() string { return "opengl" }

//drivermux:render vulkan
type VK struct{}

func (*VK) DriverName() string { return "vulkan" }

//drivermux:video x11
type X11 struct{}

func (*X11) DriverName() string { return "x11" }
func (*X11) Displays() int      { return 1 }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	require.True(t, r.Ok(), "diagnostics: %v", r.Render(report.Simple))
	require.Len(t, regs, 3)

	want := []scan.Registration{
		{Domain: "render", Name: "opengl", Target: scan.TargetRef{PkgPath: testPkgPath, Name: "GL"}},
		{Domain: "render", Name: "vulkan", Target: scan.TargetRef{PkgPath: testPkgPath, Name: "VK"}},
		{Domain: "video", Name: "x11", Target: scan.TargetRef{PkgPath: testPkgPath, Name: "X11"}},
	}
	opt := cmp.Comparer(func(a, b report.Span) bool { return true })
	assert.Empty(t, cmp.Diff(want, regs, opt))

	// Spans point at the driver name inside the directive.
	for i, reg := range regs {
		assert.Equal(t, want[i].Name, reg.At.Text())
	}
}

func TestScanFileValueReceiver(t *testing.T) {
	t.Parallel()

	// Methods on the value receiver satisfy the check too.
	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//drivermux:render software
type Soft struct{}

func (Soft) DriverName() string { return "software" }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	assert.True(t, r.Ok())
	require.Len(t, regs, 1)
	assert.Equal(t, "software", regs[0].Name)
}

func TestScanFileGrouped(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
type (
	//drivermux:render opengl
	GL struct{}

	//drivermux:render vulkan
	VK struct{}
)

func (*GL) DriverName() string { return "opengl" }
func (*VK) DriverName() string { return "vulkan" }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	assert.True(t, r.Ok())
	assert.Len(t, regs, 2)
}

func TestScanFileIgnoresOtherTools(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//go:generate stringer -type=GL
// GL is the OpenGL driver. Not a directive: drivermux:render nothing.
//drivermux:render opengl
type GL struct{}

func (*GL) DriverName() string { return "opengl" }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	assert.True(t, r.Ok())
	require.Len(t, regs, 1)
	assert.Equal(t, "opengl", regs[0].Name)
}

func TestScanFileBadDirectives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		reason string
	}{
		{
			name: "unknown domain",
			src: `//drivermux:audio pipewire
type A struct{}`,
			reason: `unknown dispatch domain "audio"`,
		},
		{
			name: "missing name",
			src: `//drivermux:render
type A struct{}`,
			reason: "expected exactly one driver name, found 0 arguments",
		},
		{
			name: "extra arguments",
			src: `//drivermux:render opengl opengles
type A struct{}`,
			reason: "expected exactly one driver name, found 2 arguments",
		},
		{
			name: "unparseable arguments",
			src: `//drivermux:render "unclosed
type A struct{}`,
			reason: "cannot parse directive arguments",
		},
		{
			name: "on a function",
			src: `//drivermux:render opengl
func NewGL() *Render { return nil }`,
			reason: "must be on a single type declaration",
		},
		{
			name: "on a var",
			src: `//drivermux:render opengl
var Default int`,
			reason: "must be on a single type declaration",
		},
		{
			name: "on a type group",
			src: `//drivermux:render opengl
type (
	A struct{}
	B struct{}
)`,
			reason: "must be on a single type declaration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := parseAndCheck(t, "drivers.go", "package drivers\n"+interfaces+"\n"+tt.src+"\n")
			var r report.Report
			regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
			assert.Empty(t, regs)

			require.Len(t, r, 1)
			var bad *scan.BadDirective
			require.ErrorAs(t, r[0].Err, &bad)
			assert.Contains(t, bad.Error(), tt.reason)
			assert.False(t, bad.At.IsZero())
		})
	}
}

func TestScanFileInvalidName(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//drivermux:render "two words"
type GL struct{}

func (*GL) DriverName() string { return "?" }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	assert.Empty(t, regs)

	require.Len(t, r, 1)
	var invalid *trie.InvalidName
	require.ErrorAs(t, r[0].Err, &invalid)
	assert.Equal(t, "two words", invalid.Name)
	assert.Equal(t, "two words", invalid.At.Text())
}

func TestScanFileDoesNotImplement(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//drivermux:render broken
type Broken struct{}

//drivermux:video alsostill
type Textual struct{}

func (*Textual) DriverName() string { return "" }
`)

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifacesOf(t, src.Pkg), &r)
	assert.Empty(t, regs)

	require.Len(t, r, 2)
	var missing *scan.DoesNotImplement
	require.ErrorAs(t, r[0].Err, &missing)
	assert.Equal(t, scan.TargetRef{PkgPath: testPkgPath, Name: "Broken"}, missing.Target)
	assert.Equal(t, testPkgPath+".Render", missing.Interface)

	require.ErrorAs(t, r[1].Err, &missing)
	assert.Equal(t, "Textual", missing.Target.Name)
}

func TestScanFileMissingCollaborator(t *testing.T) {
	t.Parallel()

	src := parseAndCheck(t, "drivers.go", `package drivers
`+interfaces+`
//drivermux:render opengl
type GL struct{}

func (*GL) DriverName() string { return "opengl" }

//drivermux:render vulkan
type VK struct{}

func (*VK) DriverName() string { return "vulkan" }

//drivermux:video x11
type X11 struct{}

func (*X11) DriverName() string { return "x11" }
func (*X11) Displays() int      { return 1 }
`)

	// The render interface cannot be resolved; video still works.
	ifaces := map[string]*types.Interface{"video": ifaceOf(t, src.Pkg, "Video")}

	var r report.Report
	regs := scan.ScanFile(src, testDomains, ifaces, &r)
	require.Len(t, regs, 1)
	assert.Equal(t, "video", regs[0].Domain)

	// One diagnostic per render registration encountered.
	require.Len(t, r, 2)
	for i := range r {
		var missing *scan.MissingCollaborator
		require.ErrorAs(t, r[i].Err, &missing)
		assert.Equal(t, "render", missing.Domain)
		assert.Equal(t, testPkgPath+".Render", missing.Interface)
	}
}

func TestTargetRefString(t *testing.T) {
	t.Parallel()

	ref := scan.TargetRef{PkgPath: "example.com/mezzo/gl", Name: "Driver"}
	assert.Equal(t, "example.com/mezzo/gl.Driver", ref.String())
}

func TestParseRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want scan.TargetRef
		ok   bool
	}{
		{in: "example.com/mezzo/gl.Driver", want: scan.TargetRef{PkgPath: "example.com/mezzo/gl", Name: "Driver"}, ok: true},
		{in: "a.B", want: scan.TargetRef{PkgPath: "a", Name: "B"}, ok: true},
		{in: "gopkg.in/check.v1.Suite", want: scan.TargetRef{PkgPath: "gopkg.in/check.v1", Name: "Suite"}, ok: true},
		{in: "NoDots"},
		{in: ".LeadingDot"},
		{in: "trailing/dot."},
		{in: ""},
	}
	for _, tt := range tests {
		got, ok := scan.ParseRef(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
