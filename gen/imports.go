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

package gen

import (
	"fmt"
	"go/token"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/mezzoav/drivermux/scan"
)

// imports assigns a local name to every package the generated file must
// import. Every import is aliased explicitly, so references never depend
// on guessing a package's declared name from its path. Names are assigned
// in sorted path order, keeping the output independent of discovery order.
type imports struct {
	// local is the import path of the package being generated into.
	// References into it stay unqualified and it is never imported.
	local string

	names map[string]string
	fixed map[string]bool
}

func newImports(local string) *imports {
	return &imports{
		local: local,
		names: make(map[string]string),
		fixed: make(map[string]bool),
	}
}

// add records that the generated file references path.
func (m *imports) add(path string) {
	if path == "" || path == m.local {
		return
	}
	if _, ok := m.names[path]; !ok {
		m.names[path] = ""
	}
}

// addFixed records a caller-supplied import whose local name must stay
// exactly pkgName(path), because hand-written leaf expressions reference
// it by that name.
func (m *imports) addFixed(path string) {
	m.add(path)
	if path != "" && path != m.local {
		m.fixed[path] = true
	}
}

// resolve assigns local names. Fixed imports claim their derived name
// first and fail on collision; tracked imports then take the derived name
// or a numbered variant of it. taken seeds the identifiers the generated
// file already declares or binds.
func (m *imports) resolve(taken map[string]bool) error {
	for _, path := range slices.Sorted(maps.Keys(m.names)) {
		if !m.fixed[path] {
			continue
		}
		name := pkgName(path)
		if taken[name] {
			return fmt.Errorf("import %q needs the name %q, which is already in use", path, name)
		}
		taken[name] = true
		m.names[path] = name
	}
	for _, path := range slices.Sorted(maps.Keys(m.names)) {
		if m.names[path] != "" {
			continue
		}
		base := pkgName(path)
		name := base
		for n := 2; taken[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		taken[name] = true
		m.names[path] = name
	}
	return nil
}

// qualify renders a reference to ref using the resolved import names.
// References into the local package are unqualified.
func (m *imports) qualify(ref scan.TargetRef) string {
	if ref.PkgPath == "" || ref.PkgPath == m.local {
		return ref.Name
	}
	return m.names[ref.PkgPath] + "." + ref.Name
}

// lines returns the import block entries in path order.
func (m *imports) lines() []importLine {
	out := make([]importLine, 0, len(m.names))
	for _, path := range slices.Sorted(maps.Keys(m.names)) {
		out = append(out, importLine{Name: m.names[path], Path: path})
	}
	return out
}

type importLine struct {
	Name, Path string
}

// pkgName derives a plausible local name for an import path: the last
// segment, stepping over major-version segments like /v3 and version
// suffixes like .v2, stripped down to a valid identifier.
func pkgName(path string) string {
	segs := strings.Split(path, "/")
	base := segs[len(segs)-1]
	if isVersionSegment(base) && len(segs) > 1 {
		base = segs[len(segs)-2]
	}
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}

	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	if name := b.String(); token.IsIdentifier(name) {
		return name
	}
	return "pkg"
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
