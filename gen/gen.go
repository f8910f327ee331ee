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

// Package gen renders driver name tries as generated Go dispatch source.
//
// Each dispatch domain becomes one matcher function whose body is a tree
// of switch statements over successive bytes of the name, mirroring the
// trie's shape. The byte 0 plays double duty as both the end of a Go
// string and the NUL terminator of a native driver name, so the matcher
// recognizes a name exactly where C dispatch would.
package gen

import (
	_ "embed"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"text/template"

	"github.com/mezzoav/drivermux/scan"
	"github.com/mezzoav/drivermux/trie"
)

// Dispatch describes one domain's generated matcher.
type Dispatch struct {
	// Domain supplies the naming: Func becomes the matcher function,
	// Interface the result type, and Registry, when set, the target of an
	// init-time registration block.
	Domain scan.Domain

	// Trie holds the surviving name bindings to dispatch over. Nil means
	// the domain has none; the matcher then never matches.
	Trie *trie.Trie[scan.TargetRef]

	// Result overrides the matcher's result type with verbatim Go type
	// text. Empty derives it from Domain.Interface.
	Result string

	// Leaf renders the expression a successful match returns. Nil emits a
	// constructor literal, func() <Result> { return new(<Target>) }.
	// Hand-written leaves pull the packages they reference in through
	// [FileConfig.Imports].
	Leaf func(scan.TargetRef) string
}

// FileConfig controls the assembled output file.
type FileConfig struct {
	// Package is the name in the generated package clause.
	Package string

	// Path is the import path of the package being generated into.
	// Targets declared in it are referenced without qualification.
	Path string

	// Imports lists extra packages needed by hand-written leaf or result
	// expressions. Each keeps the local name derived from its path.
	Imports []string
}

//go:embed file.go.tmpl
var tmplText string

var fileTmpl = template.Must(template.New("file.go.tmpl").Parse(tmplText))

type fileData struct {
	Package  string
	Imports  []importLine
	Matchers []matcherData
	Inits    [][]string
	ByteAt   bool
}

type matcherData struct {
	Func, Domain, Result, Body string
}

// File renders the matchers for a set of dispatch domains as one
// formatted Go source file. The output is deterministic: it depends only
// on the configuration and the contents of the tries, never on the order
// registrations were inserted. When formatting fails the unformatted
// source is returned alongside the error so the caller can show it.
func File(cfg FileConfig, dispatches []Dispatch) ([]byte, error) {
	if !token.IsIdentifier(cfg.Package) {
		return nil, fmt.Errorf("output package name %q is not a valid identifier", cfg.Package)
	}

	imp := newImports(cfg.Path)
	for _, path := range cfg.Imports {
		imp.addFixed(path)
	}

	// The matcher parameter and helper share the file's scope with the
	// import names, so they claim their identifiers up front.
	taken := map[string]bool{"name": true, "byteAt": true}

	// First pass: collect every package the file will reference, so that
	// import names are settled before any code is rendered.
	results := make([]scan.TargetRef, len(dispatches))
	for i, d := range dispatches {
		switch {
		case d.Domain.Name == "":
			return nil, fmt.Errorf("dispatch %d has no domain name", i)
		case !token.IsIdentifier(d.Domain.Func):
			return nil, fmt.Errorf("domain %q: matcher name %q is not a valid identifier", d.Domain.Name, d.Domain.Func)
		case taken[d.Domain.Func]:
			return nil, fmt.Errorf("domain %q: matcher name %q is already in use", d.Domain.Name, d.Domain.Func)
		}
		taken[d.Domain.Func] = true

		if d.Result == "" {
			ref, ok := scan.ParseRef(d.Domain.Interface)
			if !ok {
				return nil, fmt.Errorf("domain %q: interface %q is not a qualified name", d.Domain.Name, d.Domain.Interface)
			}
			results[i] = ref
			imp.add(ref.PkgPath)
		}
		if d.Leaf == nil && d.Trie != nil {
			for _, target := range d.Trie.Walk() {
				imp.add(target.PkgPath)
			}
		}
		if d.Domain.Registry != "" {
			ref, ok := scan.ParseRef(d.Domain.Registry)
			if !ok {
				return nil, fmt.Errorf("domain %q: registry %q is not a qualified name", d.Domain.Name, d.Domain.Registry)
			}
			if _, bound := registryFor(d); bound {
				imp.add(ref.PkgPath)
			}
		}
	}
	if err := imp.resolve(taken); err != nil {
		return nil, err
	}

	data := fileData{Package: cfg.Package, Imports: imp.lines()}
	for i, d := range dispatches {
		result := d.Result
		if result == "" {
			result = imp.qualify(results[i])
		}
		leaf := d.Leaf
		if leaf == nil {
			leaf = func(t scan.TargetRef) string {
				return fmt.Sprintf("func() %s { return new(%s) }", result, imp.qualify(t))
			}
		}

		m := matcherData{Func: d.Domain.Func, Domain: d.Domain.Name, Result: result}
		if d.Trie != nil && !d.Trie.IsEmpty() {
			var body strings.Builder
			writeSwitch(&body, d.Trie.Root(), 0, leaf)
			m.Body = body.String()
			data.ByteAt = true
		}
		data.Matchers = append(data.Matchers, m)

		if reg, bound := registryFor(d); bound {
			ref, _ := scan.ParseRef(reg)
			var lines []string
			for name, target := range d.Trie.Walk() {
				lines = append(lines, fmt.Sprintf("%s().MustRegister(%q, %s)", imp.qualify(ref), name, leaf(target)))
			}
			data.Inits = append(data.Inits, lines)
		}
	}

	var out strings.Builder
	if err := fileTmpl.Execute(&out, data); err != nil {
		return nil, err
	}
	src := []byte(out.String())
	formatted, err := format.Source(src)
	if err != nil {
		return src, fmt.Errorf("generated source does not format: %w", err)
	}
	return formatted, nil
}

// registryFor reports the registry a domain's drivers register into, if
// the domain both names one and has drivers to register.
func registryFor(d Dispatch) (string, bool) {
	if d.Domain.Registry == "" || d.Trie == nil || d.Trie.IsEmpty() {
		return "", false
	}
	return d.Domain.Registry, true
}

// writeSwitch renders the nested switch mirroring the subtree at n, with
// the switch keyword indented depth+1 tabs. The sentinel case comes
// first, then continuation bytes in ascending order, matching the trie's
// own iteration order. A byte no case matches falls out of every level
// of switch to the shared trailing return.
func writeSwitch(out *strings.Builder, n trie.Node[scan.TargetRef], depth int, leaf func(scan.TargetRef) string) {
	tabs := strings.Repeat("\t", depth+1)
	fmt.Fprintf(out, "%sswitch byteAt(name, %d) {\n", tabs, depth)
	if target, ok := n.Binding(); ok {
		fmt.Fprintf(out, "%scase 0:\n%s\treturn %s, true\n", tabs, tabs, leaf(target))
	}
	for b, child := range n.Children() {
		fmt.Fprintf(out, "%scase %s:\n", tabs, strconv.QuoteRune(rune(b)))
		writeSwitch(out, child, depth+1, leaf)
	}
	fmt.Fprintf(out, "%s}\n", tabs)
}
