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

// Package scan collects driver registrations from Go source.
//
// A driver implementation declares the native name it binds to with a
// comment directive on its type declaration:
//
//	//drivermux:render opengl
//	type Driver struct{ ... }
//
// The verb after the colon names the dispatch domain; the single argument
// is the driver name. [Scan] loads packages, extracts directives, verifies
// that each annotated type implements its domain's interface, and returns
// the surviving registrations. Out-of-tree drivers that cannot carry a
// directive are declared in a YAML manifest instead; see [LoadManifest].
//
// Malformed directives, unknown domains, bad names, and types that fail
// the interface check are all recoverable diagnostics on the caller's
// [report.Report]; one bad registration never stops the others from being
// collected.
package scan

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/mezzoav/drivermux/report"
	"github.com/mezzoav/drivermux/trie"
)

// Domain describes one dispatch domain: a family of drivers sharing an
// interface, dispatched by one generated matcher.
type Domain struct {
	// Name is the directive verb: //drivermux:render names the "render"
	// domain.
	Name string `yaml:"name"`

	// Interface is the qualified interface every driver in this domain
	// must implement, as "import/path.Ident".
	Interface string `yaml:"interface"`

	// Func is the name of the generated matcher function.
	Func string `yaml:"func"`

	// Registry optionally names a qualified function returning the runtime
	// registry this domain's drivers register into at init time, as
	// "import/path.Func". Empty means no init-time registration is
	// generated.
	Registry string `yaml:"registry,omitempty"`
}

// TargetRef identifies a driver implementation type.
type TargetRef struct {
	// PkgPath is the import path of the package declaring the type.
	PkgPath string

	// Name is the type's name within that package.
	Name string
}

// String implements [fmt.Stringer].
func (t TargetRef) String() string {
	return t.PkgPath + "." + t.Name
}

// ParseRef splits a qualified name of the form "import/path.Ident" into a
// [TargetRef]. It reports false when s has no dot or an empty half.
func ParseRef(s string) (TargetRef, bool) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return TargetRef{}, false
	}
	return TargetRef{PkgPath: s[:i], Name: s[i+1:]}, true
}

// Registration is one collected (driver name, target) binding.
type Registration struct {
	// Domain is the dispatch domain the registration belongs to.
	Domain string

	// Name is the native driver name.
	Name string

	// Target is the implementation type bound to Name.
	Target TargetRef

	// At is the registration site, used only for diagnostics.
	At report.Span
}

// Config controls what [Scan] loads.
type Config struct {
	// Dir is the directory package loading runs in; empty means the
	// current directory.
	Dir string `yaml:"dir,omitempty"`

	// Patterns are go/packages load patterns; empty means "./...".
	Patterns []string `yaml:"patterns,omitempty"`

	// Domains are the dispatch domains to collect registrations for.
	Domains []Domain `yaml:"domains"`
}

// Result is what [Scan] collects from a package load.
type Result struct {
	// Registrations are the surviving directive registrations.
	Registrations []Registration

	// Broken lists, in configuration order, the domains whose interface
	// could not be resolved in the loaded packages. Their registrations
	// were reported as missing collaborators; no dispatcher can be
	// generated for them.
	Broken []string
}

// Scan loads the configured packages and collects every driver
// registration in them. User-level problems (bad directives, conflict
// with a domain's interface, invalid names) are reported to r; the error
// covers environment failures such as the package load itself breaking.
func Scan(ctx context.Context, cfg Config, r *report.Report) (Result, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps,
		Context: ctx,
		Dir:     cfg.Dir,
	}, patterns...)
	if err != nil {
		return Result{}, fmt.Errorf("loading packages: %w", err)
	}
	if err := loadErrors(pkgs); err != nil {
		return Result{}, err
	}

	ifaces := resolveInterfaces(pkgs, cfg.Domains)

	var res Result
	for _, domain := range cfg.Domains {
		if _, ok := ifaces[domain.Name]; !ok {
			res.Broken = append(res.Broken, domain.Name)
		}
	}

	files := make(map[string]*report.File)
	for _, pkg := range pkgs {
		for _, syntax := range pkg.Syntax {
			position := pkg.Fset.Position(syntax.Pos())
			src := Source{
				File:   fileFor(files, position.Filename),
				Syntax: syntax,
				Fset:   pkg.Fset,
				Pkg:    pkg.Types,
				Defs:   pkg.TypesInfo.Defs,
			}
			res.Registrations = append(res.Registrations, ScanFile(src, cfg.Domains, ifaces, r)...)
		}
	}
	return res, nil
}

// loadErrors flattens per-package load errors into a single error.
func loadErrors(pkgs []*packages.Package) error {
	var errs []error
	for _, pkg := range pkgs {
		for _, err := range pkg.Errors {
			errs = append(errs, fmt.Errorf("package %s: %s", pkg.PkgPath, err.Msg))
		}
	}
	return errors.Join(errs...)
}

// fileFor reads and caches the source text behind path so diagnostics can
// quote it. A file that cannot be read back degrades to empty text; spans
// into it keep the right path but lose their snippets.
func fileFor(cache map[string]*report.File, path string) *report.File {
	if f, ok := cache[path]; ok {
		return f
	}
	text, err := os.ReadFile(path)
	if err != nil {
		text = nil
	}
	f := report.NewFile(path, string(text))
	cache[path] = f
	return f
}

// resolveInterfaces looks up each domain's interface in the loaded package
// graph. Domains whose interface cannot be resolved are absent from the
// result, which [ScanFile] reports as a missing collaborator at each
// registration site.
func resolveInterfaces(pkgs []*packages.Package, domains []Domain) map[string]*types.Interface {
	out := make(map[string]*types.Interface, len(domains))
	for _, domain := range domains {
		path, name, ok := splitQualified(domain.Interface)
		if !ok {
			continue
		}
		tp := findTypesPackage(pkgs, path)
		if tp == nil {
			continue
		}
		obj, ok := tp.Scope().Lookup(name).(*types.TypeName)
		if !ok {
			continue
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			continue
		}
		out[domain.Name] = iface
	}
	return out
}

func splitQualified(s string) (path, name string, ok bool) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// findTypesPackage searches the load graph, imports included, for the
// package with the given import path.
func findTypesPackage(pkgs []*packages.Package, path string) *types.Package {
	seen := make(map[string]bool)
	queue := make([]*packages.Package, 0, len(pkgs))
	queue = append(queue, pkgs...)
	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]
		if pkg == nil || seen[pkg.PkgPath] {
			continue
		}
		seen[pkg.PkgPath] = true
		if pkg.PkgPath == path {
			return pkg.Types
		}
		for _, imp := range pkg.Imports {
			queue = append(queue, imp)
		}
	}
	return nil
}

// Source is one parsed file together with everything needed to resolve and
// type the registrations it declares. [Scan] assembles these from a
// package load; tests can assemble them from go/parser and go/types
// directly.
type Source struct {
	// File carries the path and text behind Syntax, for spans.
	File *report.File

	// Syntax is the parsed file, with comments.
	Syntax *ast.File

	// Fset is the token file set Syntax was parsed with.
	Fset *token.FileSet

	// Pkg is the type-checked package the file belongs to.
	Pkg *types.Package

	// Defs maps declared identifiers to their type objects, as produced
	// by the type checker.
	Defs map[*ast.Ident]types.Object
}

// ScanFile collects the registrations declared in one source file.
//
// Every drivermux directive in the file is resolved against domains and
// ifaces (keyed by domain name; a missing entry means the domain's
// interface could not be resolved). Problems are reported to r and the
// offending directive is skipped.
func ScanFile(src Source, domains []Domain, ifaces map[string]*types.Interface, r *report.Report) []Registration {
	s := &fileScanner{src: src, domains: domains, ifaces: ifaces, report: r}
	for _, decl := range src.Syntax.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			s.genDecl(decl)
		case *ast.FuncDecl:
			s.rejectDirectives(decl.Doc, "a function declaration")
		}
	}
	return s.regs
}

type fileScanner struct {
	src     Source
	domains []Domain
	ifaces  map[string]*types.Interface
	report  *report.Report
	regs    []Registration
}

func (s *fileScanner) genDecl(decl *ast.GenDecl) {
	if decl.Tok != token.TYPE {
		s.rejectDirectives(decl.Doc, "a non-type declaration")
		return
	}

	if decl.Lparen == token.NoPos {
		// A plain "type Foo ..." declaration; the doc belongs to its one
		// spec.
		if spec, ok := decl.Specs[0].(*ast.TypeSpec); ok {
			s.typeSpec(decl.Doc, spec)
		}
		return
	}

	// In a grouped declaration a directive must sit on the individual
	// spec, since one on the group would not name which type it means.
	s.rejectDirectives(decl.Doc, "a type declaration group")
	for _, spec := range decl.Specs {
		if spec, ok := spec.(*ast.TypeSpec); ok {
			s.typeSpec(spec.Doc, spec)
		}
	}
}

// rejectDirectives diagnoses any drivermux directive found in doc, which
// is attached to something that cannot be registered.
func (s *fileScanner) rejectDirectives(doc *ast.CommentGroup, where string) {
	s.directives(doc, func(_ *directive, c *ast.Comment) {
		s.report.Error(&BadDirective{
			Reason: fmt.Sprintf("directive on %s; it must be on a single type declaration", where),
			At:     s.commentSpan(c),
		})
	})
}

func (s *fileScanner) typeSpec(doc *ast.CommentGroup, spec *ast.TypeSpec) {
	s.directives(doc, func(d *directive, c *ast.Comment) {
		s.registration(d, c, spec)
	})
}

// directives invokes fn for each well-formed drivermux directive in doc,
// reporting the ones whose arguments cannot even be tokenized.
func (s *fileScanner) directives(doc *ast.CommentGroup, fn func(*directive, *ast.Comment)) {
	if doc == nil {
		return
	}
	for _, comment := range doc.List {
		d, err := parseDirective(comment.Text)
		if err != nil {
			s.report.Error(&BadDirective{
				Reason: fmt.Sprintf("cannot parse directive arguments: %v", err),
				At:     s.commentSpan(comment),
			})
			continue
		}
		if d == nil {
			continue
		}
		fn(d, comment)
	}
}

// registration resolves one directive on a type declaration into a
// Registration, or reports why it cannot be one.
func (s *fileScanner) registration(d *directive, c *ast.Comment, spec *ast.TypeSpec) {
	domain, ok := s.domain(d.verb)
	if !ok {
		s.report.Error(&BadDirective{
			Reason: fmt.Sprintf("unknown dispatch domain %q", d.verb),
			At:     s.commentSpan(c),
		})
		return
	}
	if len(d.args) != 1 {
		s.report.Error(&BadDirective{
			Reason: fmt.Sprintf("expected exactly one driver name, found %d arguments", len(d.args)),
			At:     s.commentSpan(c),
		})
		return
	}

	name := d.args[0]
	at := s.argSpan(c, name)
	if err := trie.CheckName(name, at); err != nil {
		s.report.Error(err)
		return
	}

	target := TargetRef{PkgPath: s.src.Pkg.Path(), Name: spec.Name.Name}

	iface, ok := s.ifaces[domain.Name]
	if !ok {
		s.report.Error(&MissingCollaborator{
			Domain:    domain.Name,
			Interface: domain.Interface,
			At:        at,
		})
		return
	}

	obj, ok := s.src.Defs[spec.Name].(*types.TypeName)
	if !ok || !types.Implements(types.NewPointer(obj.Type()), iface) {
		s.report.Error(&DoesNotImplement{
			Target:    target,
			Interface: domain.Interface,
			At:        at,
		})
		return
	}

	s.regs = append(s.regs, Registration{
		Domain: domain.Name,
		Name:   name,
		Target: target,
		At:     at,
	})
}

func (s *fileScanner) domain(verb string) (Domain, bool) {
	for _, domain := range s.domains {
		if domain.Name == verb {
			return domain, true
		}
	}
	return Domain{}, false
}

// commentSpan covers an entire comment.
func (s *fileScanner) commentSpan(c *ast.Comment) report.Span {
	offset := s.src.Fset.Position(c.Pos()).Offset
	return s.src.File.Span(offset, offset+len(c.Text))
}

// argSpan covers one argument within a directive comment, falling back to
// the whole comment when the argument text cannot be located (it may have
// been unquoted by the tokenizer).
func (s *fileScanner) argSpan(c *ast.Comment, arg string) report.Span {
	offset := s.src.Fset.Position(c.Pos()).Offset
	if i := strings.LastIndex(c.Text, arg); arg != "" && i >= 0 {
		return s.src.File.Span(offset+i, offset+i+len(arg))
	}
	return s.src.File.Span(offset, offset+len(c.Text))
}
