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

package scan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mezzoav/drivermux/report"
	"github.com/mezzoav/drivermux/trie"
)

// LoadManifest collects registrations from a YAML manifest, for drivers
// whose source cannot carry a directive. The manifest maps domain names to
// entries:
//
//	render:
//	  - name: opengl
//	    type: example.com/mezzo/gl.Driver
//
// Unlike directive registrations, manifest targets are not checked against
// the domain interface here; an entry naming a type that does not satisfy
// it fails when the generated file is compiled.
//
// Content problems are diagnostics on r; the error covers the file being
// unreadable.
func LoadManifest(path string, domains []Domain, r *report.Report) ([]Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return parseManifest(report.NewFile(path, string(data)), domains, r), nil
}

// parseManifest is the file-content half of [LoadManifest], split out so
// tests can feed manifests without touching the filesystem.
func parseManifest(file *report.File, domains []Domain, r *report.Report) []Registration {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(file.Text()), &doc); err != nil {
		r.Errorf("manifest is not valid YAML: %v", err).
			With(report.InFile(file.Path()))
		return nil
	}
	if len(doc.Content) == 0 {
		r.Warnf("manifest registers no drivers").
			With(report.InFile(file.Path()))
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		r.Errorf("manifest root must map domain names to driver lists").
			With(report.Snippetf(nodeSpan(file, root), "found %s here", yamlKind(root)))
		return nil
	}

	var regs []Registration
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		if !knownDomain(domains, key.Value) {
			r.Errorf("unknown dispatch domain %q", key.Value).
				With(report.Snippetf(nodeSpan(file, key), "in this manifest section"))
			continue
		}
		if value.Kind != yaml.SequenceNode {
			r.Errorf("domain %q must hold a list of drivers", key.Value).
				With(report.Snippetf(nodeSpan(file, value), "found %s here", yamlKind(value)))
			continue
		}

		for _, entry := range value.Content {
			if reg, ok := manifestEntry(file, key.Value, entry, r); ok {
				regs = append(regs, reg)
			}
		}
	}
	return regs
}

// manifestEntry resolves one driver entry under a domain section.
func manifestEntry(file *report.File, domain string, entry *yaml.Node, r *report.Report) (Registration, bool) {
	if entry.Kind != yaml.MappingNode {
		r.Errorf("driver entries must be mappings with name and type keys").
			With(report.Snippetf(nodeSpan(file, entry), "found %s here", yamlKind(entry)))
		return Registration{}, false
	}

	var name, typ *yaml.Node
	for i := 0; i+1 < len(entry.Content); i += 2 {
		key, value := entry.Content[i], entry.Content[i+1]
		if (key.Value == "name" && name != nil) || (key.Value == "type" && typ != nil) {
			r.Errorf("manifest key %q given twice in one driver entry", key.Value).
				With(report.Snippetf(nodeSpan(file, key), "repeated here"))
			return Registration{}, false
		}
		switch key.Value {
		case "name":
			name = value
		case "type":
			typ = value
		default:
			r.Warnf("ignoring unknown manifest key %q", key.Value).
				With(report.Snippetf(nodeSpan(file, key), "in this entry"))
		}
	}

	if name == nil || typ == nil {
		r.Errorf("driver entry needs both name and type keys").
			With(report.Snippetf(nodeSpan(file, entry), "in this entry"))
		return Registration{}, false
	}

	at := nodeSpan(file, name)
	if err := trie.CheckName(name.Value, at); err != nil {
		r.Error(err)
		return Registration{}, false
	}

	target, ok := ParseRef(typ.Value)
	if !ok {
		r.Errorf("type must be a qualified name of the form import/path.Ident, got %q", typ.Value).
			With(report.Snippetf(nodeSpan(file, typ), "in this entry"))
		return Registration{}, false
	}

	return Registration{
		Domain: domain,
		Name:   name.Value,
		Target: target,
		At:     at,
	}, true
}

func knownDomain(domains []Domain, name string) bool {
	for _, domain := range domains {
		if domain.Name == name {
			return true
		}
	}
	return false
}

// nodeSpan synthesizes a span for a YAML node from its line/column. Scalars
// cover their value text; everything else covers the rest of its line.
func nodeSpan(f *report.File, n *yaml.Node) report.Span {
	start := f.InverseLocation(n.Line, n.Column)
	if n.Kind == yaml.ScalarNode && n.Value != "" {
		return f.Span(start, start+len(n.Value))
	}
	if line := f.LineSpan(n.Line); !line.IsZero() && line.End > start {
		return f.Span(start, line.End)
	}
	return f.Span(start, start)
}

func yamlKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "a document"
	case yaml.SequenceNode:
		return "a list"
	case yaml.MappingNode:
		return "a mapping"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unknown node"
	}
}
