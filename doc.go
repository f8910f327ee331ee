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

// Package drivermux generates Go dispatchers that map native driver name
// strings to the driver implementations registered for them. The native
// side of a media stack reports its active backends as C strings
// ("opengl", "x11", and so on); this tool turns a set of declarative
// registrations into switch-based matchers that resolve those strings to
// concrete Go types.
//
// The sub-packages follow the phases of a generation run:
//  1. Collect registrations from //drivermux:DOMAIN NAME directives and
//     from YAML manifests.
//     Also see: scan.Scan, scan.LoadManifest
//  2. Build one byte trie per dispatch domain, detecting duplicate names
//     and prefix conflicts.
//     Also see: trie.New
//  3. Render the tries as a generated source file with one matcher
//     function per domain.
//     Also see: gen.File
//
// Conflicts are diagnostics, not failures: a colliding registration is
// skipped with an error annotated at both registration sites, and every
// unrelated registration still dispatches correctly. Diagnostics collect
// in a report.Report which the caller renders and judges.
//
// # Generator
//
// A Generator ties the phases together. A minimal run scans one package
// tree for directives and writes the dispatcher next to it:
//
//	g := drivermux.Generator{Config: drivermux.Config{
//		Patterns: []string{"./..."},
//		Package:  "backends",
//		Output:   "backends/dispatch.go",
//	}}
//	src, rep, err := g.Run(ctx)
//
// Domains default to the render and video registries of the driver
// package; Config.Domains overrides them. Distinct domains build
// concurrently, bounded by MaxParallelism.
package drivermux
