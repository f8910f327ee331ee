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

package drivermux

import (
	"cmp"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mezzoav/drivermux/gen"
	"github.com/mezzoav/drivermux/report"
	"github.com/mezzoav/drivermux/scan"
	"github.com/mezzoav/drivermux/trie"
)

// Config describes one generation run. It is also the schema of the
// CLI's YAML configuration file.
type Config struct {
	// Dir is the directory scan patterns are resolved in; empty means the
	// current directory.
	Dir string `yaml:"dir,omitempty"`

	// Patterns are go/packages patterns scanned for directives. Empty
	// means no directive scanning; registrations then come from manifests
	// alone.
	Patterns []string `yaml:"patterns,omitempty"`

	// Manifests are YAML driver manifests read alongside the scan.
	Manifests []string `yaml:"manifests,omitempty"`

	// Domains are the dispatch domains to generate. Empty means
	// [DefaultDomains].
	Domains []scan.Domain `yaml:"domains,omitempty"`

	// Package is the package clause of the generated file.
	Package string `yaml:"package"`

	// Path is the import path of the generated package. Driver types
	// declared in it are referenced without qualification.
	Path string `yaml:"path,omitempty"`

	// Output is where the generated file is written. Empty skips the
	// write; Run still returns the rendered bytes.
	Output string `yaml:"output,omitempty"`
}

// Generator runs the full pipeline: collect registrations, build one trie
// per domain, render the dispatch file.
type Generator struct {
	Config Config

	// MaxParallelism bounds how many domains build concurrently. If
	// unspecified or non-positive, min(runtime.NumCPU(),
	// runtime.GOMAXPROCS(-1)) is used.
	MaxParallelism int
}

// DefaultDomains returns the two dispatch domains of the driver package:
// rendering backends and video backends, each registering into its
// process-wide registry.
func DefaultDomains() []scan.Domain {
	return []scan.Domain{
		{
			Name:      "render",
			Interface: "github.com/mezzoav/drivermux/driver.Render",
			Func:      "MatchRenderDriver",
			Registry:  "github.com/mezzoav/drivermux/driver.Renderers",
		},
		{
			Name:      "video",
			Interface: "github.com/mezzoav/drivermux/driver.Video",
			Func:      "MatchVideoDriver",
			Registry:  "github.com/mezzoav/drivermux/driver.Videos",
		},
	}
}

// Run executes one generation pass and returns the generated source along
// with the accumulated diagnostics. The report carries every user-level
// problem found on the way, conflicts included; the error covers
// environment failures such as unreadable inputs or an unwritable output.
// Callers decide what severity fails their build; Run itself writes the
// output (when Config.Output is set) even if the report carries errors,
// since conflicting registrations are skipped rather than fatal.
//
// A fresh trie is built per domain per call; nothing is retained between
// runs, and no goroutine outlives Run.
func (g *Generator) Run(ctx context.Context) ([]byte, report.Report, error) {
	cfg := g.Config
	domains := cfg.Domains
	if len(domains) == 0 {
		domains = DefaultDomains()
	}

	var r report.Report
	var regs []scan.Registration
	broken := make(map[string]bool)

	if len(cfg.Patterns) > 0 {
		res, err := scan.Scan(ctx, scan.Config{Dir: cfg.Dir, Patterns: cfg.Patterns, Domains: domains}, &r)
		if err != nil {
			return nil, r, err
		}
		regs = res.Registrations
		for _, name := range res.Broken {
			broken[name] = true
		}
	}
	for _, path := range cfg.Manifests {
		fromManifest, err := scan.LoadManifest(path, domains, &r)
		if err != nil {
			return nil, r, err
		}
		regs = append(regs, fromManifest...)
	}

	byDomain := make(map[string][]scan.Registration)
	for _, reg := range regs {
		if broken[reg.Domain] {
			// The scan found no usable interface for this domain, so the
			// manifest entry cannot be checked or dispatched either.
			domain, _ := domainNamed(domains, reg.Domain)
			r.Error(&scan.MissingCollaborator{Domain: reg.Domain, Interface: domain.Interface, At: reg.At})
			continue
		}
		byDomain[reg.Domain] = append(byDomain[reg.Domain], reg)
	}

	units := make([]domainUnit, len(domains))
	sem := semaphore.NewWeighted(int64(g.parallelism()))
	var wg sync.WaitGroup
	for i, domain := range domains {
		if broken[domain.Name] {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				units[i].err = err
				return
			}
			defer sem.Release(1)
			units[i].trie = buildTrie(&units[i].report, byDomain[domain.Name])
		}()
	}
	wg.Wait()

	var dispatches []gen.Dispatch
	for i, domain := range domains {
		if broken[domain.Name] {
			continue
		}
		if units[i].err != nil {
			return nil, r, units[i].err
		}
		r.Join(units[i].report)
		dispatches = append(dispatches, gen.Dispatch{Domain: domain, Trie: units[i].trie})
	}

	src, err := gen.File(gen.FileConfig{Package: cfg.Package, Path: cfg.Path}, dispatches)
	if err != nil {
		return nil, r, err
	}
	if cfg.Output != "" {
		if err := writeAtomic(cfg.Output, src); err != nil {
			return nil, r, err
		}
	}
	return src, r, nil
}

func (g *Generator) parallelism() int {
	if g.MaxParallelism > 0 {
		return g.MaxParallelism
	}
	par := runtime.GOMAXPROCS(-1)
	if cpus := runtime.NumCPU(); par > cpus {
		par = cpus
	}
	return par
}

// domainUnit is one domain's independently built slice of the run.
// Diagnostics go to a private report merged back in domain order, so the
// final report reads the same no matter how the units interleaved.
type domainUnit struct {
	report report.Report
	trie   *trie.Trie[scan.TargetRef]
	err    error
}

// buildTrie inserts a domain's registrations in normalized order, sorted
// by name then target, so which entry "wins" a conflict is a property of
// the registration set rather than of scan order.
func buildTrie(r *report.Report, regs []scan.Registration) *trie.Trie[scan.TargetRef] {
	slices.SortFunc(regs, func(a, b scan.Registration) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.Target.String(), b.Target.String()),
		)
	})

	t := trie.New[scan.TargetRef](r)
	for _, reg := range regs {
		t.Insert(reg.Name, reg.Target, reg.At)
	}
	return t
}

func domainNamed(domains []scan.Domain, name string) (scan.Domain, bool) {
	for _, d := range domains {
		if d.Name == name {
			return d, true
		}
	}
	return scan.Domain{}, false
}

// writeAtomic writes data to path through a rename, so a cancelled or
// failed run never leaves a half-written generated file behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
