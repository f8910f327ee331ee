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

// drivermux generates driver-name dispatchers from directive and manifest
// registrations.
//
// Usage:
//
//	drivermux [flags] [config.yaml]
//
// The optional config file carries the same settings as the flags plus
// the domains list; flags win where both are given. Diagnostics render on
// stderr. The exit code is 1 when any error-level diagnostic was
// reported, 2 for usage or environment failures.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mezzoav/drivermux"
	"github.com/mezzoav/drivermux/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("drivermux", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dir      = fs.String("dir", "", "`directory` scan patterns are resolved in")
		output   = fs.String("o", "", "output `file` for the generated dispatcher (default stdout)")
		pkg      = fs.String("pkg", "", "package `name` of the generated file")
		diag     = fs.String("diagnostics", "mono", "diagnostic `style`: simple, mono, or color")
		maxProcs = fs.Int("max-procs", 0, "bound on concurrent domain builds (0 means all CPUs)")
		version  = fs.Bool("version", false, "print version and exit")

		patterns  stringList
		manifests stringList
	)
	fs.Var(&patterns, "scan", "package `pattern` to scan for directives; repeatable")
	fs.Var(&manifests, "manifest", "YAML driver manifest `file`; repeatable")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: drivermux [flags] [config.yaml]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Fprintln(stdout, "drivermux", buildVersion())
		return 0
	}

	style, ok := styleFor(*diag)
	if !ok {
		fmt.Fprintf(stderr, "drivermux: unknown diagnostics style %q\n", *diag)
		return 2
	}

	var cfg drivermux.Config
	switch fs.NArg() {
	case 0:
	case 1:
		if err := loadConfig(fs.Arg(0), &cfg); err != nil {
			fmt.Fprintln(stderr, "drivermux:", err)
			return 2
		}
	default:
		fs.Usage()
		return 2
	}

	// Flags win over the config file.
	if *dir != "" {
		cfg.Dir = *dir
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *pkg != "" {
		cfg.Package = *pkg
	}
	if len(patterns) > 0 {
		cfg.Patterns = patterns
	}
	if len(manifests) > 0 {
		cfg.Manifests = manifests
	}

	if cfg.Package == "" {
		fmt.Fprintln(stderr, "drivermux: no output package name; set -pkg or the config file's package")
		return 2
	}

	g := drivermux.Generator{Config: cfg, MaxParallelism: *maxProcs}
	src, rep, err := g.Run(context.Background())
	if err != nil {
		fmt.Fprintln(stderr, "drivermux:", err)
		return 2
	}

	fmt.Fprint(stderr, rep.Render(style))
	if cfg.Output == "" {
		if _, err := stdout.Write(src); err != nil {
			fmt.Fprintln(stderr, "drivermux:", err)
			return 2
		}
	}
	if errs, _ := rep.Counts(); errs > 0 {
		return 1
	}
	return 0
}

// loadConfig reads a YAML config file into cfg, rejecting unknown keys so
// typos do not pass silently. An empty file is a valid empty config.
func loadConfig(path string, cfg *drivermux.Config) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %v", path, err)
	}
	return nil
}

func styleFor(name string) (report.Style, bool) {
	switch name {
	case "simple":
		return report.Simple, true
	case "mono":
		return report.Monochrome, true
	case "color":
		return report.Colored, true
	}
	return 0, false
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// stringList collects a repeatable flag's values.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}
