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

// Package golden runs table-driven tests whose table lives on disk: each
// file under a corpus root is one test case, and the expected outputs sit
// next to it as sibling golden files.
package golden

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// Corpus describes one on-disk test corpus.
type Corpus struct {
	// Root of the corpus, relative to the file that calls [Corpus.Run].
	Root string

	// Name of an environment variable holding a glob of cases whose golden
	// files should be rewritten from the current outputs instead of
	// compared. Refresh runs always fail, so stale goldens cannot slip
	// through a CI that refreshes by accident.
	Refresh string

	// Extension (without the dot) of the files that define a test case.
	Extension string

	// Expected outputs of each case, found via their extensions.
	Outputs []Output

	// Test runs one case. The path is relative to the test file's
	// directory, which is also the working directory under "go test", so
	// the case file can be opened directly. The returned strings
	// correspond to Outputs, in order.
	Test func(t *testing.T, path string) []string
}

// Output is one expected output of a corpus case.
//
// Its golden file is the case file's name with "." and Extension appended,
// so the case testdata/corpus/basic.yaml with an Output extension "go" is
// checked against testdata/corpus/basic.yaml.go. A missing golden file
// stands for the empty string, and a refreshed output that comes back
// empty removes the file again.
type Output struct {
	Extension string

	// Compare overrides the byte-for-byte comparison; it returns a
	// description of the mismatch, or "" when got is acceptable.
	Compare func(got, want string) string
}

// Run locates every case under the corpus root and runs each as a subtest.
func (c Corpus) Run(t *testing.T) {
	base := callerDir()

	var cases []string
	err := filepath.WalkDir(filepath.Join(base, c.Root), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.TrimPrefix(filepath.Ext(p), ".") == c.Extension {
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			cases = append(cases, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("golden: walking corpus root %q: %v", c.Root, err)
	}
	if len(cases) == 0 {
		t.Fatalf("golden: no *.%s cases under %q", c.Extension, c.Root)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("golden: %s holds an invalid glob %q", c.Refresh, refresh)
		}
	}
	if refresh != "" {
		t.Logf("golden: rewriting golden files because %s=%s", c.Refresh, refresh)
		t.Fail()
	}

	for _, path := range cases {
		t.Run(filepath.ToSlash(path), func(t *testing.T) {
			got := c.Test(t, path)
			if len(got) != len(c.Outputs) {
				t.Fatalf("golden: case produced %d outputs, corpus declares %d", len(got), len(c.Outputs))
			}

			rewrite, _ := doublestar.Match(refresh, filepath.ToSlash(path))
			for i, output := range c.Outputs {
				goldenPath := filepath.Join(base, path+"."+output.Extension)
				if rewrite {
					c.rewrite(t, goldenPath, got[i])
					continue
				}

				want, err := os.ReadFile(goldenPath)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					t.Errorf("golden: reading %q: %v", goldenPath, err)
					continue
				}
				compare := output.Compare
				if compare == nil {
					compare = diff
				}
				if mismatch := compare(got[i], string(want)); mismatch != "" {
					t.Errorf("golden: mismatch against %q:\n%s", path+"."+output.Extension, mismatch)
				}
			}
		})
	}
}

func (c Corpus) rewrite(t *testing.T, path, text string) {
	if text == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.Errorf("golden: removing %q: %v", path, err)
		}
		return
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Errorf("golden: writing %q: %v", path, err)
	}
}

// diff is the default comparison: a unified diff of want against got, with
// the changed lines colored for readability in test logs.
func diff(got, want string) string {
	if got == want {
		return ""
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+"):
			lines[i] = "\033[1;92m" + line + "\033[0m"
		case strings.HasPrefix(line, "-"):
			lines[i] = "\033[1;91m" + line + "\033[0m"
		}
	}
	return strings.Join(lines, "\n")
}

// callerDir resolves the directory of the test file that called
// [Corpus.Run], so corpus roots travel with the test that owns them.
func callerDir() string {
	_, file, _, ok := runtime.Caller(2)
	if !ok {
		panic("golden: cannot resolve the calling test file")
	}
	return filepath.Dir(file)
}
