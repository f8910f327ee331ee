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

package report

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// File is a source file (or manifest, or any other text input) involved in
// a diagnostic.
//
// It carries book-keeping information for resolving span locations. A nil
// *File behaves like an empty file with the path "".
type File struct {
	path, text string

	once sync.Once
	// Byte offset of the start of each line of text, in ascending order.
	// Recovering the line for an offset is a binary search on this slice.
	lineIndex []int
}

// NewFile constructs a new source file.
//
// The path does not need to exist on disk; it is only used to label spans.
func NewFile(path, text string) *File {
	return &File{path: path, text: text}
}

// Path returns this file's path label.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Text returns this file's contents.
func (f *File) Text() string {
	if f == nil {
		return ""
	}
	return f.text
}

// Span constructs a span over the byte range [start, end) of this file.
func (f *File) Span(start, end int) Span {
	if f == nil {
		return Span{}
	}
	return Span{File: f, Start: start, End: end}
}

// LineSpan returns a span covering the given 1-indexed line, excluding its
// trailing newline. Out-of-range lines produce the zero span.
func (f *File) LineSpan(line int) Span {
	lines := f.lines()
	if line < 1 || line > len(lines) {
		return Span{}
	}
	start := lines[line-1]
	end := len(f.Text())
	if line < len(lines) {
		end = lines[line] - 1 // Drop the newline itself.
	}
	return f.Span(start, end)
}

// Location resolves full location information for the given byte offset.
//
// Columns are measured in runes, 1-indexed, matching what editors show.
func (f *File) Location(offset int) Location {
	if f == nil {
		return Location{Line: 1, Column: 1}
	}
	offset = min(max(offset, 0), len(f.text))

	lines := f.lines()
	line, exact := slices.BinarySearch(lines, offset)
	if !exact {
		line--
	}

	column := 1
	for range f.text[lines[line]:offset] {
		column++
	}

	return Location{
		Offset: offset,
		Line:   line + 1,
		Column: column,
	}
}

// InverseLocation returns the byte offset for a 1-indexed line/column pair,
// where column counts runes. This is how spans are recovered from sources
// that only report line/column positions, such as YAML manifests. A column
// past the end of the line resolves to the line's end.
func (f *File) InverseLocation(line, column int) int {
	lines := f.lines()
	if line < 1 || line > len(lines) {
		return 0
	}

	offset := lines[line-1]
	end := len(f.text)
	if line < len(lines) {
		end = lines[line] - 1 // Stop at the newline.
	}
	for offset < end && column > 1 {
		_, size := utf8.DecodeRuneInString(f.text[offset:])
		offset += size
		column--
	}
	return offset
}

func (f *File) lines() []int {
	f.once.Do(func() {
		f.lineIndex = append(f.lineIndex, 0)
		for i, b := range []byte(f.text) {
			if b == '\n' {
				f.lineIndex = append(f.lineIndex, i+1)
			}
		}
	})
	return f.lineIndex
}

// Span is a byte range within a [File].
type Span struct {
	*File

	// Start and end byte offsets, with End exclusive.
	Start, End int
}

// IsZero reports whether this is the zero span, which carries no location
// information at all.
func (s Span) IsZero() bool {
	return s.File == nil
}

// Text returns the text this span covers.
func (s Span) Text() string {
	return s.File.Text()[s.Start:s.End]
}

// Len returns the length of this span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// StartLoc returns the resolved start location of this span.
func (s Span) StartLoc() Location {
	return s.File.Location(s.Start)
}

// EndLoc returns the resolved end location of this span.
func (s Span) EndLoc() Location {
	return s.File.Location(s.End)
}

// String implements [fmt.Stringer].
func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	start := s.StartLoc()
	return fmt.Sprintf("%s:%d:%d", s.Path(), start.Line, start.Column)
}

// Join returns the smallest span containing every non-zero span in spans.
//
// All non-zero spans must share a file; if they do not, Join panics, since
// that is always a bug in the caller.
func Join(spans ...Span) Span {
	var joined Span
	for _, span := range spans {
		if span.IsZero() {
			continue
		}
		if joined.IsZero() {
			joined = span
			continue
		}
		if joined.File != span.File {
			panic(fmt.Sprintf(
				"drivermux/report: Join() called with spans from distinct files: %q != %q",
				joined.Path(), span.Path(),
			))
		}
		joined.Start = min(joined.Start, span.Start)
		joined.End = max(joined.End, span.End)
	}
	return joined
}

// Location is a user-displayable location within a source file.
type Location struct {
	// The byte offset for this location.
	Offset int

	// The line and column for this location, 1-indexed; columns count
	// runes. A zero Line doubles as a "no location" sentinel.
	Line, Column int
}

// cutLine returns the full line of text around offset, together with the
// offset of the line's first byte and the offset clamped to the text. Used
// by the renderer to print source windows.
func cutLine(f *File, offset int) (line string, lineStart, clamped int) {
	text := f.Text()
	offset = min(max(offset, 0), len(text))
	lineStart = strings.LastIndexByte(text[:offset], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i != -1 {
		lineEnd = offset + i
	}
	return text[lineStart:lineEnd], lineStart, offset
}
