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
	"strings"

	"github.com/rivo/uniseg"
)

const (
	Simple Style = 1 + iota
	Monochrome
	Colored
)

// Style selects how diagnostics are rendered for a user.
type Style int

// TabstopWidth is the width all tabstops render as.
const TabstopWidth = 4

// Render renders the whole report in the given style, including a trailing
// summary line for the non-simple styles.
func (r *Report) Render(style Style) string {
	var out strings.Builder
	for i := range *r {
		out.WriteString((*r)[i].Render(style))
		out.WriteByte('\n')
		if style != Simple {
			out.WriteByte('\n')
		}
	}
	if style == Simple {
		return out.String()
	}

	var colors palette
	if style == Colored {
		colors = ansi()
	}

	pluralize := func(n int, what string) string {
		if n == 1 {
			return "1 " + what
		}
		return fmt.Sprint(n, " ", what, "s")
	}

	errors, warnings := r.Counts()
	if errors > 0 {
		fmt.Fprint(&out, colors.bRed, "encountered ", pluralize(errors, "error"))
		if warnings > 0 {
			fmt.Fprint(&out, " and ", pluralize(warnings, "warning"))
		}
		fmt.Fprintln(&out, colors.reset)
	} else if warnings > 0 {
		fmt.Fprint(&out, colors.bYellow, "encountered ", pluralize(warnings, "warning"))
		fmt.Fprintln(&out, colors.reset)
	}
	return out.String()
}

// Render renders a single diagnostic.
//
// The simple style imitates the Go compiler: one line per diagnostic. The
// other styles imitate the Rust compiler, with annotated source windows.
func (d *Diagnostic) Render(style Style) string {
	if style == Simple {
		primary := d.Primary()
		if primary.Span.IsZero() {
			path := d.InFile
			if path == "" {
				path = "<unknown>"
			}
			return fmt.Sprintf("%v: %s: %v", d.Level, path, d.Err)
		}
		start := primary.Span.StartLoc()
		return fmt.Sprintf("%v: %s:%d:%d: %v", d.Level, primary.Span.Path(), start.Line, start.Column, d.Err)
	}

	var colors palette
	if style == Colored {
		colors = ansi()
	}

	var out strings.Builder
	fmt.Fprint(&out, colors.boldFor(d.Level), d.Level, ": ", d.Err, colors.reset)

	// The line number gutter is sized by the largest line mentioned.
	gutter := 2
	for _, a := range d.Annotations {
		if a.Span.IsZero() {
			continue
		}
		gutter = max(gutter, len(fmt.Sprint(a.Span.EndLoc().Line)))
	}

	for i, a := range d.Annotations {
		if a.Span.IsZero() {
			continue
		}
		arrow := "--> "
		if i > 0 {
			arrow = "::: "
		}
		start := a.Span.StartLoc()
		fmt.Fprintf(&out, "\n%s%*s%s%s:%d:%d", colors.nBlue, gutter, "", arrow, a.Span.Path(), start.Line, start.Column)
		renderWindow(&out, &colors, gutter, a, d.Level)
	}

	// A remedial file mention for span-less diagnostics.
	if len(d.Annotations) == 0 {
		path := d.InFile
		if path == "" {
			path = "<unknown>"
		}
		fmt.Fprintf(&out, "\n%s%*s--> %s", colors.nBlue, gutter, "", path)
	}

	for _, n := range d.Notes {
		fmt.Fprintf(&out, "\n%s%*s = %snote: %s%s", colors.nBlue, gutter, "", colors.bCyan, colors.reset, n)
	}
	for _, h := range d.Help {
		fmt.Fprintf(&out, "\n%s%*s = %shelp: %s%s", colors.nBlue, gutter, "", colors.bCyan, colors.reset, h)
	}

	out.WriteString(colors.reset)
	return out.String()
}

// renderWindow renders the source line an annotation covers, with an
// underline beneath the annotated range.
//
// Registration spans never cross lines, so the window is always a single
// line; a span that does cross lines is clipped to its first line.
func renderWindow(out *strings.Builder, colors *palette, gutter int, a Annotation, level Level) {
	line, lineStart, start := cutLine(a.Span.File, a.Span.Start)
	lineno := a.Span.StartLoc().Line

	// Clip the underlined range to this line. Spans that outrun the file
	// text, as happens when a source could not be read back, collapse to a
	// bare caret at the clamped start.
	end := min(max(a.Span.End, start), lineStart+len(line))
	lead := expandWidth(line[:start-lineStart])
	width := max(1, expandWidth(line[start-lineStart:end-lineStart]))

	mark, color := "^", colors.boldFor(level)
	if !a.Primary {
		mark, color = "-", colors.nBlue
	}

	fmt.Fprintf(out, "\n%s%*s |", colors.nBlue, gutter, "")
	fmt.Fprintf(out, "\n%s%*d | %s%s", colors.nBlue, gutter, lineno, colors.reset, expandTabs(line))
	fmt.Fprintf(out, "\n%s%*s | %s%s%s",
		colors.nBlue, gutter, "",
		strings.Repeat(" ", lead),
		color+strings.Repeat(mark, width),
		colors.reset,
	)
	if a.Message != "" {
		fmt.Fprintf(out, " %s%s%s", color, a.Message, colors.reset)
	}
}

// expandTabs rewrites tabs as spaces per TabstopWidth so that underline
// columns line up with the printed source line.
func expandTabs(text string) string {
	if !strings.ContainsRune(text, '\t') {
		return text
	}
	var out strings.Builder
	column := 0
	for _, r := range text {
		if r == '\t' {
			pad := TabstopWidth - column%TabstopWidth
			out.WriteString(strings.Repeat(" ", pad))
			column += pad
			continue
		}
		out.WriteRune(r)
		column += uniseg.StringWidth(string(r))
	}
	return out.String()
}

// expandWidth measures the on-terminal width of text after tab expansion.
func expandWidth(text string) int {
	column := 0
	for len(text) > 0 {
		tab := strings.IndexByte(text, '\t')
		if tab == -1 {
			return column + uniseg.StringWidth(text)
		}
		column += uniseg.StringWidth(text[:tab])
		column += TabstopWidth - column%TabstopWidth
		text = text[tab+1:]
	}
	return column
}

// palette is the set of ANSI escapes used for colored rendering; the zero
// value renders nothing, which is what Monochrome uses.
type palette struct {
	reset string

	nBlue                string
	bRed, bYellow, bCyan string
}

func ansi() palette {
	return palette{
		reset:   "\033[0m",
		nBlue:   "\033[0;34m",
		bRed:    "\033[1;31m",
		bYellow: "\033[1;33m",
		bCyan:   "\033[1;36m",
	}
}

func (p *palette) boldFor(l Level) string {
	switch l {
	case Error:
		return p.bRed
	case Warning:
		return p.bYellow
	default:
		return p.nBlue
	}
}
