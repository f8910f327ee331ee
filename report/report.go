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

import "fmt"

const (
	Error Level = 1 + iota
	Warning
	note // Used internally for secondary annotations.
)

// Level represents the severity of a diagnostic message.
type Level int8

// String implements [fmt.Stringer].
func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case note:
		return "note"
	default:
		return fmt.Sprintf("Level(%d)", int8(l))
	}
}

// Diagnose is an error that can describe itself as a rich diagnostic.
//
// The drivermux error taxonomy (duplicate registrations, prefix conflicts,
// and so on) is made of types implementing Diagnose: the error value holds
// the structured facts, and Diagnose turns them into annotations on the
// diagnostic being built.
type Diagnose interface {
	error

	// Diagnose decorates d with annotations, notes, and help text. It must
	// not set d.Err or d.Level; the report does that.
	Diagnose(d *Diagnostic)
}

// Diagnostic is a single reported condition, suitable for rendering to a
// user.
//
// Not every Diagnostic is an error; the Level decides how it is presented
// and whether it fails the build.
type Diagnostic struct {
	// The error that prompted this diagnostic. Its Error() text is the
	// diagnostic message.
	Err error

	// The severity of this diagnostic.
	Level Level

	// The file this diagnostic belongs to when it has no annotations, for
	// conditions like "manifest not valid YAML" that cannot point at a span.
	InFile string

	// Annotated source spans; the first one is primary.
	Annotations []Annotation

	// Trailing prose, rendered after the annotations.
	Notes, Help []string
}

// Annotation is an annotated span within a [Diagnostic].
type Annotation struct {
	Span    Span
	Message string
	// Primary marks the annotation the diagnostic is "about"; the rest are
	// supporting context (for example, the site of an earlier conflicting
	// registration).
	Primary bool
}

// Primary returns this diagnostic's primary annotation. If it has none, the
// result is a zero-span annotation labeled with InFile.
func (d *Diagnostic) Primary() Annotation {
	for _, a := range d.Annotations {
		if a.Primary {
			return a
		}
	}
	return Annotation{Message: d.InFile, Primary: true}
}

// With applies options to this diagnostic and returns it, for chaining off
// of [Report.Errorf] and friends.
func (d *Diagnostic) With(options ...DiagnosticOption) *Diagnostic {
	for _, option := range options {
		option(d)
	}
	return d
}

// DiagnosticOption is an option that can be applied to a [Diagnostic].
type DiagnosticOption func(*Diagnostic)

// InFile returns an option naming the file a span-less diagnostic belongs to.
func InFile(path string) DiagnosticOption {
	return func(d *Diagnostic) { d.InFile = path }
}

// Snippetf returns an option that adds an annotated span to a diagnostic.
//
// The first annotation added becomes the primary one.
func Snippetf(span Span, format string, args ...any) DiagnosticOption {
	a := Annotation{Span: span, Message: fmt.Sprintf(format, args...)}
	return func(d *Diagnostic) {
		a.Primary = len(d.Annotations) == 0
		d.Annotations = append(d.Annotations, a)
	}
}

// Notef returns an option that appends context prose to a diagnostic.
func Notef(format string, args ...any) DiagnosticOption {
	return func(d *Diagnostic) {
		d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
	}
}

// Helpf returns an option that appends a suggested fix to a diagnostic.
func Helpf(format string, args ...any) DiagnosticOption {
	return func(d *Diagnostic) {
		d.Help = append(d.Help, fmt.Sprintf(format, args...))
	}
}

// Report is a collection of diagnostics.
//
// The zero value is empty and ready to use. A Report is not synchronized;
// concurrent producers must each fill their own and merge with [Report.Join].
type Report []Diagnostic

// Error pushes an error diagnostic onto this report.
func (r *Report) Error(err Diagnose) {
	err.Diagnose(r.push(err, Error))
}

// Warn pushes a warning diagnostic onto this report.
func (r *Report) Warn(err Diagnose) {
	err.Diagnose(r.push(err, Warning))
}

// Errorf pushes an error diagnostic with a one-off message; analogous to
// [fmt.Errorf]. Decorate the result via [Diagnostic.With].
func (r *Report) Errorf(format string, args ...any) *Diagnostic {
	return r.push(fmt.Errorf(format, args...), Error)
}

// Warnf pushes a warning diagnostic with a one-off message.
func (r *Report) Warnf(format string, args ...any) *Diagnostic {
	return r.push(fmt.Errorf(format, args...), Warning)
}

// Join appends every diagnostic in other to this report.
func (r *Report) Join(other Report) {
	*r = append(*r, other...)
}

// Counts returns the number of error and warning diagnostics in the report.
func (r *Report) Counts() (errors, warnings int) {
	for i := range *r {
		switch (*r)[i].Level {
		case Error:
			errors++
		case Warning:
			warnings++
		}
	}
	return errors, warnings
}

// Ok reports whether the report contains no errors.
func (r *Report) Ok() bool {
	errors, _ := r.Counts()
	return errors == 0
}

func (r *Report) push(err error, level Level) *Diagnostic {
	*r = append(*r, Diagnostic{Err: err, Level: level})
	return &(*r)[len(*r)-1]
}
