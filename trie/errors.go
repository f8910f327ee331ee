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

package trie

import (
	"fmt"

	"github.com/mezzoav/drivermux/report"
)

// InvalidName is reported when a registration's name cannot be dispatched
// on at all.
type InvalidName struct {
	Name string
	// Reason is a clause describing what is wrong with Name; empty means
	// the name itself was empty.
	Reason string
	At     report.Span
}

// CheckName reports why name cannot be used as a driver name, or nil if it
// can. Names must be non-empty printable ASCII. This is stricter than the
// trie itself needs (any NUL-free bytes would do), but it is what the
// native layer actually reports, and it keeps generated case labels
// readable.
func CheckName(name string, at report.Span) *InvalidName {
	if name == "" {
		return &InvalidName{At: at}
	}
	for i := range len(name) {
		switch b := name[i]; {
		case b == 0:
			return &InvalidName{Name: name, Reason: "contains a NUL byte", At: at}
		case b <= ' ' || b >= 0x7f:
			return &InvalidName{
				Name:   name,
				Reason: fmt.Sprintf("must be printable ASCII, found byte %#02x", b),
				At:     at,
			}
		}
	}
	return nil
}

func (e *InvalidName) Error() string {
	if e.Name == "" && e.Reason == "" {
		return "driver name must not be empty"
	}
	return fmt.Sprintf("invalid driver name %q: %s", e.Name, e.Reason)
}

func (e *InvalidName) Diagnose(d *report.Diagnostic) {
	d.With(report.Snippetf(e.At, "registered here"))
}

// DuplicateRegistration is reported when one name is bound to two different
// targets. The earlier binding stays live.
type DuplicateRegistration[T comparable] struct {
	Name string

	Existing   T
	ExistingAt report.Span

	Rejected   T
	RejectedAt report.Span
}

func (e *DuplicateRegistration[T]) Error() string {
	return fmt.Sprintf("driver name %q is bound to both %v and %v", e.Name, e.Existing, e.Rejected)
}

func (e *DuplicateRegistration[T]) Diagnose(d *report.Diagnostic) {
	d.With(
		report.Snippetf(e.RejectedAt, "rejected binding to %v", e.Rejected),
		report.Snippetf(e.ExistingAt, "first bound to %v here", e.Existing),
		report.Notef("the first binding stays live; remove or rename one of the two"),
	)
}

// PrefixConflict is reported when a registration's name is in a strict
// prefix relation with a live binding's name, in either direction. The
// offending registration is dropped.
type PrefixConflict struct {
	// Name is the registration that was dropped; Prior is the live binding
	// it collides with.
	Name string
	At   report.Span

	Prior   string
	PriorAt report.Span
}

func (e *PrefixConflict) Error() string {
	shorter, longer := e.Name, e.Prior
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return fmt.Sprintf("driver name %q is a prefix of %q", shorter, longer)
}

func (e *PrefixConflict) Diagnose(d *report.Diagnostic) {
	d.With(
		report.Snippetf(e.At, "%q cannot be registered", e.Name),
		report.Snippetf(e.PriorAt, "%q registered here", e.Prior),
		report.Notef("dispatch reads bytes up to a NUL terminator, which cannot tell a name apart from one it is a prefix of"),
	)
}
