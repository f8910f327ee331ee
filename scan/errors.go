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

	"github.com/mezzoav/drivermux/report"
)

// BadDirective is reported for a drivermux directive that is malformed or
// in the wrong place: unparseable arguments, a missing or unknown domain
// verb, the wrong argument count, or attachment to something other than a
// single type declaration.
type BadDirective struct {
	Reason string
	At     report.Span
}

func (e *BadDirective) Error() string {
	return e.Reason
}

func (e *BadDirective) Diagnose(d *report.Diagnostic) {
	d.With(
		report.Snippetf(e.At, "in this directive"),
		report.Helpf("directives take the form //drivermux:DOMAIN NAME on a type declaration"),
	)
}

// MissingCollaborator is reported when a domain's interface cannot be
// resolved in the loaded packages. It is reported at every registration
// site in the domain, and no dispatcher is generated for the domain.
type MissingCollaborator struct {
	Domain    string
	Interface string
	At        report.Span
}

func (e *MissingCollaborator) Error() string {
	return fmt.Sprintf("cannot resolve interface %s for dispatch domain %q", e.Interface, e.Domain)
}

func (e *MissingCollaborator) Diagnose(d *report.Diagnostic) {
	d.With(
		report.Snippetf(e.At, "needed by this registration"),
		report.Notef("no dispatcher will be generated for domain %q", e.Domain),
	)
}

// DoesNotImplement is reported when an annotated type does not satisfy its
// domain's interface. The registration is dropped.
type DoesNotImplement struct {
	Target    TargetRef
	Interface string
	At        report.Span
}

func (e *DoesNotImplement) Error() string {
	return fmt.Sprintf("%s does not implement %s", e.Target, e.Interface)
}

func (e *DoesNotImplement) Diagnose(d *report.Diagnostic) {
	d.With(
		report.Snippetf(e.At, "registered here"),
		report.Helpf("declare the missing methods on *%s or drop the directive", e.Target.Name),
	)
}
