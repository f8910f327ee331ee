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

// Package report provides a vehicle for collecting and rendering the
// diagnostics drivermux produces while scanning registrations and building
// dispatch tries.
//
// Diagnostics are ordinary values, not panics and not returned errors: a
// component that discovers a problem pushes a [Diagnostic] onto a shared
// [Report] and keeps going, so that one bad registration cannot hide the
// others. Whether accumulated errors fail the build is the caller's
// decision, made once at the end of a run.
//
// A [Diagnostic] can carry annotated source [Span]s pointing into the files
// the offending registrations came from, along with notes and help text.
// [Report.Render] turns the collection into human-readable text in one of
// three styles, from a terse one-line-per-diagnostic form up to colored
// snippet windows.
package report
