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

// Package driver defines the runtime contract that generated driver
// dispatchers compile against: the interfaces a driver implementation must
// satisfy for its dispatch domain, and the registries that init-time
// registration feeds.
//
// This package is deliberately a contract surface, not a media layer. The
// real work of a driver lives in its own package; drivermux only needs
// enough shape here to type the generated factories and to verify, at
// generation time, that an annotated type belongs in its declared domain.
package driver

import "context"

// Render is a rendering backend implementation, selected at runtime by the
// native driver name it declares.
type Render interface {
	// DriverName reports the native driver name this implementation binds
	// to, such as "opengl" or "vulkan".
	DriverName() string

	// Init readies the driver for use. A driver that cannot run in the
	// current environment reports that here rather than at construction.
	Init(ctx context.Context) error

	// Close releases everything Init acquired.
	Close() error

	// MaxTextureSize reports the largest texture edge the driver supports,
	// in pixels. Only meaningful after Init.
	MaxTextureSize() int
}

// Video is a windowing system backend implementation, selected at runtime
// by the native driver name it declares.
type Video interface {
	// DriverName reports the native driver name this implementation binds
	// to, such as "x11" or "wayland".
	DriverName() string

	// Init readies the driver for use.
	Init(ctx context.Context) error

	// Close releases everything Init acquired.
	Close() error

	// Displays reports how many displays the windowing system currently
	// exposes. Only meaningful after Init.
	Displays() int
}
