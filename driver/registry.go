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

package driver

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	// ErrDuplicate is returned when a name is registered twice. Unlike the
	// generator's first-wins recovery, runtime registration is strict: a
	// collision here means two packages were linked into one binary
	// claiming the same driver name, and neither wins.
	ErrDuplicate = errors.New("driver name already registered")

	// ErrUnknown is returned when constructing a driver nothing registered.
	ErrUnknown = errors.New("unknown driver name")
)

// Registry is a name-keyed set of driver factories. The zero value is empty
// and ready to use; all methods are safe for concurrent use.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]func() T
}

// Register binds name to factory, failing with [ErrDuplicate] if the name
// is already taken.
func (r *Registry[T]) Register(name string, factory func() T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	if r.factories == nil {
		r.factories = make(map[string]func() T)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is [Registry.Register] panicking on error. Generated
// registration blocks call it from init, where a duplicate means two
// conflicting driver packages were linked into the same binary.
func (r *Registry[T]) MustRegister(name string, factory func() T) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory bound to name, if any.
func (r *Registry[T]) Lookup(name string) (func() T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	return factory, ok
}

// New constructs the driver bound to name, failing with [ErrUnknown] if
// nothing is registered under it.
func (r *Registry[T]) New(name string) (T, error) {
	factory, ok := r.Lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return factory(), nil
}

// Names returns every registered name in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// Len returns the number of registered names.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.factories)
}

var (
	defaultRenderers Registry[Render]
	defaultVideos    Registry[Video]
)

// Renderers returns the process-wide registry of rendering drivers.
// Generated init functions register into it.
func Renderers() *Registry[Render] {
	return &defaultRenderers
}

// Videos returns the process-wide registry of video drivers.
func Videos() *Registry[Video] {
	return &defaultVideos
}
