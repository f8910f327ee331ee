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

// Package trie implements the byte trie that driver-name dispatchers are
// generated from.
//
// Names are keyed by their UTF-8 bytes, one trie level per byte position. A
// complete name is marked by a leaf stored under the sentinel byte 0 of the
// node its last byte leads to; since driver names never contain NUL, the
// sentinel slot cannot collide with a real continuation byte. This mirrors
// how the emitted dispatcher consumes its input: read bytes until 0, then
// the match is whatever the sentinel slot holds.
//
// Conflicting registrations are reported to the trie's [report.Report] and
// recovered from: a bad entry is dropped without disturbing any binding that
// is already live. When one name is bound twice with different targets, the
// first binding stays live and the second is rejected. The first-wins rule
// is deliberate; it keeps the live dispatch table independent of how late a
// conflicting registration shows up, and the accompanying error means the
// build fails either way.
package trie

import (
	"fmt"
	"iter"
	"strings"

	"github.com/tidwall/btree"

	"github.com/mezzoav/drivermux/report"
)

// Trie maps driver names to dispatch targets of type T.
//
// The trie's shape, and therefore everything generated from it, depends only
// on the set of live bindings, never on their insertion order. Which
// diagnostic fires first when entries conflict does depend on order.
type Trie[T comparable] struct {
	root node[T]
	r    *report.Report
	len  int
}

// node is one position in the trie. Children are keyed by the next byte of
// the name; the child under the sentinel byte 0 is a leaf, and only leaves
// have target and span set. A node never holds both a leaf and real-byte
// children, since Insert rejects the registration that would create the
// second of the two.
type node[T comparable] struct {
	children btree.Map[byte, *node[T]]

	target T
	span   report.Span
}

// New returns an empty trie that reports conflicts to r, which must be
// non-nil.
func New[T comparable](r *report.Report) *Trie[T] {
	return &Trie[T]{r: r}
}

// Insert binds name to target, recording at as the registration site for
// diagnostics.
//
// Conflicts are diagnosed on the trie's report rather than returned: an
// invalid name, a name already bound to a different target, or a name in a
// prefix relation with an existing name all drop this entry and leave every
// live binding untouched. Re-inserting an identical (name, target) pair is
// a no-op.
func (t *Trie[T]) Insert(name string, target T, at report.Span) {
	if name == "" {
		t.r.Error(&InvalidName{At: at})
		return
	}
	if strings.IndexByte(name, 0) >= 0 {
		t.r.Error(&InvalidName{Name: name, Reason: "contains a NUL byte", At: at})
		return
	}

	n := &t.root
	for i := range len(name) {
		// A leaf here means name[:i] is registered and a strict prefix
		// of name.
		if prior, ok := n.children.Get(0); ok {
			t.r.Error(&PrefixConflict{
				Name: name, At: at,
				Prior: name[:i], PriorAt: prior.span,
			})
			return
		}

		child, ok := n.children.Get(name[i])
		if !ok {
			// Once the walk leaves the existing structure nothing below
			// can conflict, so building eagerly is safe.
			child = new(node[T])
			n.children.Set(name[i], child)
		}
		n = child
	}

	if prior, ok := n.children.Get(0); ok {
		if prior.target == target {
			return
		}
		t.r.Error(&DuplicateRegistration[T]{
			Name:     name,
			Existing: prior.target, ExistingAt: prior.span,
			Rejected: target, RejectedAt: at,
		})
		return
	}

	// Real children mean at least one registered name continues through
	// this position, so name is a strict prefix of it.
	if n.children.Len() > 0 {
		prior, leaf := firstBinding(n, name)
		t.r.Error(&PrefixConflict{
			Name: name, At: at,
			Prior: prior, PriorAt: leaf.span,
		})
		return
	}

	n.children.Set(0, &node[T]{target: target, span: at})
	t.len++
}

// IsEmpty reports whether the trie holds no bindings.
func (t *Trie[T]) IsEmpty() bool {
	return t.root.children.Len() == 0
}

// Len returns the number of live bindings.
func (t *Trie[T]) Len() int {
	return t.len
}

// Lookup resolves name the way a generated dispatcher would: bytes are
// consumed until a NUL or the end of the string, and the result is the
// binding whose name matches exactly. A name that diverges from every
// binding, or runs out before a binding's terminator, resolves to nothing.
func (t *Trie[T]) Lookup(name string) (T, bool) {
	n := &t.root
	for i := range len(name) {
		if name[i] == 0 {
			break
		}
		child, ok := n.children.Get(name[i])
		if !ok {
			var zero T
			return zero, false
		}
		n = child
	}

	leaf, ok := n.children.Get(0)
	if !ok {
		var zero T
		return zero, false
	}
	return leaf.target, true
}

// Walk yields every live (name, target) binding in ascending byte order of
// the names. Because the sentinel byte sorts before every real byte, this
// is also the order a generated dispatcher lists its cases in.
func (t *Trie[T]) Walk() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		walk(&t.root, nil, yield)
	}
}

func walk[T comparable](n *node[T], prefix []byte, yield func(string, T) bool) bool {
	ok := true
	n.children.Scan(func(b byte, child *node[T]) bool {
		if b == 0 {
			ok = yield(string(prefix), child.target)
		} else {
			ok = walk(child, append(prefix, b), yield)
		}
		return ok
	})
	return ok
}

// Root returns a view of the trie's root for structural traversal.
func (t *Trie[T]) Root() Node[T] {
	return Node[T]{&t.root}
}

// Node is a read-only view of one trie position, for renderers that need
// the trie's shape rather than its bindings.
type Node[T comparable] struct {
	n *node[T]
}

// Binding returns the target bound exactly at this position, if any.
func (n Node[T]) Binding() (T, bool) {
	if n.n == nil {
		var zero T
		return zero, false
	}
	leaf, ok := n.n.children.Get(0)
	if !ok {
		var zero T
		return zero, false
	}
	return leaf.target, true
}

// Children yields this position's continuation bytes and their subtrees in
// ascending byte order. The sentinel is not included; see [Node.Binding].
func (n Node[T]) Children() iter.Seq2[byte, Node[T]] {
	return func(yield func(byte, Node[T]) bool) {
		if n.n == nil {
			return
		}
		n.n.children.Scan(func(b byte, child *node[T]) bool {
			if b == 0 {
				return true
			}
			return yield(b, Node[T]{child})
		})
	}
}

// Dump renders the trie's shape as indented text, one byte per line with
// bindings marked by "=". Intended for tests and debugging.
func (t *Trie[T]) Dump() string {
	var out strings.Builder
	dump(&out, &t.root, 0)
	return out.String()
}

func dump[T comparable](out *strings.Builder, n *node[T], depth int) {
	n.children.Scan(func(b byte, child *node[T]) bool {
		fmt.Fprintf(out, "%*s", depth*2, "")
		if b == 0 {
			fmt.Fprintf(out, "= %v\n", child.target)
		} else {
			fmt.Fprintf(out, "%q\n", b)
			dump(out, child, depth+1)
		}
		return true
	})
}

// firstBinding descends from n along the smallest byte at each level until
// it reaches a leaf, returning the full name it spells and the leaf itself.
// Used to pick a stable representative when diagnosing a conflict against
// "whatever longer name passes through here."
func firstBinding[T comparable](n *node[T], prefix string) (string, *node[T]) {
	name := []byte(prefix)
	for {
		it := n.children.Iter()
		if !it.First() {
			panic("trie: interior node with no children")
		}
		if it.Key() == 0 {
			return string(name), it.Value()
		}
		name = append(name, it.Key())
		n = it.Value()
	}
}
