// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline provides the copy-on-write ownership wrapper and the
// per-stage data cycler that let scene-graph nodes share state safely
// between concurrently running application and render threads. Each
// pipeline stage observes a frozen snapshot of the data; writes are
// isolated to one stage by duplicating shared objects lazily.
package pipeline

import (
	"sync"
	"sync/atomic"
)

// COWObject is implemented by reference-counted objects that can be held
// in a [COWPointer]. MakeCOWCopy must return a fresh object whose contents
// alias only immutable sub-objects of the original, so the copy can be
// mutated freely without affecting other holders. Implementations embed
// [COWBase] to get the reference count.
type COWObject[T any] interface {
	AsCOWBase() *COWBase
	MakeCOWCopy() T
}

// COWBase provides the reference count for [COWObject] implementations,
// which must embed it. A zero COWBase has no references; each [COWPointer]
// holding the object accounts for exactly one.
type COWBase struct {
	refs atomic.Int32
}

// AsCOWBase returns the COWBase, implementing part of [COWObject].
func (cb *COWBase) AsCOWBase() *COWBase { return cb }

// Ref adds one reference.
func (cb *COWBase) Ref() { cb.refs.Add(1) }

// Unref removes one reference, reporting whether it was the last one.
func (cb *COWBase) Unref() bool { return cb.refs.Add(-1) <= 0 }

// Refs returns the current number of references.
func (cb *COWBase) Refs() int32 { return cb.refs.Load() }

// Pin adds permanent references so the object always appears shared,
// which forces every [COWPointer.WritePointer] on it to duplicate instead
// of mutating in place. Used for process-wide immutable singletons.
func (cb *COWBase) Pin() { cb.refs.Add(2) }

// COWPointer holds one counted reference to a [COWObject] and enforces the
// duplicate-before-write discipline: ReadPointer returns the shared object
// directly, while WritePointer duplicates it first whenever any other
// holder still references it. The invariant at this level is that an
// object reachable from more than one COWPointer is never mutated in
// place.
type COWPointer[T COWObject[T]] struct {
	mu  sync.Mutex
	obj T
}

// NewCOWPointer returns a COWPointer holding the given object, adding one
// reference to it. The object must be non-nil.
func NewCOWPointer[T COWObject[T]](obj T) *COWPointer[T] {
	obj.AsCOWBase().Ref()
	return &COWPointer[T]{obj: obj}
}

// ReadPointer returns the held object for read-only access. The object is
// valid for as long as the caller holds it, but callers must not mutate it:
// other pointers may be sharing it.
func (cp *COWPointer[T]) ReadPointer() T {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.obj
}

// WritePointer returns the held object for mutation. If the object is
// shared with any other holder, it is duplicated first via MakeCOWCopy and
// the duplicate becomes the held object, so the mutation stays isolated to
// this pointer.
func (cp *COWPointer[T]) WritePointer() T {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.obj.AsCOWBase().Refs() > 1 {
		dup := cp.obj.MakeCOWCopy()
		dup.AsCOWBase().Ref()
		cp.obj.AsCOWBase().Unref()
		cp.obj = dup
	}
	return cp.obj
}

// Set replaces the held object, adding a reference to the new object and
// releasing the old one.
func (cp *COWPointer[T]) Set(obj T) {
	obj.AsCOWBase().Ref()
	cp.mu.Lock()
	old := cp.obj
	cp.obj = obj
	cp.mu.Unlock()
	old.AsCOWBase().Unref()
}

// Copy returns a new COWPointer sharing the same object, with its own
// counted reference. A write through either pointer afterwards duplicates
// the object first.
func (cp *COWPointer[T]) Copy() *COWPointer[T] {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.obj.AsCOWBase().Ref()
	return &COWPointer[T]{obj: cp.obj}
}

// Release drops the held reference. The pointer must not be used after.
func (cp *COWPointer[T]) Release() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.obj.AsCOWBase().Unref()
}
