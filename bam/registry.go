// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"fmt"
	"sync"
)

// Writable is implemented by every object kind that can be stored in a
// bam stream. Objects cross-reference each other through [Writer.WritePointer]
// and [Reader.ReadPointer]; the resolved pointers are handed back in
// request order by CompletePointers once the whole object table is loaded.
type Writable interface {

	// TypeName returns the name the type is registered under, which keys
	// the factory used to instantiate it on read.
	TypeName() string

	// WriteDatagram appends the object's payload to the datagram,
	// emitting cross-references via [Writer.WritePointer].
	WriteDatagram(w *Writer, dg *Datagram)

	// FillIn reads the object's payload, requesting each cross-reference
	// via [Reader.ReadPointer] in the same order it was written.
	FillIn(scan *DatagramIterator, r *Reader) error

	// CompletePointers receives the resolved objects, one per ReadPointer
	// call made in FillIn, in request order (nil for null pointers). It
	// returns the number of pointers consumed. A pointer of an unexpected
	// kind is a format error that fails the whole load.
	CompletePointers(ptrs []Writable, r *Reader) (int, error)
}

var (
	factoryMu sync.RWMutex
	factories = map[string]func() Writable{}
)

// Register records a factory constructor for the given type name, so
// [Reader] can instantiate the concrete type before filling it in.
// Registering the same name twice panics.
func Register(typeName string, maker func() Writable) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, dup := factories[typeName]; dup {
		panic("bam: Register called twice for type " + typeName)
	}
	factories[typeName] = maker
}

func makeFromFactory(typeName string) (Writable, error) {
	factoryMu.RLock()
	maker, ok := factories[typeName]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("bam: %w: %q", ErrUnknownType, typeName)
	}
	return maker(), nil
}
