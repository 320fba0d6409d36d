// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrBadMagic indicates the stream does not start with the bam header.
	ErrBadMagic = errors.New("bad magic")

	// ErrUnknownType indicates a record names a type with no registered
	// factory.
	ErrUnknownType = errors.New("unknown object type")

	// ErrBadPointer indicates a deferred pointer references an object ID
	// that is not in the table, or an object of an unexpected kind.
	ErrBadPointer = errors.New("bad object pointer")

	// ErrEmpty indicates the stream contains no objects.
	ErrEmpty = errors.New("no objects in stream")
)

// Reader deserializes a bam stream written by [Writer]. Loading is
// two-phase: every record is first instantiated through the factory
// registry and filled in from its payload, collecting deferred pointer
// requests; once the whole object table is loaded, a completion pass
// hands each object its resolved pointers in request order. Any failure
// fails the load as a whole; no partially-resolved object is returned.
type Reader struct {
	r       *bufio.Reader
	objects []Writable
	pending [][]uint32
	current int // index of the object being filled in
}

// NewReader returns a Reader consuming the given stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), current: -1}
}

// ReadPointer records a deferred reference request for the object
// currently being filled in. The resolved object is handed back through
// CompletePointers after the whole table is loaded.
func (r *Reader) ReadPointer(scan *DatagramIterator) error {
	id, err := scan.Uint32()
	if err != nil {
		return err
	}
	r.pending[r.current] = append(r.pending[r.current], id)
	return nil
}

// Read loads the entire stream and returns the root (first) object, fully
// resolved.
func (r *Reader) Read() (Writable, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	for {
		done, err := r.readRecord()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	if len(r.objects) == 0 {
		return nil, fmt.Errorf("bam: %w", ErrEmpty)
	}
	if err := r.resolve(); err != nil {
		return nil, err
	}
	return r.objects[0], nil
}

// Objects returns every object loaded from the stream, in table order,
// with the root first. Valid after [Reader.Read] returns.
func (r *Reader) Objects() []Writable { return r.objects }

// ReadObject loads one object graph from the given stream and returns the
// root as the given type.
func ReadObject[T Writable](src io.Reader) (T, error) {
	obj, err := NewReader(src).Read()
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("bam: %w: root is %T", ErrBadPointer, obj)
	}
	return typed, nil
}

func (r *Reader) readHeader() error {
	hdr := make([]byte, len(magic)+4)
	if _, err := io.ReadFull(r.r, hdr); err != nil {
		return fmt.Errorf("bam: reading header: %w", err)
	}
	if string(hdr[:len(magic)]) != magic {
		return fmt.Errorf("bam: %w", ErrBadMagic)
	}
	major := binary.LittleEndian.Uint16(hdr[len(magic):])
	if major != majorVersion {
		return fmt.Errorf("bam: unsupported version %d", major)
	}
	return nil
}

// readRecord reads one framed object record, returning done when the
// stream ends cleanly at a record boundary.
func (r *Reader) readRecord() (done bool, err error) {
	nameLen := make([]byte, 2)
	if _, err := io.ReadFull(r.r, nameLen); err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, fmt.Errorf("bam: reading record: %w", err)
	}
	name := make([]byte, binary.LittleEndian.Uint16(nameLen))
	if _, err := io.ReadFull(r.r, name); err != nil {
		return false, fmt.Errorf("bam: reading record type: %w", err)
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		return false, fmt.Errorf("bam: reading record length: %w", err)
	}
	payload := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return false, fmt.Errorf("bam: reading record payload: %w", err)
	}

	obj, err := makeFromFactory(string(name))
	if err != nil {
		return false, err
	}
	r.objects = append(r.objects, obj)
	r.pending = append(r.pending, nil)
	r.current = len(r.objects) - 1
	if err := obj.FillIn(NewIterator(payload), r); err != nil {
		return false, fmt.Errorf("bam: filling in %s: %w", obj.TypeName(), err)
	}
	r.current = -1
	return false, nil
}

// resolve runs the completion pass over the loaded table.
func (r *Reader) resolve() error {
	for i, obj := range r.objects {
		ptrs := make([]Writable, len(r.pending[i]))
		for pi, id := range r.pending[i] {
			if id == 0 {
				continue
			}
			if int(id) > len(r.objects) {
				return fmt.Errorf("bam: %w: object %d references ID %d of %d", ErrBadPointer, i+1, id, len(r.objects))
			}
			ptrs[pi] = r.objects[id-1]
		}
		n, err := obj.CompletePointers(ptrs, r)
		if err != nil {
			return fmt.Errorf("bam: completing %s: %w", obj.TypeName(), err)
		}
		if n != len(ptrs) {
			return fmt.Errorf("bam: %s consumed %d of %d pointers", obj.TypeName(), n, len(ptrs))
		}
	}
	return nil
}
