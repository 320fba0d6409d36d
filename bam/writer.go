// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Stream header, followed by one framed record per object.
const (
	magic        = "pbam3d\n"
	majorVersion = 1
	minorVersion = 0
)

// Writer serializes an object graph to a bam stream. Objects are interned
// by pointer identity in a shared table: any object written more than once,
// from any root, is emitted exactly once and referenced by its table ID
// afterwards, preserving the aliasing that existed in memory.
type Writer struct {
	w       io.Writer
	ids     map[Writable]uint32
	next    uint32
	queue   []Writable
	started bool
}

// NewWriter returns a Writer emitting to the given stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, ids: map[Writable]uint32{}, next: 1}
}

// WritePointer appends a deferred reference to the given object to the
// datagram. A nil object writes the null ID. An object not yet in the
// table is assigned an ID and queued to be written after the current
// object.
func (w *Writer) WritePointer(dg *Datagram, obj Writable) {
	dg.AddUint32(w.objectID(obj))
}

func (w *Writer) objectID(obj Writable) uint32 {
	if obj == nil {
		return 0
	}
	if id, ok := w.ids[obj]; ok {
		return id
	}
	id := w.next
	w.next++
	w.ids[obj] = id
	w.queue = append(w.queue, obj)
	return id
}

// WriteObject writes the given root object and, transitively, every object
// it references that has not been written yet. It may be called more than
// once on the same Writer; later roots share the table built by earlier
// ones.
func (w *Writer) WriteObject(root Writable) error {
	if !w.started {
		if err := w.writeHeader(); err != nil {
			return err
		}
		w.started = true
	}
	w.objectID(root)
	for len(w.queue) > 0 {
		obj := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.writeRecord(obj); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeHeader() error {
	var hdr Datagram
	hdr.data = append(hdr.data, magic...)
	hdr.AddUint16(majorVersion)
	hdr.AddUint16(minorVersion)
	if _, err := w.w.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("bam: writing header: %w", err)
	}
	return nil
}

// writeRecord frames one object: type name, 32-bit payload length, payload.
func (w *Writer) writeRecord(obj Writable) error {
	var dg Datagram
	dg.AddString(obj.TypeName())
	var payload Datagram
	obj.WriteDatagram(w, &payload)
	dg.data = binary.LittleEndian.AppendUint32(dg.data, uint32(payload.Len()))
	dg.data = append(dg.data, payload.Bytes()...)
	if _, err := w.w.Write(dg.Bytes()); err != nil {
		return fmt.Errorf("bam: writing %s record: %w", obj.TypeName(), err)
	}
	return nil
}
