// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bam implements the binary scene-graph persistence format: an
// append-only little-endian datagram buffer, a writer that interns object
// pointers in a shared table so aliased objects serialize once, and a
// two-phase reader that reconstructs objects through a factory registry
// and resolves deferred pointers once the full object table is available.
package bam

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Datagram is an append-only buffer of little-endian binary data, the unit
// in which one object's payload is assembled before being framed into the
// output stream.
type Datagram struct {
	data []byte
}

// Bytes returns the accumulated data.
func (dg *Datagram) Bytes() []byte { return dg.data }

// Len returns the number of accumulated bytes.
func (dg *Datagram) Len() int { return len(dg.data) }

// Clear empties the datagram, keeping its capacity.
func (dg *Datagram) Clear() { dg.data = dg.data[:0] }

// AddUint8 appends an unsigned 8-bit integer.
func (dg *Datagram) AddUint8(v uint8) { dg.data = append(dg.data, v) }

// AddUint16 appends an unsigned 16-bit integer.
func (dg *Datagram) AddUint16(v uint16) {
	dg.data = binary.LittleEndian.AppendUint16(dg.data, v)
}

// AddUint32 appends an unsigned 32-bit integer.
func (dg *Datagram) AddUint32(v uint32) {
	dg.data = binary.LittleEndian.AppendUint32(dg.data, v)
}

// AddUint64 appends an unsigned 64-bit integer.
func (dg *Datagram) AddUint64(v uint64) {
	dg.data = binary.LittleEndian.AppendUint64(dg.data, v)
}

// AddFloat32 appends a 32-bit float.
func (dg *Datagram) AddFloat32(v float32) {
	dg.AddUint32(math.Float32bits(v))
}

// AddBool appends a bool as one byte.
func (dg *Datagram) AddBool(v bool) {
	if v {
		dg.AddUint8(1)
	} else {
		dg.AddUint8(0)
	}
}

// AddString appends a string as a 16-bit length followed by its bytes.
// Strings longer than 65535 bytes are truncated.
func (dg *Datagram) AddString(s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	dg.AddUint16(uint16(len(s)))
	dg.data = append(dg.data, s...)
}

// DatagramIterator reads back the contents of a [Datagram] in order. All
// reads are bounds-checked: reading past the end returns an error rather
// than corrupting the decode.
type DatagramIterator struct {
	data []byte
	pos  int
}

// NewIterator returns a DatagramIterator over the given payload bytes.
func NewIterator(data []byte) *DatagramIterator {
	return &DatagramIterator{data: data}
}

// Remaining returns the number of unread bytes.
func (di *DatagramIterator) Remaining() int { return len(di.data) - di.pos }

func (di *DatagramIterator) take(n int) ([]byte, error) {
	if di.Remaining() < n {
		return nil, fmt.Errorf("bam: datagram truncated: need %d bytes at offset %d, have %d", n, di.pos, di.Remaining())
	}
	b := di.data[di.pos : di.pos+n]
	di.pos += n
	return b, nil
}

// Uint8 reads an unsigned 8-bit integer.
func (di *DatagramIterator) Uint8() (uint8, error) {
	b, err := di.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads an unsigned 16-bit integer.
func (di *DatagramIterator) Uint16() (uint16, error) {
	b, err := di.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads an unsigned 32-bit integer.
func (di *DatagramIterator) Uint32() (uint32, error) {
	b, err := di.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads an unsigned 64-bit integer.
func (di *DatagramIterator) Uint64() (uint64, error) {
	b, err := di.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Float32 reads a 32-bit float.
func (di *DatagramIterator) Float32() (float32, error) {
	v, err := di.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Bool reads a bool stored as one byte.
func (di *DatagramIterator) Bool() (bool, error) {
	v, err := di.Uint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// String reads a string stored as a 16-bit length followed by its bytes.
func (di *DatagramIterator) String() (string, error) {
	n, err := di.Uint16()
	if err != nil {
		return "", err
	}
	b, err := di.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
