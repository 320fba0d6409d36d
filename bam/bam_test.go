// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zurgeg/panda3d/bam"
)

// chainNode is a minimal object kind exercising the pointer protocol:
// a label plus an optional reference to another chainNode.
type chainNode struct {
	label string
	next  *chainNode
}

func init() {
	bam.Register("chainNode", func() bam.Writable { return &chainNode{} })
}

func (cn *chainNode) TypeName() string { return "chainNode" }

func (cn *chainNode) WriteDatagram(w *bam.Writer, dg *bam.Datagram) {
	dg.AddString(cn.label)
	if cn.next == nil {
		w.WritePointer(dg, nil)
	} else {
		w.WritePointer(dg, cn.next)
	}
}

func (cn *chainNode) FillIn(scan *bam.DatagramIterator, r *bam.Reader) error {
	var err error
	if cn.label, err = scan.String(); err != nil {
		return err
	}
	return r.ReadPointer(scan)
}

func (cn *chainNode) CompletePointers(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	if ptrs[0] != nil {
		cn.next = ptrs[0].(*chainNode)
	}
	return 1, nil
}

func TestDatagramRoundTrip(t *testing.T) {
	var dg bam.Datagram
	dg.AddUint8(7)
	dg.AddUint16(300)
	dg.AddUint32(70000)
	dg.AddUint64(1 << 40)
	dg.AddFloat32(1.5)
	dg.AddBool(true)
	dg.AddString("hello")

	di := bam.NewIterator(dg.Bytes())
	u8, err := di.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)
	u16, err := di.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(300), u16)
	u32, err := di.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(70000), u32)
	u64, err := di.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)
	f32, err := di.Float32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)
	b, err := di.Bool()
	require.NoError(t, err)
	assert.True(t, b)
	s, err := di.String()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, 0, di.Remaining())
}

func TestDatagramTruncated(t *testing.T) {
	var dg bam.Datagram
	dg.AddUint16(1000) // string length with no bytes behind it

	di := bam.NewIterator(dg.Bytes())
	_, err := di.String()
	assert.Error(t, err)

	_, err = bam.NewIterator(nil).Uint32()
	assert.Error(t, err)
}

func TestWriteReadChain(t *testing.T) {
	tail := &chainNode{label: "tail"}
	root := &chainNode{label: "root", next: tail}

	var buf bytes.Buffer
	require.NoError(t, bam.NewWriter(&buf).WriteObject(root))

	loaded, err := bam.ReadObject[*chainNode](&buf)
	require.NoError(t, err)
	assert.Equal(t, "root", loaded.label)
	require.NotNil(t, loaded.next)
	assert.Equal(t, "tail", loaded.next.label)
	assert.Nil(t, loaded.next.next)
}

func TestPointerInterning(t *testing.T) {
	// two nodes referencing the same third must reload sharing one object
	shared := &chainNode{label: "shared"}
	a := &chainNode{label: "a", next: shared}
	b := &chainNode{label: "b", next: shared}
	root := &chainNode{label: "root", next: a}

	var buf bytes.Buffer
	w := bam.NewWriter(&buf)
	require.NoError(t, w.WriteObject(root))
	require.NoError(t, w.WriteObject(b)) // later roots share the table

	r := bam.NewReader(&buf)
	lroot, err := r.Read()
	require.NoError(t, err)
	la := lroot.(*chainNode).next
	require.NotNil(t, la)
	assert.Equal(t, "a", la.label)
	assert.Equal(t, "shared", la.next.label)

	var lb *chainNode
	for _, obj := range r.Objects() {
		if cn, ok := obj.(*chainNode); ok && cn.label == "b" {
			lb = cn
		}
	}
	require.NotNil(t, lb, "second root must be in the table")
	assert.Same(t, la.next, lb.next, "aliasing must survive the round trip")
}

func TestReadBadMagic(t *testing.T) {
	_, err := bam.NewReader(bytes.NewReader([]byte("not a bam stream....."))).Read()
	assert.ErrorIs(t, err, bam.ErrBadMagic)
}

func TestReadEmpty(t *testing.T) {
	var buf bytes.Buffer
	_, err := bam.NewReader(&buf).Read()
	assert.Error(t, err)
}

func TestReadUnknownType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bam.NewWriter(&buf).WriteObject(&chainNode{label: "x"}))

	// splice an unregistered type name into the record
	data := bytes.Replace(buf.Bytes(), []byte("chainNode"), []byte("wrongName"), 1)
	_, err := bam.NewReader(bytes.NewReader(data)).Read()
	assert.ErrorIs(t, err, bam.ErrUnknownType)
}

func TestReadTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bam.NewWriter(&buf).WriteObject(&chainNode{label: "x"}))

	data := buf.Bytes()
	_, err := bam.NewReader(bytes.NewReader(data[:len(data)-2])).Read()
	assert.Error(t, err)
}

func TestReadDanglingPointer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bam.NewWriter(&buf).WriteObject(&chainNode{label: "x"}))

	// rewrite the null next-pointer at the record tail to a bogus ID
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[len(data)-4:], 99)
	_, err := bam.NewReader(bytes.NewReader(data)).Read()
	assert.ErrorIs(t, err, bam.ErrBadPointer)
}
