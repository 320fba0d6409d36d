// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"fmt"
	"math"

	"cogentcore.org/core/math32"

	"github.com/zurgeg/panda3d/bam"
)

func init() {
	bam.Register("TransformState", func() bam.Writable {
		return &TransformState{id: transformID.Add(1)}
	})
	bam.Register("InstanceList", func() bam.Writable { return NewInstanceList() })
	bam.Register("PandaNode", func() bam.Writable { return NewPandaNode("") })
	bam.Register("InstancedNode", func() bam.Writable { return NewInstancedNode("") })
}

// TransformState

// TypeName implements [bam.Writable].
func (ts *TransformState) TypeName() string { return "TransformState" }

// WriteDatagram writes the transform's components. Identity is written as
// a single flag so it reloads bit-identical.
func (ts *TransformState) WriteDatagram(w *bam.Writer, dg *bam.Datagram) {
	dg.AddBool(ts.identity)
	if ts.identity {
		return
	}
	dg.AddFloat32(ts.pos.X)
	dg.AddFloat32(ts.pos.Y)
	dg.AddFloat32(ts.pos.Z)
	dg.AddFloat32(ts.quat.X)
	dg.AddFloat32(ts.quat.Y)
	dg.AddFloat32(ts.quat.Z)
	dg.AddFloat32(ts.quat.W)
	dg.AddFloat32(ts.scale.X)
	dg.AddFloat32(ts.scale.Y)
	dg.AddFloat32(ts.scale.Z)
}

// FillIn implements [bam.Writable].
func (ts *TransformState) FillIn(scan *bam.DatagramIterator, r *bam.Reader) error {
	identity, err := scan.Bool()
	if err != nil {
		return err
	}
	if identity {
		ts.identity = true
		ts.quat.SetIdentity()
		ts.scale = math32.Vec3(1, 1, 1)
		ts.mat.SetTransform(ts.pos, ts.quat, ts.scale)
		return nil
	}
	for _, f := range []*float32{
		&ts.pos.X, &ts.pos.Y, &ts.pos.Z,
		&ts.quat.X, &ts.quat.Y, &ts.quat.Z, &ts.quat.W,
		&ts.scale.X, &ts.scale.Y, &ts.scale.Z,
	} {
		if *f, err = scan.Float32(); err != nil {
			return err
		}
	}
	ts.mat.SetTransform(ts.pos, ts.quat, ts.scale)
	return nil
}

// CompletePointers implements [bam.Writable]; transforms reference no
// other objects.
func (ts *TransformState) CompletePointers(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	return 0, nil
}

// InstanceList

// TypeName implements [bam.Writable].
func (il *InstanceList) TypeName() string { return "InstanceList" }

// WriteDatagram writes a 16-bit instance count followed by one deferred
// transform pointer per instance, so transforms shared between instances
// (or with anything else in the stream) serialize once.
func (il *InstanceList) WriteDatagram(w *bam.Writer, dg *bam.Datagram) {
	if len(il.instances) > math.MaxUint16 {
		panic(fmt.Sprintf("pgraph: %d instances exceed the storable count", len(il.instances)))
	}
	dg.AddUint16(uint16(len(il.instances)))
	for i := range il.instances {
		w.WritePointer(dg, il.instances[i].transform)
	}
}

// FillIn pre-sizes the list to the declared count and requests one
// deferred pointer per slot; CompletePointers assigns them in order.
func (il *InstanceList) FillIn(scan *bam.DatagramIterator, r *bam.Reader) error {
	count, err := scan.Uint16()
	if err != nil {
		return err
	}
	il.instances = make([]Instance, count)
	for range count {
		if err := r.ReadPointer(scan); err != nil {
			return err
		}
	}
	return nil
}

// CompletePointers assigns each resolved transform into its instance
// slot, preserving the stored order.
func (il *InstanceList) CompletePointers(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	pi := 0
	for i := range il.instances {
		ts, ok := ptrs[pi].(*TransformState)
		if !ok {
			return pi, fmt.Errorf("%w: instance %d resolves to %T, want TransformState", bam.ErrBadPointer, i, ptrs[pi])
		}
		pi++
		il.instances[i] = NewInstance(ts)
	}
	return pi, nil
}

// NodeBase (shared by all node types)

// writeBase writes the node header: name, transform pointer, and the
// child list as a count plus one deferred pointer per child.
func (nb *NodeBase) writeBase(w *bam.Writer, dg *bam.Datagram) {
	dg.AddString(nb.Name)
	children := nb.Children()
	if len(children) > math.MaxUint16 {
		panic(fmt.Sprintf("pgraph: %d children exceed the storable count", len(children)))
	}
	w.WritePointer(dg, nb.Transform())
	dg.AddUint16(uint16(len(children)))
	for _, child := range children {
		w.WritePointer(dg, child)
	}
}

// fillInBase reads the node header written by writeBase.
func (nb *NodeBase) fillInBase(scan *bam.DatagramIterator, r *bam.Reader) error {
	name, err := scan.String()
	if err != nil {
		return err
	}
	nb.Name = name
	if err := r.ReadPointer(scan); err != nil {
		return err
	}
	count, err := scan.Uint16()
	if err != nil {
		return err
	}
	nb.pendingChildren = int(count)
	for range count {
		if err := r.ReadPointer(scan); err != nil {
			return err
		}
	}
	return nil
}

// completeBase resolves the transform and child pointers requested by
// fillInBase, returning the number of pointers consumed.
func (nb *NodeBase) completeBase(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	ts, ok := ptrs[0].(*TransformState)
	if !ok {
		return 0, fmt.Errorf("%w: node transform resolves to %T, want TransformState", bam.ErrBadPointer, ptrs[0])
	}
	nb.SetTransform(ts)
	pi := 1
	for i := range nb.pendingChildren {
		child, ok := ptrs[pi].(Node)
		if !ok {
			return pi, fmt.Errorf("%w: child %d resolves to %T, want a Node", bam.ErrBadPointer, i, ptrs[pi])
		}
		pi++
		nb.AddChild(child)
	}
	nb.pendingChildren = 0
	return pi, nil
}

// PandaNode

// TypeName implements [bam.Writable].
func (n *PandaNode) TypeName() string { return "PandaNode" }

// WriteDatagram implements [bam.Writable].
func (n *PandaNode) WriteDatagram(w *bam.Writer, dg *bam.Datagram) {
	n.writeBase(w, dg)
}

// FillIn implements [bam.Writable].
func (n *PandaNode) FillIn(scan *bam.DatagramIterator, r *bam.Reader) error {
	return n.fillInBase(scan, r)
}

// CompletePointers implements [bam.Writable].
func (n *PandaNode) CompletePointers(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	return n.completeBase(ptrs, r)
}

// InstancedNode

// TypeName implements [bam.Writable].
func (n *InstancedNode) TypeName() string { return "InstancedNode" }

// WriteDatagram writes the node header, then the cycled record as a
// single deferred pointer to the stage-0 instance list. A list referenced
// identically by several nodes serializes once and reloads shared, so the
// copy-on-write aliasing survives a save/load cycle.
func (n *InstancedNode) WriteDatagram(w *bam.Writer, dg *bam.Datagram) {
	n.writeBase(w, dg)
	w.WritePointer(dg, n.Instances(0))
}

// FillIn implements [bam.Writable].
func (n *InstancedNode) FillIn(scan *bam.DatagramIterator, r *bam.Reader) error {
	if err := n.fillInBase(scan, r); err != nil {
		return err
	}
	return r.ReadPointer(scan)
}

// CompletePointers resolves the instance list into the node's snapshot
// for the default stage.
func (n *InstancedNode) CompletePointers(ptrs []bam.Writable, r *bam.Reader) (int, error) {
	pi, err := n.completeBase(ptrs, r)
	if err != nil {
		return pi, err
	}
	il, ok := ptrs[pi].(*InstanceList)
	if !ok {
		return pi, fmt.Errorf("%w: instance list resolves to %T, want InstanceList", bam.ErrBadPointer, ptrs[pi])
	}
	pi++
	n.SetInstances(0, il)
	return pi, nil
}
