// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"fmt"
	"sync"

	"cogentcore.org/core/math32"
	"github.com/bits-and-blooms/bitset"

	"github.com/zurgeg/panda3d/pipeline"
)

// Instance is one entry in an [InstanceList], representing one repetition
// of a node's children at a given placement. It holds exactly one
// transform reference; the position, rotation, and scale setters are
// conveniences that recompose and replace that transform wholesale, they
// are not independently tracked fields.
type Instance struct {
	transform *TransformState
}

// NewInstance returns an Instance at the given transform.
func NewInstance(transform *TransformState) Instance {
	return Instance{transform: transform}
}

// Transform returns the instance's transform.
func (in *Instance) Transform() *TransformState { return in.transform }

// SetTransform replaces the instance's transform.
func (in *Instance) SetTransform(transform *TransformState) {
	in.transform = transform
}

// Pos returns the position component of the instance's transform.
func (in *Instance) Pos() math32.Vector3 { return in.transform.Pos() }

// SetPos replaces the transform with one at the given position, keeping
// the current rotation and scale.
func (in *Instance) SetPos(pos math32.Vector3) {
	in.transform = TransformFromPosQuatScale(pos, in.transform.Quat(), in.transform.Scale())
}

// Hpr returns the rotation of the instance's transform as
// heading-pitch-roll angles in degrees.
func (in *Instance) Hpr() math32.Vector3 { return in.transform.Hpr() }

// SetHpr replaces the transform with one at the given heading-pitch-roll
// rotation in degrees, keeping the current position and scale.
func (in *Instance) SetHpr(hpr math32.Vector3) {
	in.transform = TransformFromPosHprScale(in.transform.Pos(), hpr, in.transform.Scale())
}

// Quat returns the rotation component of the instance's transform.
func (in *Instance) Quat() math32.Quat { return in.transform.Quat() }

// SetQuat replaces the transform with one at the given rotation, keeping
// the current position and scale.
func (in *Instance) SetQuat(quat math32.Quat) {
	in.transform = TransformFromPosQuatScale(in.transform.Pos(), quat, in.transform.Scale())
}

// Scale returns the scale component of the instance's transform.
func (in *Instance) Scale() math32.Vector3 { return in.transform.Scale() }

// SetScale replaces the transform with one at the given scale, keeping
// the current position and rotation.
func (in *Instance) SetScale(scale math32.Vector3) {
	in.transform = TransformFromPosQuatScale(in.transform.Pos(), in.transform.Quat(), scale)
}

// InstanceList is an ordered, copy-on-write list of per-instance
// transforms, used by [InstancedNode] to draw one subtree many times.
// Insertion order defines draw order, and indices are the only instance
// identity. Multiple owners may share one InstanceList by reference; an
// owner about to mutate a shared list must duplicate it first, which the
// [pipeline.COWPointer] holding it does transparently. A list reachable
// from more than one snapshot is never mutated in place.
type InstanceList struct {
	pipeline.COWBase
	instances []Instance
}

// NewInstanceList returns a new, empty InstanceList.
func NewInstanceList() *InstanceList {
	return &InstanceList{}
}

// MakeCOWCopy implements [pipeline.COWObject]: the copy has its own entry
// storage, with each entry aliasing the same immutable transform.
func (il *InstanceList) MakeCOWCopy() *InstanceList {
	dup := NewInstanceList()
	dup.instances = make([]Instance, len(il.instances))
	copy(dup.instances, il.instances)
	return dup
}

// Len returns the number of instances in the list.
func (il *InstanceList) Len() int { return len(il.instances) }

// Empty reports whether the list has no instances.
func (il *InstanceList) Empty() bool { return len(il.instances) == 0 }

// At returns the instance at the given index for reading or in-place
// mutation. Out-of-range indices are a caller bug and panic.
func (il *InstanceList) At(i int) *Instance {
	if i < 0 || i >= len(il.instances) {
		panic(fmt.Sprintf("pgraph: instance index %d out of range [0, %d)", i, len(il.instances)))
	}
	return &il.instances[i]
}

// Instances returns the backing entries for iteration. Callers holding a
// read snapshot must not modify them.
func (il *InstanceList) Instances() []Instance { return il.instances }

// Append adds the given instance at the end of the list.
func (il *InstanceList) Append(instance Instance) {
	il.instances = append(il.instances, instance)
}

// AppendTransform adds an instance at the given transform.
func (il *InstanceList) AppendTransform(transform *TransformState) {
	il.Append(NewInstance(transform))
}

// AppendPosHprScale adds an instance at the given position,
// heading-pitch-roll rotation in degrees, and scale.
func (il *InstanceList) AppendPosHprScale(pos, hpr, scale math32.Vector3) {
	il.Append(NewInstance(TransformFromPosHprScale(pos, hpr, scale)))
}

// AppendPosQuatScale adds an instance at the given position, quaternion
// rotation, and scale.
func (il *InstanceList) AppendPosQuatScale(pos math32.Vector3, quat math32.Quat, scale math32.Vector3) {
	il.Append(NewInstance(TransformFromPosQuatScale(pos, quat, scale)))
}

// Clear removes all instances.
func (il *InstanceList) Clear() {
	il.instances = il.instances[:0]
}

// Xform is intended to transform all instances by the given matrix.
// It currently does nothing; baking a matrix into per-instance transforms
// is unimplemented.
func (il *InstanceList) Xform(mat *math32.Matrix4) {
}

// emptyList is the shared immutable empty list returned whenever an
// exclusion mask removes every instance. It is pinned so a write pointer
// taken on it duplicates rather than mutating the singleton.
var emptyList = sync.OnceValue(func() *InstanceList {
	il := NewInstanceList()
	il.Pin()
	return il
})

// Without returns an immutable list excluding the indices whose bits are
// set in the given mask, preserving the relative order of the survivors.
// This is how a culling pass drops frustum-rejected instances without
// mutating the shared source list. A mask with no bits set returns the
// receiver itself; a mask covering every index (or more) returns the
// shared empty singleton. The returned list must not be mutated.
func (il *InstanceList) Without(mask *bitset.BitSet) *InstanceList {
	numInstances := uint(len(il.instances))
	numCulled := mask.Count()
	if numCulled == 0 {
		return il
	}
	if numCulled >= numInstances {
		return emptyList()
	}

	out := NewInstanceList()
	out.instances = make([]Instance, 0, numInstances-numCulled)
	for i := uint(0); i < numInstances; i++ {
		if !mask.Test(i) {
			out.instances = append(out.instances, il.instances[i])
		}
	}
	return out
}

// String is a brief description for debug output.
func (il *InstanceList) String() string {
	return fmt.Sprintf("InstanceList (%d instances)", len(il.instances))
}
