// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"cogentcore.org/core/math32"
	"github.com/gogpu/gg/cache"
)

// TransformState is an immutable, shareable affine transform, held by
// reference throughout the scene graph: nodes, instances, and in-flight
// serialization may all share one TransformState. Because it is never
// mutated after construction, sharing requires no locking. Construct one
// with [IdentityTransform], [TransformFromPos], [TransformFromPosHprScale],
// [TransformFromPosQuatScale], or [TransformFromMatrix].
type TransformState struct {
	id       uint64
	pos      math32.Vector3
	quat     math32.Quat
	scale    math32.Vector3
	mat      math32.Matrix4
	identity bool
}

var transformID atomic.Uint64

func newTransform(pos math32.Vector3, quat math32.Quat, scale math32.Vector3) *TransformState {
	ts := &TransformState{
		id:    transformID.Add(1),
		pos:   pos,
		quat:  quat,
		scale: scale,
	}
	ts.mat.SetTransform(pos, quat, scale)
	return ts
}

var identityTransform = sync.OnceValue(func() *TransformState {
	ts := newTransform(math32.Vec3(0, 0, 0), identityQuat(), math32.Vec3(1, 1, 1))
	ts.identity = true
	return ts
})

func identityQuat() math32.Quat {
	var q math32.Quat
	q.SetIdentity()
	return q
}

// IdentityTransform returns the shared identity transform.
func IdentityTransform() *TransformState {
	return identityTransform()
}

// TransformFromPos returns a transform that is a pure translation.
func TransformFromPos(pos math32.Vector3) *TransformState {
	return newTransform(pos, identityQuat(), math32.Vec3(1, 1, 1))
}

// TransformFromPosHprScale returns a transform from a position, a
// heading-pitch-roll rotation in degrees (heading about the up Y axis,
// pitch about X, roll about Z), and a scale.
func TransformFromPosHprScale(pos, hpr, scale math32.Vector3) *TransformState {
	return newTransform(pos, quatFromHpr(hpr), scale)
}

// TransformFromPosQuatScale returns a transform from a position, a
// quaternion rotation, and a scale.
func TransformFromPosQuatScale(pos math32.Vector3, quat math32.Quat, scale math32.Vector3) *TransformState {
	return newTransform(pos, quat, scale)
}

// TransformFromMatrix returns a transform decomposed from the given
// matrix. Shear is lost in the decomposition.
func TransformFromMatrix(mat *math32.Matrix4) *TransformState {
	m := *mat
	pos, quat, scale := m.Decompose()
	ts := newTransform(pos, quat, scale)
	ts.mat = m
	return ts
}

func quatFromHpr(hpr math32.Vector3) math32.Quat {
	euler := math32.Vec3(hpr.Y, hpr.X, hpr.Z).MulScalar(math32.DegToRadFactor)
	return math32.NewQuatEuler(euler)
}

// IsIdentity reports whether this is the identity transform.
func (ts *TransformState) IsIdentity() bool { return ts.identity }

// Pos returns the translation component.
func (ts *TransformState) Pos() math32.Vector3 { return ts.pos }

// Quat returns the rotation component.
func (ts *TransformState) Quat() math32.Quat { return ts.quat }

// Hpr returns the rotation as heading-pitch-roll angles in degrees.
func (ts *TransformState) Hpr() math32.Vector3 {
	q := ts.quat
	euler := q.ToEuler().MulScalar(math32.RadToDegFactor)
	return math32.Vec3(euler.Y, euler.X, euler.Z)
}

// Scale returns the scale component.
func (ts *TransformState) Scale() math32.Vector3 { return ts.scale }

// Matrix returns the transform as a matrix.
func (ts *TransformState) Matrix() math32.Matrix4 { return ts.mat }

// String is a brief description for debug output.
func (ts *TransformState) String() string {
	if ts.identity {
		return "T:(identity)"
	}
	return fmt.Sprintf("T:(pos %v hpr %v scale %v)", ts.pos, ts.Hpr(), ts.scale)
}

// composeCache memoizes composition results, keyed by the unique IDs of
// the operand pair. Eviction only costs a recompute; the cached transform
// stays valid for holders regardless.
var composeCache = cache.NewSharded[composeKey, *TransformState](1024, hashComposeKey)

type composeKey struct {
	a, b uint64
}

func hashComposeKey(k composeKey) uint64 {
	h := k.a*0x9e3779b97f4a7c15 ^ k.b
	return bits.RotateLeft64(h, 31) * 0xbf58476d1ce4e5b9
}

// Compose returns the transform resulting from applying the other
// transform within this one's coordinate space. Identity operands
// short-circuit to the non-identity one, and repeated compositions of the
// same pair return the memoized result.
func (ts *TransformState) Compose(other *TransformState) *TransformState {
	if ts.identity {
		return other
	}
	if other.identity {
		return ts
	}
	return composeCache.GetOrCreate(composeKey{ts.id, other.id}, func() *TransformState {
		var m math32.Matrix4
		m.MulMatrices(&ts.mat, &other.mat)
		return TransformFromMatrix(&m)
	})
}
