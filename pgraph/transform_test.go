// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph_test

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"github.com/zurgeg/panda3d/pgraph"
)

const tol = 1.0e-5

func assertVec3InDelta(t *testing.T, want, got math32.Vector3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol)
	assert.InDelta(t, want.Y, got.Y, tol)
	assert.InDelta(t, want.Z, got.Z, tol)
}

func TestIdentityTransform(t *testing.T) {
	id := pgraph.IdentityTransform()
	assert.True(t, id.IsIdentity())
	assert.Same(t, id, pgraph.IdentityTransform())
	assert.Equal(t, math32.Vec3(0, 0, 0), id.Pos())
	assert.Equal(t, math32.Vec3(1, 1, 1), id.Scale())
}

func TestTransformComponents(t *testing.T) {
	ts := pgraph.TransformFromPosHprScale(
		math32.Vec3(1, 2, 3), math32.Vec3(30, 15, -40), math32.Vec3(2, 2, 2))
	assert.Equal(t, math32.Vec3(1, 2, 3), ts.Pos())
	assertVec3InDelta(t, math32.Vec3(30, 15, -40), ts.Hpr())
	assert.Equal(t, math32.Vec3(2, 2, 2), ts.Scale())
	assert.False(t, ts.IsIdentity())
}

func TestComposeIdentityShortcut(t *testing.T) {
	id := pgraph.IdentityTransform()
	ts := pgraph.TransformFromPos(math32.Vec3(1, 0, 0))

	assert.Same(t, ts, ts.Compose(id))
	assert.Same(t, ts, id.Compose(ts))
	assert.Same(t, id, id.Compose(id))
}

func TestComposeTranslations(t *testing.T) {
	a := pgraph.TransformFromPos(math32.Vec3(1, 0, 0))
	b := pgraph.TransformFromPos(math32.Vec3(0, 2, 5))

	c := a.Compose(b)
	assertVec3InDelta(t, math32.Vec3(1, 2, 5), c.Pos())
}

func TestComposeRotationAppliesToChild(t *testing.T) {
	quat := math32.NewQuatAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(90))
	rot := pgraph.TransformFromPosQuatScale(
		math32.Vec3(0, 0, 0), quat, math32.Vec3(1, 1, 1))
	child := pgraph.TransformFromPos(math32.Vec3(1, 0, 0))

	// the child's offset is rotated into the parent's space
	var rotMat math32.Matrix4
	rotMat.SetRotationFromQuat(quat)
	want := math32.Vec3(1, 0, 0).MulMatrix4(&rotMat)
	assertVec3InDelta(t, want, rot.Compose(child).Pos())
}

func TestComposeMemoized(t *testing.T) {
	a := pgraph.TransformFromPos(math32.Vec3(1, 0, 0))
	b := pgraph.TransformFromPos(math32.Vec3(0, 1, 0))

	assert.Same(t, a.Compose(b), a.Compose(b))
}

func TestComposeScale(t *testing.T) {
	a := pgraph.TransformFromPosHprScale(
		math32.Vec3(0, 0, 0), math32.Vec3(0, 0, 0), math32.Vec3(2, 2, 2))
	b := pgraph.TransformFromPos(math32.Vec3(1, 0, 0))

	// the child's translation is scaled by the parent
	assertVec3InDelta(t, math32.Vec3(2, 0, 0), a.Compose(b).Pos())
}
