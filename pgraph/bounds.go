// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"cogentcore.org/core/math32"
)

// BoundingVolume describes the space a node's internal contents occupy,
// for view-frustum culling.
type BoundingVolume interface {

	// IsInfinite reports whether the volume covers all of space.
	IsInfinite() bool

	// InView reports whether the volume, placed under the given net
	// transform, intersects the given view frustum.
	InView(frustum *math32.Frustum, xform *math32.Matrix4) bool
}

// OmniBound is a bounding volume that covers all of space, so it is never
// culled. Nodes that cannot (or choose not to) compute a tight volume
// report an OmniBound and defer real bounds to their children.
type OmniBound struct{}

func (OmniBound) IsInfinite() bool { return true }

func (OmniBound) InView(frustum *math32.Frustum, xform *math32.Matrix4) bool { return true }

// BoxBound is an axis-aligned box bounding volume.
type BoxBound struct {
	Box math32.Box3
}

func (bb BoxBound) IsInfinite() bool { return false }

func (bb BoxBound) InView(frustum *math32.Frustum, xform *math32.Matrix4) bool {
	if frustum == nil {
		return true
	}
	return frustum.IntersectsBox(bb.Box.MulMatrix4(xform))
}
