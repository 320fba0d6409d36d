// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"cogentcore.org/core/math32"
)

// CullTraverserData carries the state of one branch of a cull traversal:
// the node being visited, the net transform accumulated from the root,
// and the active view frustum and clip planes. It is copied, not shared,
// when the traversal branches, so a node hook may modify its own data
// without affecting siblings.
type CullTraverserData struct {

	// Node is the node this data applies to. Its own transform has
	// already been folded into the net transform.
	Node Node

	// ViewFrustum is the frustum nodes are culled against, or nil if
	// frustum culling is disabled from this point down.
	ViewFrustum *math32.Frustum

	// CullPlanes are additional clip planes in effect, or nil.
	CullPlanes []math32.Plane

	netTransform *TransformState
}

// NetTransform returns the accumulated transform from the root through
// this node.
func (data *CullTraverserData) NetTransform() *TransformState {
	return data.netTransform
}

// ApplyTransform composes the given transform onto the accumulated net
// transform.
func (data *CullTraverserData) ApplyTransform(transform *TransformState) {
	data.netTransform = data.netTransform.Compose(transform)
}

// inView runs the view-frustum test for the node's own contents. A node
// with no finite volume of its own cannot be rejected here; its children
// are tested on their own.
func (data *CullTraverserData) inView(stage int) bool {
	if data.ViewFrustum == nil {
		return true
	}
	bounds := data.Node.InternalBounds(stage)
	if bb, ok := bounds.(BoxBound); ok && bb.Box.IsEmpty() {
		return true
	}
	mat := data.netTransform.Matrix()
	return bounds.InView(data.ViewFrustum, &mat)
}

// CullTraverser walks a scene graph depth-first for one pipeline stage,
// accumulating net transforms, culling against a view frustum, and
// invoking the cull-callback hook on node types that request it. Visible
// nodes are handed to the Record sink in draw order.
type CullTraverser struct {

	// Record, if non-nil, is called for every node that passes the
	// frustum test and its own cull callback.
	Record func(node Node, data *CullTraverserData)

	stage int
}

// NewCullTraverser returns a traverser reading snapshots for the given
// pipeline stage.
func NewCullTraverser(stage int) *CullTraverser {
	return &CullTraverser{stage: stage}
}

// Stage returns the pipeline stage this traversal reads.
func (trav *CullTraverser) Stage() int { return trav.stage }

// Traverse walks the graph from the given root, culling against the given
// view frustum. A nil frustum disables culling.
func (trav *CullTraverser) Traverse(root Node, frustum *math32.Frustum) {
	data := CullTraverserData{
		Node:         root,
		ViewFrustum:  frustum,
		netTransform: IdentityTransform().Compose(root.AsNode().Transform()),
	}
	trav.traverse(data)
}

// traverse visits one node whose transform is already applied to data.
func (trav *CullTraverser) traverse(data CullTraverserData) {
	if !data.inView(trav.stage) {
		return
	}
	if data.Node.AsNode().HasCullCallback() {
		if !data.Node.CullCallback(trav, &data) {
			return
		}
	}
	if trav.Record != nil {
		trav.Record(data.Node, &data)
	}
	trav.TraverseBelow(&data)
}

// TraverseBelow continues the traversal into the children of the node in
// the given data, under that data's net transform and culling state. Node
// hooks that expand a node into several virtual copies call this once per
// copy with adjusted data.
func (trav *CullTraverser) TraverseBelow(data *CullTraverserData) {
	for _, child := range data.Node.AsNode().Children() {
		cdata := CullTraverserData{
			Node:         child,
			ViewFrustum:  data.ViewFrustum,
			CullPlanes:   data.CullPlanes,
			netTransform: data.netTransform.Compose(child.AsNode().Transform()),
		}
		trav.traverse(cdata)
	}
}
