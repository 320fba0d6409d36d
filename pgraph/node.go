// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pgraph implements the scene graph: nodes with transforms and
// children, the per-instance transform lists that draw one subtree many
// times, the cull traversal over them, and their binary persistence
// through the bam codec.
package pgraph

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"cogentcore.org/core/base/indent"
	"cogentcore.org/core/math32"

	"github.com/zurgeg/panda3d/bam"
)

// Node is the interface all scene-graph nodes satisfy. The core
// functionality lives on [NodeBase], which all node types embed; this
// interface carries only the hooks that concrete node types may override,
// plus the bam persistence surface.
type Node interface {
	bam.Writable

	// AsNode returns the [NodeBase] of this node.
	AsNode() *NodeBase

	// MakeCopy returns a shallow copy of this node: a different node,
	// possibly sharing internal data with the original. Children are not
	// copied.
	MakeCopy() Node

	// SafeToFlatten reports whether the flatten optimization may
	// duplicate this node per graph instance.
	SafeToFlatten() bool

	// SafeToCombine reports whether the flatten optimization may combine
	// this node with compatible siblings via [Node.CombineWith].
	SafeToCombine() bool

	// CombineWith collapses this node with the other node if possible,
	// returning the combined node, or nil if the two cannot safely be
	// combined. It does not deal with children.
	CombineWith(other Node) Node

	// Xform transforms the contents of this node by the given matrix, if
	// that means anything for the node type.
	Xform(mat *math32.Matrix4)

	// CullCallback is called during the cull traversal, after the node
	// has passed the view-frustum test and its transform has been applied
	// to the traversal data, but only for node types that called
	// [NodeBase.SetCullCallback] at construction. It returns whether the
	// node itself should be treated as visible.
	CullCallback(trav *CullTraverser, data *CullTraverserData) bool

	// InternalBounds returns the volume the node's own contents occupy,
	// excluding children, as observed at the given pipeline stage.
	InternalBounds(stage int) BoundingVolume

	// CalcTightBounds accumulates the node's subtree into the given box
	// under the given net transform, setting foundAny if any geometry
	// contributed. It returns the transform composed with the node's own,
	// for continued composition up the tree.
	CalcTightBounds(box *math32.Box3, foundAny *bool, transform *TransformState, stage int) *TransformState
}

// NodeBase provides the core scene-graph node functionality: a name, a
// transform, and a child list. All node types embed it and must be
// created through their New constructors so the This field is set.
type NodeBase struct {

	// This is the node as its true underlying type, so methods on
	// NodeBase can dispatch to overrides on higher-level types.
	This Node

	// Name is the node's name, used for debug output and serialization.
	Name string

	mu              sync.RWMutex
	parent          Node
	children        []Node
	transform       *TransformState
	internalBounds  BoundingVolume
	hasCullCallback bool

	// pendingChildren is the child count declared in the stream, between
	// fillInBase and completeBase.
	pendingChildren int
}

func initNode(n Node, name string) {
	nb := n.AsNode()
	nb.This = n
	nb.Name = name
	nb.transform = IdentityTransform()
}

// NewPandaNode returns a new plain node with the given name.
func NewPandaNode(name string) *PandaNode {
	n := &PandaNode{}
	initNode(n, name)
	return n
}

// AsNode returns the NodeBase.
func (nb *NodeBase) AsNode() *NodeBase { return nb }

// Parent returns the node's parent, or nil at the root.
func (nb *NodeBase) Parent() Node {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.parent
}

// NumChildren returns the number of children.
func (nb *NodeBase) NumChildren() int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return len(nb.children)
}

// Child returns the child at the given index. Out-of-range indices are a
// caller bug and panic.
func (nb *NodeBase) Child(i int) Node {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	if i < 0 || i >= len(nb.children) {
		panic(fmt.Sprintf("pgraph: child index %d out of range [0, %d)", i, len(nb.children)))
	}
	return nb.children[i]
}

// Children returns a snapshot of the child list.
func (nb *NodeBase) Children() []Node {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	out := make([]Node, len(nb.children))
	copy(out, nb.children)
	return out
}

// AddChild adds the given node at the end of the child list and sets its
// parent. A node already parented elsewhere is detached from its old
// parent first.
func (nb *NodeBase) AddChild(child Node) {
	if child == nil || child.AsNode() == nb {
		slog.Error("pgraph.AddChild: invalid child", "parent", nb.Name)
		return
	}
	if p := child.AsNode().Parent(); p != nil {
		p.AsNode().RemoveChild(child)
	}
	nb.mu.Lock()
	nb.children = append(nb.children, child)
	nb.mu.Unlock()
	cb := child.AsNode()
	cb.mu.Lock()
	cb.parent = nb.This
	cb.mu.Unlock()
}

// RemoveChild removes the given child, reporting whether it was found.
func (nb *NodeBase) RemoveChild(child Node) bool {
	nb.mu.Lock()
	for i, c := range nb.children {
		if c == child {
			nb.children = append(nb.children[:i], nb.children[i+1:]...)
			nb.mu.Unlock()
			cb := child.AsNode()
			cb.mu.Lock()
			cb.parent = nil
			cb.mu.Unlock()
			return true
		}
	}
	nb.mu.Unlock()
	return false
}

// Transform returns the node's own transform (not composed with parents).
func (nb *NodeBase) Transform() *TransformState {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.transform
}

// SetTransform replaces the node's own transform.
func (nb *NodeBase) SetTransform(transform *TransformState) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.transform = transform
}

// SetCullCallback declares that this node type's [Node.CullCallback] must
// be invoked during the cull traversal. Node types call it in their
// constructor.
func (nb *NodeBase) SetCullCallback() {
	nb.hasCullCallback = true
}

// HasCullCallback reports whether [Node.CullCallback] should be invoked
// for this node.
func (nb *NodeBase) HasCullCallback() bool {
	return nb.hasCullCallback
}

// SetInternalBounds sets an explicit volume for the node's own contents,
// excluding children.
func (nb *NodeBase) SetInternalBounds(bounds BoundingVolume) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.internalBounds = bounds
}

// InternalBounds returns the volume the node's own contents occupy. With
// no explicit bounds set, a plain node occupies no space of its own and
// reports an empty box.
func (nb *NodeBase) InternalBounds(stage int) BoundingVolume {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	if nb.internalBounds != nil {
		return nb.internalBounds
	}
	return BoxBound{Box: math32.B3Empty()}
}

// MakeCopy returns a shallow copy: same name, transform, and internal
// bounds, no children.
func (nb *NodeBase) MakeCopy() Node {
	cp := reflect.New(reflect.TypeOf(nb.This).Elem()).Interface().(Node)
	initNode(cp, nb.Name)
	cb := cp.AsNode()
	nb.mu.RLock()
	cb.transform = nb.transform
	cb.internalBounds = nb.internalBounds
	nb.mu.RUnlock()
	cb.hasCullCallback = nb.hasCullCallback
	return cp
}

// SafeToFlatten reports whether the flatten optimization may duplicate
// this node; true for most node types.
func (nb *NodeBase) SafeToFlatten() bool { return true }

// SafeToCombine reports whether the flatten optimization may combine this
// node with siblings; true for most node types.
func (nb *NodeBase) SafeToCombine() bool { return true }

// CombineWith returns nil: plain nodes define no combining of their own.
func (nb *NodeBase) CombineWith(other Node) Node { return nil }

// Xform does nothing for most node types.
func (nb *NodeBase) Xform(mat *math32.Matrix4) {}

// CullCallback is only invoked on node types that called
// [NodeBase.SetCullCallback]; the default keeps the node visible.
func (nb *NodeBase) CullCallback(trav *CullTraverser, data *CullTraverserData) bool {
	return true
}

// CalcTightBounds accumulates this node's internal bounds, if finite and
// non-empty, and its children into the given box. It returns the given
// transform composed with the node's own.
func (nb *NodeBase) CalcTightBounds(box *math32.Box3, foundAny *bool, transform *TransformState, stage int) *TransformState {
	next := transform.Compose(nb.Transform())
	if bb, ok := nb.This.InternalBounds(stage).(BoxBound); ok && !bb.Box.IsEmpty() {
		mat := next.Matrix()
		box.ExpandByBox(bb.Box.MulMatrix4(&mat))
		*foundAny = true
	}
	for _, child := range nb.Children() {
		child.CalcTightBounds(box, foundAny, next, stage)
	}
	return next
}

// String is a brief description for debug output.
func (nb *NodeBase) String() string {
	return fmt.Sprintf("%s %s", nb.This.TypeName(), nb.Name)
}

// WriteTree writes an indented description of the subtree to the given
// writer, for debugging.
func (nb *NodeBase) WriteTree(w io.Writer, depth int) {
	fmt.Fprintf(w, "%s%v\n", indent.Tabs(depth), nb.This)
	for _, child := range nb.Children() {
		child.AsNode().WriteTree(w, depth+1)
	}
}

// PandaNode is the plain scene-graph node: a name, a transform, and
// children, with no contents of its own.
type PandaNode struct {
	NodeBase
}
