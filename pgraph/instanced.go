// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph

import (
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/zurgeg/panda3d/pipeline"
)

// instancedCData is the cycled per-stage record of an [InstancedNode]:
// one copy-on-write reference to its instance list. Each pipeline stage
// observes its own record; records on consecutive stages alias the same
// list until a write forces divergence.
type instancedCData struct {
	instances *pipeline.COWPointer[*InstanceList]
}

func (cd *instancedCData) MakeCopy() *instancedCData {
	return &instancedCData{instances: cd.instances.Copy()}
}

func (cd *instancedCData) Release() {
	cd.instances.Release()
}

// InstancedNode is a scene-graph node that renders its children once per
// instance in its [InstanceList], each under that instance's transform
// composed onto the node's own. The subtree itself exists once; the
// traversal expands it into N virtual copies. The list is held per
// pipeline stage behind the copy-on-write discipline, so an application
// thread can mutate instances while a render thread traverses a prior
// frame's snapshot.
type InstancedNode struct {
	NodeBase
	cycler *pipeline.Cycler[*instancedCData]
}

// NewInstancedNode returns a new InstancedNode with the given name and an
// empty instance list, cycled over [pipeline.DefaultNumStages] stages.
func NewInstancedNode(name string) *InstancedNode {
	return NewInstancedNodeStages(name, pipeline.DefaultNumStages)
}

// NewInstancedNodeStages returns a new InstancedNode cycled over the
// given number of pipeline stages.
func NewInstancedNodeStages(name string, numStages int) *InstancedNode {
	n := &InstancedNode{}
	initNode(n, name)
	n.SetCullCallback()
	cd := &instancedCData{instances: pipeline.NewCOWPointer(NewInstanceList())}
	n.cycler = pipeline.NewCycler(cd, numStages)
	return n
}

// Cycler returns the node's pipeline cycler, exposed for the pipeline
// manager that cycles all nodes at frame boundaries.
func (n *InstancedNode) Cycler() *pipeline.Cycler[*instancedCData] { return n.cycler }

// Instances returns the node's instance list as a read-only snapshot for
// the given pipeline stage. The snapshot is frozen with respect to writes
// on other stages; callers must not mutate it.
func (n *InstancedNode) Instances(stage int) *InstanceList {
	return n.cycler.ReadStage(stage).instances.ReadPointer()
}

// ModifyInstances returns the node's instance list for mutation at the
// given pipeline stage. If the list is shared with another stage's
// snapshot (or another node), it is duplicated first, so the mutation is
// isolated to this stage.
func (n *InstancedNode) ModifyInstances(stage int) *InstanceList {
	return n.cycler.WriteStage(stage).instances.WritePointer()
}

// SetInstances replaces the node's instance list at the given pipeline
// stage.
func (n *InstancedNode) SetInstances(stage int, instances *InstanceList) {
	n.cycler.WriteStage(stage).instances.Set(instances)
}

// NumInstances returns the number of instances at stage 0.
func (n *InstancedNode) NumInstances() int {
	return n.Instances(0).Len()
}

// AppendInstance adds the given instance at the end of the stage-0 list.
func (n *InstancedNode) AppendInstance(instance Instance) {
	n.ModifyInstances(0).Append(instance)
}

// AppendTransform adds an instance at the given transform to the stage-0
// list.
func (n *InstancedNode) AppendTransform(transform *TransformState) {
	n.ModifyInstances(0).AppendTransform(transform)
}

// AppendPosHprScale adds an instance at the given position,
// heading-pitch-roll rotation in degrees, and scale to the stage-0 list.
func (n *InstancedNode) AppendPosHprScale(pos, hpr, scale math32.Vector3) {
	n.ModifyInstances(0).AppendPosHprScale(pos, hpr, scale)
}

// AppendPosQuatScale adds an instance at the given position, quaternion
// rotation, and scale to the stage-0 list.
func (n *InstancedNode) AppendPosQuatScale(pos math32.Vector3, quat math32.Quat, scale math32.Vector3) {
	n.ModifyInstances(0).AppendPosQuatScale(pos, quat, scale)
}

// MakeCopy returns a shallow copy whose instance list is shared
// copy-on-write with this node's.
func (n *InstancedNode) MakeCopy() Node {
	cp := &InstancedNode{}
	initNode(cp, n.Name)
	cp.SetCullCallback()
	cp.transform = n.Transform()
	cd := n.cycler.ReadStage(0).MakeCopy()
	cp.cycler = pipeline.NewCycler(cd, n.cycler.NumStages())
	return cp
}

// SafeToFlatten returns false: the instances already encode the
// duplication that flattening would otherwise perform.
func (n *InstancedNode) SafeToFlatten() bool { return false }

// SafeToCombine returns true; combining only actually happens when the
// instance lists are identical, see [InstancedNode.CombineWith].
func (n *InstancedNode) SafeToCombine() bool { return true }

// CombineWith collapses this node with the other node only if the other
// is exactly an InstancedNode referencing the identical instance list:
// two nodes with equal but distinct lists would need child-merging logic
// this node does not implement, so they return nil and stay separate.
func (n *InstancedNode) CombineWith(other Node) Node {
	iother, ok := other.(*InstancedNode)
	if !ok {
		return nil
	}
	if n.Instances(0) == iother.Instances(0) {
		return n
	}
	return nil
}

// Xform does nothing: baking a matrix into an instancing node would apply
// to the per-instance transforms, which is unimplemented, not to the
// node's own transform.
func (n *InstancedNode) Xform(mat *math32.Matrix4) {}

// InternalBounds returns an all-of-space volume: the node defers real
// bounds to the per-instance children rather than computing a tight
// volume itself. A known approximation.
func (n *InstancedNode) InternalBounds(stage int) BoundingVolume {
	return OmniBound{}
}

// CullCallback expands the node into its instances: frustum and plane
// culling are disabled from here down, since one parent-level test means
// nothing under N different instance transforms, and the children are
// traversed once per instance under the composed transform. It returns
// false because the node contributes no visible geometry of its own, only
// its replicated children do.
func (n *InstancedNode) CullCallback(trav *CullTraverser, data *CullTraverserData) bool {
	data.ViewFrustum = nil
	data.CullPlanes = nil

	instances := n.Instances(trav.Stage())
	for i := range instances.Instances() {
		idata := *data
		idata.ApplyTransform(instances.At(i).Transform())
		trav.TraverseBelow(&idata)
	}
	return false
}

// CalcTightBounds accumulates the cross product of instances and children
// into the given box. The returned transform composes only the node's own
// transform, without any instance applied, for continued composition up
// the tree.
func (n *InstancedNode) CalcTightBounds(box *math32.Box3, foundAny *bool, transform *TransformState, stage int) *TransformState {
	instances := n.Instances(stage)
	next := transform.Compose(n.Transform())

	for i := range instances.Instances() {
		instTransform := next.Compose(instances.At(i).Transform())
		for _, child := range n.Children() {
			child.CalcTightBounds(box, foundAny, instTransform, stage)
		}
	}
	return next
}

// String is a brief description for debug output.
func (n *InstancedNode) String() string {
	return fmt.Sprintf("%s (%d instances)", n.NodeBase.String(), n.NumInstances())
}
