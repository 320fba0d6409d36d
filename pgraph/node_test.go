// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgraph_test

import (
	"strings"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zurgeg/panda3d/pgraph"
)

func TestAddRemoveChild(t *testing.T) {
	root := pgraph.NewPandaNode("root")
	a := pgraph.NewPandaNode("a")
	b := pgraph.NewPandaNode("b")
	root.AddChild(a)
	root.AddChild(b)

	require.Equal(t, 2, root.NumChildren())
	assert.Same(t, pgraph.Node(root), a.Parent())

	assert.True(t, root.RemoveChild(a))
	assert.False(t, root.RemoveChild(a))
	assert.Nil(t, a.Parent())
	require.Equal(t, 1, root.NumChildren())
	assert.Same(t, pgraph.Node(b), root.Child(0))
}

func TestAddChildReparents(t *testing.T) {
	p1 := pgraph.NewPandaNode("p1")
	p2 := pgraph.NewPandaNode("p2")
	c := pgraph.NewPandaNode("c")
	p1.AddChild(c)
	p2.AddChild(c)

	assert.Equal(t, 0, p1.NumChildren())
	assert.Equal(t, 1, p2.NumChildren())
	assert.Same(t, pgraph.Node(p2), c.Parent())
}

func TestAddChildSelfRejected(t *testing.T) {
	n := pgraph.NewPandaNode("n")
	n.AddChild(n)
	assert.Equal(t, 0, n.NumChildren())
	assert.Nil(t, n.Parent())
}

func TestChildOutOfRange(t *testing.T) {
	n := pgraph.NewPandaNode("n")
	assert.Panics(t, func() { n.Child(0) })
}

func TestNodeMakeCopy(t *testing.T) {
	n := pgraph.NewPandaNode("n")
	n.SetTransform(pgraph.TransformFromPos(math32.Vec3(1, 2, 3)))
	n.AddChild(pgraph.NewPandaNode("c"))

	cp := n.MakeCopy()
	assert.Equal(t, "n", cp.AsNode().Name)
	assert.Same(t, n.Transform(), cp.AsNode().Transform())
	assert.Equal(t, 0, cp.AsNode().NumChildren())
}

func TestWriteTree(t *testing.T) {
	root := pgraph.NewPandaNode("root")
	mid := pgraph.NewInstancedNode("mid")
	mid.AppendTransform(pgraph.IdentityTransform())
	root.AddChild(mid)
	mid.AddChild(pgraph.NewPandaNode("leaf"))

	var sb strings.Builder
	root.WriteTree(&sb, 0)
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "PandaNode root", lines[0])
	assert.Equal(t, "\tInstancedNode mid (1 instances)", lines[1])
	assert.Equal(t, "\t\tPandaNode leaf", lines[2])
}
