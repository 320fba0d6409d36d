// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zurgeg/panda3d/pipeline"
)

// frameData is a minimal cycled record for testing the cycler.
type frameData struct {
	frame    int
	released bool
}

func (fd *frameData) MakeCopy() *frameData {
	return &frameData{frame: fd.frame}
}

func (fd *frameData) Release() {
	fd.released = true
}

func TestCyclerInitialAliasing(t *testing.T) {
	initial := &frameData{frame: 1}
	c := pipeline.NewCycler(initial, 3)
	assert.Equal(t, 3, c.NumStages())

	for stage := range 3 {
		assert.Same(t, initial, c.ReadStage(stage))
	}
}

func TestCyclerWriteDiverges(t *testing.T) {
	initial := &frameData{frame: 1}
	c := pipeline.NewCycler(initial, 2)

	w := c.WriteStage(0)
	assert.NotSame(t, initial, w, "write on a shared stage must copy")
	w.frame = 2

	assert.Equal(t, 1, c.ReadStage(1).frame, "stage 1 must observe the frozen record")
	assert.Equal(t, 2, c.ReadStage(0).frame)

	// stage 0 is now sole owner of its record; no further copying
	assert.Same(t, w, c.WriteStage(0))
}

func TestCyclerCycle(t *testing.T) {
	initial := &frameData{frame: 1}
	c := pipeline.NewCycler(initial, 3)

	w := c.WriteStage(0) // diverge stage 0 from 1 and 2
	w.frame = 2
	c.Cycle()

	// stage 1 now aliases stage 0's record; stage 2 got the old stage 1
	assert.Same(t, w, c.ReadStage(0))
	assert.Same(t, w, c.ReadStage(1))
	assert.Same(t, initial, c.ReadStage(2))

	// a write on stage 0 diverges again, leaving stage 1 frozen
	w2 := c.WriteStage(0)
	assert.NotSame(t, w, w2)
	w2.frame = 3
	assert.Equal(t, 2, c.ReadStage(1).frame)
}

func TestCyclerCycleReleasesDropped(t *testing.T) {
	initial := &frameData{frame: 1}
	c := pipeline.NewCycler(initial, 2)

	w := c.WriteStage(0)
	w.frame = 2
	assert.False(t, initial.released)

	// initial now lives only in the last stage; cycling drops it
	c.Cycle()
	assert.True(t, initial.released)
	assert.Same(t, w, c.ReadStage(1))
}

func TestCyclerStageOutOfRange(t *testing.T) {
	c := pipeline.NewCycler(&frameData{}, 2)
	assert.Panics(t, func() { c.ReadStage(2) })
	assert.Panics(t, func() { c.WriteStage(-1) })
}
