// Copyright (c) 2026, The Panda3D Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"sync"
)

// DefaultNumStages is the number of pipeline stages a [Cycler] runs with
// unless told otherwise: one application stage plus two frames in flight.
const DefaultNumStages = 3

// CycleData is implemented by the per-stage records held in a [Cycler].
// MakeCopy returns a new record whose fields share (with proper reference
// accounting) the sub-objects of the original; Release drops any counted
// references the record holds.
type CycleData[T any] interface {
	MakeCopy() T
	Release()
}

// Cycler holds one copy of a node's cycled data per pipeline stage,
// implementing the copy-on-write-across-stages discipline: after a
// [Cycler.Cycle], consecutive stages alias the same record until a write
// on one stage forces divergence. Reads on a stage observe a record frozen
// with respect to writes on every other stage.
type Cycler[T interface {
	CycleData[T]
	comparable
}] struct {
	mu     sync.RWMutex
	stages []T
}

// NewCycler returns a Cycler with the given number of stages, all
// initially aliasing the given record. If numStages is not positive,
// [DefaultNumStages] is used.
func NewCycler[T interface {
	CycleData[T]
	comparable
}](initial T, numStages int) *Cycler[T] {
	if numStages <= 0 {
		numStages = DefaultNumStages
	}
	stages := make([]T, numStages)
	for i := range stages {
		stages[i] = initial
	}
	return &Cycler[T]{stages: stages}
}

// NumStages returns the number of pipeline stages.
func (c *Cycler[T]) NumStages() int { return len(c.stages) }

func (c *Cycler[T]) checkStage(stage int) {
	if stage < 0 || stage >= len(c.stages) {
		panic(fmt.Sprintf("pipeline: stage %d out of range [0, %d)", stage, len(c.stages)))
	}
}

// ReadStage returns the given stage's current record for read-only access.
// The record reflects every write committed to the stage before the call
// and stays valid for the caller regardless of concurrent writes on other
// stages.
func (c *Cycler[T]) ReadStage(stage int) T {
	c.checkStage(stage)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stages[stage]
}

// WriteStage returns the given stage's record for mutation. If the record
// is aliased by any other stage, it is duplicated first so the mutation
// stays isolated to this stage.
func (c *Cycler[T]) WriteStage(stage int) T {
	c.checkStage(stage)
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.stages[stage]
	for i := range c.stages {
		if i != stage && c.stages[i] == d {
			d = d.MakeCopy()
			c.stages[stage] = d
			break
		}
	}
	return d
}

// Cycle advances the pipeline by one frame: each stage's record is
// propagated forward to the next stage by aliasing, without copying.
// Stage 0 keeps its record, so the next write on stage 0 diverges lazily
// from what the downstream stages now observe. Records displaced from the
// last stage are released if no stage aliases them anymore.
func (c *Cycler[T]) Cycle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.stages)
	if n < 2 {
		return
	}
	dropped := c.stages[n-1]
	for i := n - 1; i > 0; i-- {
		c.stages[i] = c.stages[i-1]
	}
	for i := range c.stages {
		if c.stages[i] == dropped {
			return
		}
	}
	dropped.Release()
}
