package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateContainers(t *testing.T) {
	unit := NewClosedPolygon("sq", P(0, 0), P(1, 0), P(1, 1), P(0, 1))
	job := NewPackingJob(Precise(2), Precise(2), unit, unit, unit, unit, unit)

	e := EstimateContainers(job, 20)
	assert.Equal(t, 5*Precision, int(e.ShapesArea))
	assert.Equal(t, 4*Precision, int(e.ContainerArea))
	assert.InDelta(t, 1.25, e.Exact, 1e-9)
	assert.Equal(t, 2, e.Min)
	assert.Equal(t, 2, e.WithWaste)
	assert.InDelta(t, 0.25, e.LargestFraction, 1e-9)

	e = EstimateContainers(job, 80)
	assert.Equal(t, 3, e.WithWaste)
}

func TestEstimateContainers_Empty(t *testing.T) {
	e := EstimateContainers(NewPackingJob(Precise(2), Precise(2)), 10)
	assert.Zero(t, e.Min)
	assert.Zero(t, e.WithWaste)

	e = EstimateContainers(NewPackingJob(0, 0), 10)
	assert.Zero(t, e.Exact)
	assert.Equal(t, 10.0, e.WastePercent)
}
