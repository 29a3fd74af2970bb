package genetic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/workerkit"
)

func makeTestJob() model.PackingJob {
	tri := model.NewClosedPolygon("tri", model.P(0, 0), model.P(0.5, 0), model.P(0, 0.5))
	rect := model.NewClosedPolygon("rect", model.P(0, 0), model.P(0.6, 0), model.P(0.6, 0.3), model.P(0, 0.3))
	return model.NewPackingJob(model.Precise(1), model.Precise(1), tri, tri, rect, tri)
}

func quickConfig() Config {
	c := DefaultConfig()
	c.PopulationSize = 6
	c.Generations = 4
	return c
}

func discard() workerkit.Emitter {
	return workerkit.EmitterFunc(func(model.PackingResult) error { return nil })
}

func TestGeneticPlacesAllShapes(t *testing.T) {
	job := makeTestJob()
	result := Worker{Config: quickConfig()}.BakeSheets(context.Background(), job, discard())

	require.NoError(t, model.ValidateResult(job, result))
	assert.Positive(t, result.Score())
}

func TestGeneticEmitsImprovements(t *testing.T) {
	var emitted []model.PackingResult
	emit := workerkit.EmitterFunc(func(r model.PackingResult) error {
		emitted = append(emitted, r)
		return nil
	})

	Worker{Config: quickConfig()}.BakeSheets(context.Background(), makeTestJob(), emit)
	require.NotEmpty(t, emitted)
	assert.Equal(t, 4, emitted[len(emitted)-1].ShapeCount())
}

func TestGeneticIsDeterministicForSeed(t *testing.T) {
	job := makeTestJob()
	a := Worker{Config: quickConfig()}.BakeSheets(context.Background(), job, discard())
	b := Worker{Config: quickConfig()}.BakeSheets(context.Background(), job, discard())
	assert.True(t, a.Equal(b))
}

func TestGeneticEmptyJob(t *testing.T) {
	job := model.NewPackingJob(model.Precise(1), model.Precise(1))
	result := NewWorker().BakeSheets(context.Background(), job, discard())
	assert.Empty(t, result.Sheets)
	assert.True(t, model.IsResultValidForJob(job, result))
}

func TestGeneticShapeTooLarge(t *testing.T) {
	big := model.NewClosedPolygon("big", model.P(0, 0), model.P(3, 0), model.P(3, 2))
	job := model.NewPackingJob(model.Precise(1), model.Precise(1), big)

	o := newOptimizer(quickConfig(), job)
	result, unplaced := o.decode(o.createGreedyChromosome())
	assert.Equal(t, 1, unplaced)
	assert.Empty(t, result.Sheets)
	assert.Zero(t, o.evaluate(o.createGreedyChromosome()))
}

func TestGeneticCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := makeTestJob()

	result := Worker{Config: quickConfig()}.BakeSheets(ctx, job, discard())
	// The seeded greedy chromosome is always decoded.
	assert.Equal(t, 4, result.ShapeCount())
}

func TestOrderCrossoverPreservesAllGenes(t *testing.T) {
	o := newOptimizer(quickConfig(), makeTestJob())

	parent1 := chromosome{genes: []gene{
		{shapeIndex: 0}, {shapeIndex: 1}, {shapeIndex: 2}, {shapeIndex: 3},
	}}
	parent2 := chromosome{genes: []gene{
		{shapeIndex: 3, rotation: 1}, {shapeIndex: 2}, {shapeIndex: 1, rotation: 2}, {shapeIndex: 0},
	}}

	for range 20 {
		child := o.orderCrossover(parent1, parent2)
		require.Len(t, child.genes, 4)

		seen := make(map[int]bool)
		for _, g := range child.genes {
			assert.False(t, seen[g.shapeIndex], "duplicate shape index %d", g.shapeIndex)
			seen[g.shapeIndex] = true
		}
		assert.Len(t, seen, 4)
	}
}

func TestMutateKeepsPermutation(t *testing.T) {
	config := quickConfig()
	config.MutationRate = 1
	o := newOptimizer(config, makeTestJob())

	c := o.createGreedyChromosome()
	for range 50 {
		o.mutate(&c)
	}
	seen := make(map[int]bool)
	for _, g := range c.genes {
		seen[g.shapeIndex] = true
		assert.Less(t, g.rotation, len(rotations))
	}
	assert.Len(t, seen, 4)
}

func TestGridStepIsBounded(t *testing.T) {
	config := quickConfig()
	config.MaxGridCells = 4
	o := newOptimizer(config, makeTestJob())
	assert.GreaterOrEqual(t, o.step, model.Precise(1)/4)
}
