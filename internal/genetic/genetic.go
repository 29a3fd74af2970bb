// Package genetic implements a packing worker that evolves the order and
// rotation in which shapes are handed to a first-fit placer.
package genetic

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sort"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/typewriter"
	"github.com/piwi3910/bakery/internal/workerkit"
)

// Config holds parameters for the genetic algorithm.
type Config struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteCount     int
	Seed           int64
	// MaxGridCells bounds the placement grid along each container side.
	MaxGridCells int32
}

// DefaultConfig returns sensible default parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 20,
		Generations:    30,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
		Seed:           42,
		MaxGridCells:   40,
	}
}

// rotations are the orientations a gene can select.
var rotations = []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}

// gene represents a single shape placement decision in the chromosome.
type gene struct {
	shapeIndex int // index into the job's shapes
	rotation   int // index into rotations
}

// chromosome represents a candidate solution: an ordering of shapes with
// rotation choices.
type chromosome struct {
	genes   []gene
	fitness float64
}

type optimizer struct {
	config Config
	job    model.PackingJob
	shapes []model.Polygon // normalized, per rotation
	step   int32
	rng    *rand.Rand
}

func newOptimizer(config Config, job model.PackingJob) *optimizer {
	config.PopulationSize = max(config.PopulationSize, 1)
	o := &optimizer{
		config: config,
		job:    job,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
	for _, s := range job.Shapes {
		anchor := s.BoundingRect().Center()
		for _, a := range rotations {
			o.shapes = append(o.shapes, s.Rotated(anchor, a).Normalized())
		}
	}

	unique := model.ReduceToUnique(job.Shapes).Shapes
	o.step = typewriter.Resolution(unique, rotations)
	cells := max(config.MaxGridCells, 1)
	o.step = max(o.step, (job.Width+cells-1)/cells, (job.Height+cells-1)/cells, 1)
	return o
}

func (o *optimizer) shape(g gene) model.Polygon {
	return o.shapes[g.shapeIndex*len(rotations)+g.rotation]
}

// optimize evolves the population until the generations are used up or
// ctx ends, reporting every improved complete packing through emit.
func (o *optimizer) optimize(ctx context.Context, emit workerkit.Emitter) model.PackingResult {
	if len(o.job.Shapes) == 0 {
		return model.PackingResult{}
	}

	population := o.initPopulation()
	for i := range population {
		population[i].fitness = o.evaluate(population[i])
	}

	best := o.copyChromosome(fittest(population))
	bestResult, _ := o.decode(best)
	_ = emit.Emit(bestResult)

	for gen := 0; gen < o.config.Generations && ctx.Err() == nil; gen++ {
		sortByFitness(population)

		newPop := make([]chromosome, 0, o.config.PopulationSize)

		// Elitism: carry over the best individuals unchanged
		eliteCount := min(o.config.EliteCount, len(population))
		for i := 0; i < eliteCount; i++ {
			newPop = append(newPop, o.copyChromosome(population[i]))
		}

		for len(newPop) < o.config.PopulationSize && ctx.Err() == nil {
			parent1 := o.tournamentSelect(population)
			parent2 := o.tournamentSelect(population)

			child := o.orderCrossover(parent1, parent2)
			o.mutate(&child)

			child.fitness = o.evaluate(child)
			newPop = append(newPop, child)
		}
		population = newPop

		if top := fittest(population); top.fitness > best.fitness {
			best = o.copyChromosome(top)
			if result, unplaced := o.decode(best); unplaced == 0 {
				bestResult = result
				_ = emit.Emit(bestResult)
			}
		}
	}
	return bestResult
}

func fittest(population []chromosome) chromosome {
	best := population[0]
	for _, c := range population[1:] {
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

func sortByFitness(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

// initPopulation creates the initial random population.
func (o *optimizer) initPopulation() []chromosome {
	n := len(o.job.Shapes)
	population := make([]chromosome, o.config.PopulationSize)

	for i := range population {
		genes := make([]gene, n)
		perm := o.rng.Perm(n)
		for j := 0; j < n; j++ {
			genes[j] = gene{shapeIndex: perm[j], rotation: o.rng.Intn(len(rotations))}
		}
		population[i] = chromosome{genes: genes}
	}

	// Seed one chromosome with the greedy order (largest area first)
	if o.config.PopulationSize > 0 {
		population[0] = o.createGreedyChromosome()
	}
	return population
}

// createGreedyChromosome orders shapes by area descending, unrotated.
func (o *optimizer) createGreedyChromosome() chromosome {
	n := len(o.job.Shapes)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(a, b int) int {
		return model.ByAreaDescending(o.job.Shapes[a], o.job.Shapes[b])
	})

	genes := make([]gene, n)
	for i, idx := range indices {
		genes[i] = gene{shapeIndex: idx}
	}
	return chromosome{genes: genes}
}

// evaluate computes the fitness of a chromosome by decoding it into a
// packing and measuring utilization.
func (o *optimizer) evaluate(c chromosome) float64 {
	result, unplaced := o.decode(c)
	if len(result.Sheets) == 0 {
		return 0
	}

	efficiency := result.Score() / 100

	// Penalize unplaced shapes heavily
	unplacedPenalty := float64(unplaced) * 0.1
	// Penalize using more containers
	sheetPenalty := float64(len(result.Sheets)-1) * 0.05

	return max(efficiency-unplacedPenalty-sheetPenalty, 0)
}

// decode converts a chromosome into a packing: every shape goes to the
// first container and grid position where it fits, opening a new container
// when none does. It returns the packing and the number of shapes that fit
// no container at all.
func (o *optimizer) decode(c chromosome) (model.PackingResult, int) {
	var result model.PackingResult
	unplaced := 0

	for _, g := range c.genes {
		shape := o.shape(g)
		placed := false
		for i := range result.Sheets {
			if candidate, ok := o.firstFit(result.Sheets[i], shape); ok {
				result.Sheets[i].Append(candidate)
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		sheet := o.job.EmptyContainer()
		if candidate, ok := o.firstFit(sheet, shape); ok {
			sheet.Append(candidate)
			result.Sheets = append(result.Sheets, sheet)
		} else {
			unplaced++
		}
	}
	return result, unplaced
}

// firstFit scans the grid row by row for the first position where shape
// fits into sheet.
func (o *optimizer) firstFit(sheet model.Container, shape model.Polygon) (model.Polygon, bool) {
	b := shape.BoundingRect()
	for y := int32(0); y+b.Height() <= sheet.Height(); y += o.step {
		for x := int32(0); x+b.Width() <= sheet.Width(); x += o.step {
			candidate := shape.MovedTo(x, y)
			if sheet.MayPlace(candidate) {
				return candidate, true
			}
		}
	}
	return model.Polygon{}, false
}

// tournamentSelect picks the best individual from a random tournament.
func (o *optimizer) tournamentSelect(population []chromosome) chromosome {
	best := population[o.rng.Intn(len(population))]
	for i := 1; i < o.config.TournamentSize; i++ {
		candidate := population[o.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return o.copyChromosome(best)
}

// orderCrossover implements Order Crossover (OX1) for permutation
// chromosomes. It preserves the relative order of genes from both parents.
func (o *optimizer) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.genes)
	if n <= 2 {
		return o.copyChromosome(parent1)
	}

	point1 := o.rng.Intn(n)
	point2 := o.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{genes: make([]gene, n)}

	// Copy segment from parent1
	inSegment := make(map[int]bool)
	for i := point1; i <= point2; i++ {
		child.genes[i] = parent1.genes[i]
		inSegment[parent1.genes[i].shapeIndex] = true
	}

	// Fill remaining positions with genes from parent2 in order
	childIdx := (point2 + 1) % n
	for _, pg := range parent2.genes {
		if !inSegment[pg.shapeIndex] {
			child.genes[childIdx] = pg
			childIdx = (childIdx + 1) % n
		}
	}
	return child
}

// mutate applies random mutations to a chromosome.
func (o *optimizer) mutate(c *chromosome) {
	n := len(c.genes)
	if n < 2 {
		return
	}

	// Swap mutation
	if o.rng.Float64() < o.config.MutationRate {
		i := o.rng.Intn(n)
		j := o.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}

	// Rotation mutation
	if o.rng.Float64() < o.config.MutationRate {
		i := o.rng.Intn(n)
		c.genes[i].rotation = o.rng.Intn(len(rotations))
	}

	// Inversion mutation: reverse a segment (less frequent)
	if o.rng.Float64() < o.config.MutationRate*0.5 {
		i := o.rng.Intn(n)
		j := o.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
			i++
			j--
		}
	}
}

// copyChromosome creates a deep copy of a chromosome.
func (o *optimizer) copyChromosome(c chromosome) chromosome {
	return chromosome{genes: slices.Clone(c.genes), fitness: c.fitness}
}

// Worker is the genetic packing algorithm.
type Worker struct {
	Config Config
}

var _ workerkit.Handler = Worker{}

// NewWorker returns a worker with the default configuration.
func NewWorker() Worker { return Worker{Config: DefaultConfig()} }

// Metadata describes the genetic worker.
func (Worker) Metadata() model.WorkerMetadata {
	return model.WorkerMetadata{
		Name:    "genetic",
		Type:    "evolutionary",
		Author:  "Bakery developers",
		License: "LGPL3+",
	}
}

// BakeSheets evolves placements for job. Larger jobs get more generations.
func (w Worker) BakeSheets(ctx context.Context, job model.PackingJob, emit workerkit.Emitter) model.PackingResult {
	config := w.Config
	if len(job.Shapes) > 20 {
		config.Generations = config.Generations * 3 / 2
	}
	if len(job.Shapes) > 50 {
		config.Generations *= 2
		config.PopulationSize = config.PopulationSize * 8 / 5
	}
	return newOptimizer(config, job).optimize(ctx, emit)
}
