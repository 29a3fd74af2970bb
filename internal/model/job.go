package model

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidContainer reports a container with an out-of-bounds or
	// overlapping shape.
	ErrInvalidContainer = errors.New("invalid container")
	// ErrInvalidResult reports a result that does not solve its job.
	ErrInvalidResult = errors.New("result does not match job")
)

// PackingJob is a packing problem: a container size and every shape
// instance to place. A shape repeated k times appears k times.
type PackingJob struct {
	Width  int32     `json:"width"`
	Height int32     `json:"height"`
	Shapes []Polygon `json:"shapes"`
}

// NewPackingJob returns a job for containers of the given size.
func NewPackingJob(width, height int32, shapes ...Polygon) PackingJob {
	return PackingJob{Width: width, Height: height, Shapes: slices.Clone(shapes)}
}

// Clone returns a job that shares no storage with j.
func (j PackingJob) Clone() PackingJob {
	return PackingJob{Width: j.Width, Height: j.Height, Shapes: slices.Clone(j.Shapes)}
}

// Area returns the summed area of every shape instance.
func (j PackingJob) Area() int64 {
	var a int64
	for _, s := range j.Shapes {
		a += s.Area()
	}
	return a
}

// EmptyContainer returns a container of the job's size.
func (j PackingJob) EmptyContainer() Container {
	return NewContainer(j.Width, j.Height)
}

// Equal reports whether both jobs have the same size and pairwise equal
// shapes.
func (j PackingJob) Equal(other PackingJob) bool {
	return j.Width == other.Width && j.Height == other.Height &&
		slices.EqualFunc(j.Shapes, other.Shapes, Polygon.Equal)
}

// PackingResult is an ordered list of filled containers.
type PackingResult struct {
	Sheets []Container `json:"sheets"`
}

// Clone returns a result that shares no storage with r.
func (r PackingResult) Clone() PackingResult {
	return PackingResult{Sheets: slices.Clone(r.Sheets)}
}

// ShapeCount returns the number of placed shapes across all containers.
func (r PackingResult) ShapeCount() int {
	n := 0
	for _, s := range r.Sheets {
		n += s.Len()
	}
	return n
}

// Equal reports whether both results hold pairwise equal containers.
func (r PackingResult) Equal(other PackingResult) bool {
	return slices.EqualFunc(r.Sheets, other.Sheets, Container.Equal)
}

// Score returns the mean container utilization in percent, or 0 for an
// empty result.
func (r PackingResult) Score() float64 {
	if len(r.Sheets) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Sheets {
		sum += s.Utilization()
	}
	return sum / float64(len(r.Sheets)) * 100
}

// Density returns the mean container density.
func (r PackingResult) Density() float64 {
	if len(r.Sheets) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Sheets {
		sum += s.Density()
	}
	return sum / float64(len(r.Sheets))
}

// WorkerMetadata describes a packing worker.
type WorkerMetadata struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Author  string `json:"author"`
	License string `json:"license"`
}

// ValidateResult checks that result solves job: every container is
// valid and sized like the job, and the placed shape names match the job's
// shape instances one to one.
func ValidateResult(job PackingJob, result PackingResult) error {
	remaining := make([]string, len(job.Shapes))
	for i, s := range job.Shapes {
		remaining[i] = s.Name()
	}
	for i, sheet := range result.Sheets {
		if sheet.Width() != job.Width || sheet.Height() != job.Height {
			return fmt.Errorf("%w: sheet %d is %dx%d, job needs %dx%d", ErrInvalidResult, i,
				sheet.Width(), sheet.Height(), job.Width, job.Height)
		}
		if err := sheet.Validate(); err != nil {
			return fmt.Errorf("%w: sheet %d: %w", ErrInvalidResult, i, err)
		}
		for _, s := range sheet.shapes {
			k := slices.Index(remaining, s.Name())
			if k < 0 {
				return fmt.Errorf("%w: sheet %d holds unexpected shape %q", ErrInvalidResult, i, s.Name())
			}
			remaining = slices.Delete(remaining, k, k+1)
		}
	}
	if len(remaining) > 0 {
		return fmt.Errorf("%w: %d shapes were not placed", ErrInvalidResult, len(remaining))
	}
	return nil
}

// IsResultValidForJob reports whether ValidateResult succeeds.
func IsResultValidForJob(job PackingJob, result PackingResult) bool {
	err := ValidateResult(job, result)
	if err != nil {
		logger.V(1).Info("result rejected", "reason", err.Error())
	}
	return err == nil
}
