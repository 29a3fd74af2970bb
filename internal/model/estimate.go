package model

import "math"

// ContainerEstimate is a lower bound on the containers a job needs, derived
// from areas alone.
type ContainerEstimate struct {
	ShapesArea      int64   `json:"shapes_area"`
	ContainerArea   int64   `json:"container_area"`
	Exact           float64 `json:"exact"`            // fractional containers
	Min             int     `json:"min"`              // ceiling of Exact
	WithWaste       int     `json:"with_waste"`       // including the waste factor
	WastePercent    float64 `json:"waste_percent"`    // e.g. 15 for 15%
	LargestFraction float64 `json:"largest_fraction"` // largest shape area over container area
}

// EstimateContainers computes how many containers a job needs at least, and
// how many to expect with wastePercent extra material.
func EstimateContainers(job PackingJob, wastePercent float64) ContainerEstimate {
	e := ContainerEstimate{
		ShapesArea:    job.Area(),
		ContainerArea: job.EmptyContainer().Area(),
		WastePercent:  wastePercent,
	}
	if e.ContainerArea <= 0 {
		return e
	}

	var largest int64
	for _, s := range job.Shapes {
		largest = max(largest, s.Area())
	}
	e.LargestFraction = float64(largest) / float64(e.ContainerArea)

	e.Exact = float64(e.ShapesArea) / float64(e.ContainerArea)
	e.Min = int(math.Ceil(e.Exact))
	e.WithWaste = max(int(math.Ceil(e.Exact*(1+wastePercent/100))), e.Min)
	return e
}
