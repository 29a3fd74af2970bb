package model

import (
	"time"

	"github.com/google/uuid"
)

// ShapeSpec is a shape type in real units with its repeat count. It is the
// persisted form of job shapes.
type ShapeSpec struct {
	Name   string   `json:"name"`
	Amount int      `json:"amount"`
	Points []PointF `json:"points"`
}

// Polygon returns the closed fixed-point polygon of s.
func (s ShapeSpec) Polygon() Polygon {
	pts := make([]Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = PointPrecise(p)
	}
	return NewClosedPolygon(s.Name, pts...)
}

// ShapeSpecs reduces shapes to one spec per name. Closing vertices are
// dropped.
func ShapeSpecs(shapes []Polygon) []ShapeSpec {
	u := ReduceToUnique(shapes)
	specs := make([]ShapeSpec, len(u.Shapes))
	for i, s := range u.Shapes {
		s.EnsureClosed(false)
		pts := make([]PointF, s.Len())
		for k := range pts {
			pts[k] = PointRounded(s.At(k))
		}
		specs[i] = ShapeSpec{Name: u.Names[i], Amount: u.Amounts[u.Names[i]], Points: pts}
	}
	return specs
}

// JobTemplate represents a reusable packing job definition.
type JobTemplate struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Shapes      []ShapeSpec `json:"shapes"`
}

// NewJobTemplate creates a new template from the given job.
func NewJobTemplate(name, description string, job PackingJob) JobTemplate {
	now := time.Now().UTC().Format(time.RFC3339)
	return JobTemplate{
		ID:          uuid.New().String()[:8],
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Width:       Rounded(job.Width),
		Height:      Rounded(job.Height),
		Shapes:      ShapeSpecs(job.Shapes),
	}
}

// ToJob expands the template into a job with one polygon per instance.
func (t JobTemplate) ToJob() PackingJob {
	job := PackingJob{Width: Precise(t.Width), Height: Precise(t.Height)}
	for _, s := range t.Shapes {
		p := s.Polygon()
		for range s.Amount {
			job.Shapes = append(job.Shapes, p)
		}
	}
	return job
}

// TemplateStore holds a collection of job templates.
type TemplateStore struct {
	Templates []JobTemplate `json:"templates"`
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() TemplateStore {
	return TemplateStore{
		Templates: []JobTemplate{},
	}
}

// Add adds a template to the store.
func (ts *TemplateStore) Add(t JobTemplate) {
	ts.Templates = append(ts.Templates, t)
}

// Remove removes a template by ID. Returns true if found and removed.
func (ts *TemplateStore) Remove(id string) bool {
	for i, t := range ts.Templates {
		if t.ID == id {
			ts.Templates = append(ts.Templates[:i], ts.Templates[i+1:]...)
			return true
		}
	}
	return false
}

// FindByID returns a pointer to the template with the given ID, or nil.
func (ts *TemplateStore) FindByID(id string) *JobTemplate {
	for i := range ts.Templates {
		if ts.Templates[i].ID == id {
			return &ts.Templates[i]
		}
	}
	return nil
}

// FindByName returns a pointer to the first template with the given name, or nil.
func (ts *TemplateStore) FindByName(name string) *JobTemplate {
	for i := range ts.Templates {
		if ts.Templates[i].Name == name {
			return &ts.Templates[i]
		}
	}
	return nil
}

// Names lists template names in store order.
func (ts *TemplateStore) Names() []string {
	names := make([]string, len(ts.Templates))
	for i, t := range ts.Templates {
		names[i] = t.Name
	}
	return names
}
