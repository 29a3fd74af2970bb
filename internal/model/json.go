package model

import "encoding/json"

type polygonJSON struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// MarshalJSON encodes the name and current vertices. Transform history is
// not encoded.
func (p Polygon) MarshalJSON() ([]byte, error) {
	pts := p.points
	if pts == nil {
		pts = []Point{}
	}
	return json.Marshal(polygonJSON{Name: p.Name(), Points: pts})
}

// UnmarshalJSON decodes a polygon encoded by MarshalJSON.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var v polygonJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = NewPolygon(v.Name, v.Points...)
	return nil
}

type containerJSON struct {
	Width  int32     `json:"width"`
	Height int32     `json:"height"`
	Shapes []Polygon `json:"shapes"`
}

// MarshalJSON encodes the size and placed shapes.
func (c Container) MarshalJSON() ([]byte, error) {
	shapes := c.shapes
	if shapes == nil {
		shapes = []Polygon{}
	}
	return json.Marshal(containerJSON{Width: c.width, Height: c.height, Shapes: shapes})
}

// UnmarshalJSON decodes a container encoded by MarshalJSON.
func (c *Container) UnmarshalJSON(data []byte) error {
	var v containerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Container{width: v.Width, height: v.Height, shapes: v.Shapes}
	return nil
}
