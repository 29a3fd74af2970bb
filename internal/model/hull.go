package model

// ConvexHull returns the convex hull of the vertices as a closed polygon
// using gift wrapping. Fewer than three distinct vertices yield an empty
// polygon.
func (p Polygon) ConvexHull() Polygon {
	return ConvexHullOf(p.Name(), p.points)
}

// ConvexHullOf returns the closed convex hull of pts named name.
func ConvexHullOf(name string, pts []Point) Polygon {
	seen := make(map[Point]struct{}, len(pts))
	unique := make([]Point, 0, len(pts))
	for _, pt := range pts {
		if _, ok := seen[pt]; !ok {
			seen[pt] = struct{}{}
			unique = append(unique, pt)
		}
	}
	n := len(unique)
	if n < 3 {
		return Polygon{name: name}
	}

	l := 0
	for i := 1; i < n; i++ {
		if unique[i].X < unique[l].X || (unique[i].X == unique[l].X && unique[i].Y < unique[l].Y) {
			l = i
		}
	}

	hull := make([]Point, 0, n+1)
	p := l
	for {
		q := (p + 1) % n
		for i := 0; i < n; i++ {
			if orientation(unique[p], unique[i], unique[q]) == 2 {
				q = i
			}
		}
		hull = append(hull, unique[p])
		if len(hull) > n {
			logger.Info("convex hull did not terminate", "name", name, "points", n)
			return Polygon{name: name}
		}
		p = q
		if p == l {
			break
		}
	}
	return NewClosedPolygon(name, hull...)
}
