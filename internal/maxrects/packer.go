package maxrects

// packer keeps the maximal free rectangles of one container. Every
// placement splits each free rectangle it overlaps into up to four strips
// and drops strips contained in others.
type packer struct {
	free          []rect
	width, height int32
	gap           int32 // between pieces, not at the container edges
}

type rect struct {
	x, y, w, h int32
}

func newPacker(width, height, gap int32) *packer {
	return &packer{
		free:   []rect{{0, 0, width, height}},
		width:  width,
		height: height,
		gap:    gap,
	}
}

// fits reports whether a w x h piece with its gap fits at the origin of r.
func (p *packer) fits(r rect, w, h int32) bool {
	return w <= r.w && h <= r.h &&
		(w+p.gap <= r.w || r.x+r.w == p.width) &&
		(h+p.gap <= r.h || r.y+r.h == p.height)
}

// find returns the position of the free rectangle that leaves the least
// area after fitting a w x h piece (best area fit), and that waste.
func (p *packer) find(w, h int32) (x, y int32, waste int64, ok bool) {
	waste = -1
	for _, r := range p.free {
		if !p.fits(r, w, h) {
			continue
		}
		fit := int64(r.w)*int64(r.h) - int64(w)*int64(h)
		if waste < 0 || fit < waste {
			x, y, waste = r.x, r.y, fit
		}
	}
	return x, y, waste, waste >= 0
}

// place marks a w x h piece at (x, y) as used.
func (p *packer) place(x, y, w, h int32) {
	used := rect{x, y, min(w+p.gap, p.width-x), min(h+p.gap, p.height-y)}

	var next []rect
	for _, r := range p.free {
		if !r.overlaps(used) {
			next = append(next, r)
			continue
		}
		if used.x > r.x {
			next = append(next, rect{r.x, r.y, used.x - r.x, r.h})
		}
		if used.x+used.w < r.x+r.w {
			next = append(next, rect{used.x + used.w, r.y, r.x + r.w - used.x - used.w, r.h})
		}
		if used.y > r.y {
			next = append(next, rect{r.x, r.y, r.w, used.y - r.y})
		}
		if used.y+used.h < r.y+r.h {
			next = append(next, rect{r.x, used.y + used.h, r.w, r.y + r.h - used.y - used.h})
		}
	}
	p.free = pruneContained(next)
}

func (a rect) overlaps(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x && a.y < b.y+b.h && a.y+a.h > b.y
}

func (a rect) contains(b rect) bool {
	return a.x <= b.x && a.y <= b.y && a.x+a.w >= b.x+b.w && a.y+a.h >= b.y+b.h
}

// pruneContained drops every rectangle inside another. Of two equal
// rectangles the first is kept.
func pruneContained(rects []rect) []rect {
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i != j && b.contains(a) && (a != b || j < i) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}
