package vision

// Point is a position in frame pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned bounding box in frame pixel space with
// X1 < X2 and Y1 < Y2.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Area returns the box area, 0 for degenerate boxes.
func (b BBox) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU computes intersection-over-union for two axis-aligned boxes.
// A zero-area union yields 0 rather than an error, so degenerate boxes
// are safe to feed through association.
func IoU(a, b BBox) float64 {
	x1 := a.X1
	if b.X1 > x1 {
		x1 = b.X1
	}
	y1 := a.Y1
	if b.Y1 > y1 {
		y1 = b.Y1
	}
	x2 := a.X2
	if b.X2 < x2 {
		x2 = b.X2
	}
	y2 := a.Y2
	if b.Y2 < y2 {
		y2 = b.Y2
	}

	var intersection float64
	if x2 > x1 && y2 > y1 {
		intersection = (x2 - x1) * (y2 - y1)
	}

	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// PointInPolygon reports whether p lies inside the polygon using the
// ray-casting parity rule over the vertex list. Points exactly on an
// edge have implementation-defined membership.
func PointInPolygon(p Point, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	p1 := polygon[0]
	for i := 1; i <= n; i++ {
		p2 := polygon[i%n]
		if p.Y > min(p1.Y, p2.Y) && p.Y <= max(p1.Y, p2.Y) && p.X <= max(p1.X, p2.X) {
			xIntersect := p1.X
			if p1.Y != p2.Y {
				xIntersect = (p.Y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
			}
			if p1.X == p2.X || p.X <= xIntersect {
				inside = !inside
			}
		}
		p1 = p2
	}
	return inside
}
