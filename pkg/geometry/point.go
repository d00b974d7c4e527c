// Package geometry provides the pixel-space point type shared by the measurement pipeline.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2D is a pixel coordinate.
type Point2D struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y int) Point2D {
	return Point2D{X: x, Y: y}
}

// Vec converts the point to a gonum vector.
func (p Point2D) Vec() r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

// Add offsets p by an image point.
func (p Point2D) Add(o image.Point) Point2D {
	return Point2D{X: p.X + o.X, Y: p.Y + o.Y}
}

// In reports whether p lies inside r.
func (p Point2D) In(r image.Rectangle) bool {
	return image.Pt(p.X, p.Y).In(r)
}

// Distance returns the Euclidean distance between a and b in pixels.
func Distance(a, b Point2D) float64 {
	return r2.Norm(r2.Sub(b.Vec(), a.Vec()))
}

// AngleAt returns the angle in degrees at vertex between the rays vertex->a and vertex->c.
// ok is false when either ray has zero length.
func AngleAt(a, vertex, c Point2D) (degrees float64, ok bool) {
	ba := r2.Sub(a.Vec(), vertex.Vec())
	bc := r2.Sub(c.Vec(), vertex.Vec())
	norms := r2.Norm(ba) * r2.Norm(bc)
	if norms == 0 {
		return 0, false
	}
	// rounding can push the cosine marginally outside [-1, 1]
	cos := math.Max(-1, math.Min(1, r2.Dot(ba, bc)/norms))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
