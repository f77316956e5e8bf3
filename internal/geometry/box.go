// Package geometry provides the axis-aligned box primitives used for
// frame-to-frame association: area, intersection-over-union and linear
// interpolation. All functions are pure.
package geometry

import "math"

// Box is an axis-aligned bounding box in detector pixel space, ordered
// as x1, y1, x2, y2. Inverted or collapsed boxes are not rejected; they
// simply have zero area.
type Box [4]float64

// X1 returns the left edge.
func (b Box) X1() float64 { return b[0] }

// Y1 returns the top edge.
func (b Box) Y1() float64 { return b[1] }

// X2 returns the right edge.
func (b Box) X2() float64 { return b[2] }

// Y2 returns the bottom edge.
func (b Box) Y2() float64 { return b[3] }

// Width returns x2-x1 clamped to zero.
func (b Box) Width() float64 {
	return math.Max(0, b[2]-b[0])
}

// Height returns y2-y1 clamped to zero.
func (b Box) Height() float64 {
	return math.Max(0, b[3]-b[1])
}

// Area returns the clamped box area. Inverted boxes have zero area.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive, finite area.
func (b Box) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Area() > 0
}

// IoU returns the intersection-over-union of a and b in [0, 1].
// Intersection sides are clamped to zero before multiplying, and a
// non-positive union yields 0 instead of dividing by zero.
func IoU(a, b Box) float64 {
	xA := math.Max(a[0], b[0])
	yA := math.Max(a[1], b[1])
	xB := math.Min(a[2], b[2])
	yB := math.Min(a[3], b[3])

	inter := math.Max(0, xB-xA) * math.Max(0, yB-yA)
	union := a.Area() + b.Area() - inter
	if union <= 0 || math.IsNaN(union) {
		return 0
	}

	v := inter / union
	// NaN coordinates propagate through Max/Min; treat them as no overlap.
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

// Lerp linearly interpolates between a and b. t=0 yields a, t=1 yields b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// BoxLerp interpolates each coordinate of a toward b by t.
func BoxLerp(a, b Box, t float64) Box {
	return Box{
		Lerp(a[0], b[0], t),
		Lerp(a[1], b[1], t),
		Lerp(a[2], b[2], t),
		Lerp(a[3], b[3], t),
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
