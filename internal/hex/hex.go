// Package hex implements axial-coordinate math for the Zai board.
//
// Coordinates follow the pointy-top axial convention: q runs along the
// horizontal axis, r along the diagonal, and the implicit cube axis is
// s = -q - r.
package hex

import "math"

// Coordinate is an axial hex coordinate.
type Coordinate struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Origin is the center hex. On a Zai board it is permanently void and can
// never hold a stone.
var Origin = Coordinate{}

// Point is a pixel-space position.
type Point struct {
	X float64
	Y float64
}

// ToPixel maps c to the pixel center of its hex for the given hex size.
func ToPixel(c Coordinate, size float64) Point {
	q := float64(c.Q)
	r := float64(c.R)
	return Point{
		X: size * (math.Sqrt(3)*q + math.Sqrt(3)/2*r),
		Y: size * (3.0 / 2.0 * r),
	}
}

// FromPixel maps a pixel position back to the hex containing it.
func FromPixel(p Point, size float64) Coordinate {
	q := (math.Sqrt(3)/3*p.X - 1.0/3.0*p.Y) / size
	r := (2.0 / 3.0 * p.Y) / size
	return Round(q, r)
}

// Round snaps fractional axial coordinates to the nearest hex, fixing up the
// axis with the largest rounding error so that q + r + s stays zero.
func Round(fq, fr float64) Coordinate {
	fs := -fq - fr

	q := math.Round(fq)
	r := math.Round(fr)
	s := math.Round(fs)

	qDiff := math.Abs(q - fq)
	rDiff := math.Abs(r - fr)
	sDiff := math.Abs(s - fs)

	if qDiff > rDiff && qDiff > sDiff {
		q = -r - s
	} else if rDiff > sDiff {
		r = -q - s
	}

	return Coordinate{Q: int(q), R: int(r)}
}

// Neighbors returns the six adjacent hexes of c.
func Neighbors(c Coordinate) [6]Coordinate {
	return [6]Coordinate{
		{Q: c.Q + 1, R: c.R},
		{Q: c.Q + 1, R: c.R - 1},
		{Q: c.Q, R: c.R - 1},
		{Q: c.Q - 1, R: c.R},
		{Q: c.Q - 1, R: c.R + 1},
		{Q: c.Q, R: c.R + 1},
	}
}

// Distance returns the hex-grid distance between a and b.
func Distance(a, b Coordinate) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs((a.Q + a.R) - (b.Q + b.R))
	return (dq + dr + ds) / 2
}

// InRadius enumerates every coordinate within the given board radius,
// including the origin. A board of radius n has 3n²+3n+1 hexes.
func InRadius(radius int) []Coordinate {
	var hexes []Coordinate
	for q := -radius; q <= radius; q++ {
		r1 := max(-radius, -q-radius)
		r2 := min(radius, -q+radius)
		for r := r1; r <= r2; r++ {
			hexes = append(hexes, Coordinate{Q: q, R: r})
		}
	}
	return hexes
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
