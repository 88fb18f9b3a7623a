package hex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPixelFromPixelRoundTrip(t *testing.T) {
	for _, size := range []float64{10, 30, 42.5} {
		for _, c := range InRadius(4) {
			p := ToPixel(c, size)
			require.Equal(t, c, FromPixel(p, size), "size %v coordinate %+v", size, c)
		}
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		name string
		q, r float64
		want Coordinate
	}{
		{name: "exact", q: 2, r: -1, want: Coordinate{Q: 2, R: -1}},
		{name: "near origin", q: 0.1, r: -0.1, want: Coordinate{}},
		{name: "snaps largest error axis", q: 1.4, r: 0.4, want: Coordinate{Q: 1, R: 1}},
		{name: "negative", q: -2.6, r: 1.2, want: Coordinate{Q: -3, R: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Round(tc.q, tc.r)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 0, got.Q+got.R+(-got.Q-got.R))
		})
	}
}

func TestNeighbors(t *testing.T) {
	center := Coordinate{Q: 2, R: -1}
	seen := map[Coordinate]bool{}
	for _, n := range Neighbors(center) {
		assert.Equal(t, 1, Distance(center, n))
		seen[n] = true
	}
	assert.Len(t, seen, 6)
}

func TestDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b Coordinate
		want int
	}{
		{name: "same hex", a: Coordinate{Q: 1, R: 1}, b: Coordinate{Q: 1, R: 1}, want: 0},
		{name: "adjacent", a: Origin, b: Coordinate{Q: 1, R: 0}, want: 1},
		{name: "diagonal", a: Coordinate{Q: -2, R: 2}, b: Coordinate{Q: 2, R: -2}, want: 4},
		{name: "mixed axes", a: Coordinate{Q: -1, R: -1}, b: Coordinate{Q: 2, R: 1}, want: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Distance(tc.a, tc.b))
			assert.Equal(t, tc.want, Distance(tc.b, tc.a))
		})
	}
}

func TestInRadius(t *testing.T) {
	for radius, want := range map[int]int{0: 1, 1: 7, 2: 19, 5: 91} {
		hexes := InRadius(radius)
		require.Len(t, hexes, want, "radius %d", radius)

		unique := map[Coordinate]bool{}
		for _, c := range hexes {
			unique[c] = true
			assert.LessOrEqual(t, Distance(Origin, c), radius)
		}
		assert.Len(t, unique, want)
		assert.True(t, unique[Origin])
	}
}
