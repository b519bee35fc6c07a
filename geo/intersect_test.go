package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntersectTriangleThroughCenter mirrors scenario S4 from the spec: a
// ray straight through the middle of a large flat triangle.
func TestIntersectTriangleThroughCenter(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}
	c := Vec3{5, 0, 10}

	r := Ray{Start: Vec3{5, 1, 3}, End: Vec3{5, -1, 3}}
	d := r.Direction()

	got := IntersectTriangle(r.Start, d, a, b, c)
	require.True(t, got.Hit)
	assert.InDelta(t, 1.0, got.T, 1e-9) // length 2.0, hits at t=1 (the midpoint)
}

func TestIntersectTriangleParallelMiss(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}
	c := Vec3{5, 0, 10}

	// A ray parallel to the XZ plane the triangle lies in.
	got := IntersectTriangle(Vec3{5, 1, 3}, Vec3{1, 0, 0}, a, b, c)
	assert.False(t, got.Hit)
}

func TestIntersectTriangleOutsideBarycentricRange(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}
	c := Vec3{5, 0, 10}

	// Ray well outside the triangle's footprint, aimed straight down.
	got := IntersectTriangle(Vec3{100, 1, 100}, Vec3{0, -1, 0}, a, b, c)
	assert.False(t, got.Hit)
}

func TestIntersectTriangleEdgeCaseU(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 0, 0}
	c := Vec3{5, 0, 10}

	// Directly above vertex A, should hit at u~0 v~0.
	got := IntersectTriangle(Vec3{0, 1, 0}, Vec3{0, -1, 0}, a, b, c)
	assert.True(t, got.Hit)
}
