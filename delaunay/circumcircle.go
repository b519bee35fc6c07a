package delaunay

import (
	"math"

	"github.com/fenwicklabs/terramesh/geo"
)

// circumcircleTolerance biases the strict-containment test so points sitting
// almost exactly on a circumcircle are treated as outside it, matching the
// published tolerance for the Bowyer-Watson cavity test.
const circumcircleTolerance = 1e-10

// degenerateDeterminantEpsilon is the |D| threshold below which three points
// are treated as collinear in XZ and therefore have no circumcircle.
const degenerateDeterminantEpsilon = 1e-9

// orient2D returns twice the signed area of (p, q, r) projected onto XZ.
// Positive means r lies strictly to the right of the directed line p->q.
func orient2D(p, q, r geo.Vec3) float64 {
	return (q.X-p.X)*(r.Z-p.Z) - (q.Z-p.Z)*(r.X-p.X)
}

// circumcircleContainsXZ reports whether p lies strictly inside the XZ
// circumcircle of triangle (a, b, c), within circumcircleTolerance. Y is
// ignored entirely. A degenerate (collinear) triangle never contains
// anything.
func circumcircleContainsXZ(a, b, c, p geo.Vec3) bool {
	d := 2 * (a.X*(b.Z-c.Z) + b.X*(c.Z-a.Z) + c.X*(a.Z-b.Z))
	if math.Abs(d) < degenerateDeterminantEpsilon {
		return false
	}

	a2 := a.X*a.X + a.Z*a.Z
	b2 := b.X*b.X + b.Z*b.Z
	c2 := c.X*c.X + c.Z*c.Z

	ux := (a2*(b.Z-c.Z) + b2*(c.Z-a.Z) + c2*(a.Z-b.Z)) / d
	uz := (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d

	rdx, rdz := ux-a.X, uz-a.Z
	r2 := rdx*rdx + rdz*rdz

	pdx, pdz := ux-p.X, uz-p.Z
	pd2 := pdx*pdx + pdz*pdz

	return pd2 < r2-circumcircleTolerance
}
