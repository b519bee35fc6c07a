package geo

import "math"

// parallelEpsilon is the |a| threshold below which a ray is considered
// parallel to the triangle's plane.
const parallelEpsilon = 1e-7

// Intersection is the result of a ray-triangle test. Hit is false if the ray
// (as an infinite line in the direction tested) misses the triangle; T is
// only meaningful when Hit is true, and is the parametric distance along the
// direction vector used in the call, not normalized to any segment length.
type Intersection struct {
	Hit bool
	T   float64
}

// IntersectTriangle runs the Moller-Trumbore ray-triangle test: ray origin
// o, unit direction d, against triangle (a, b, c). The caller interprets T
// against whatever extent it cares about (e.g. a bounded segment length).
func IntersectTriangle(o, d Vec3, a, b, c Vec3) Intersection {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	h := d.Cross(e2)
	det := e1.Dot(h)
	if math.Abs(det) < parallelEpsilon {
		return Intersection{}
	}
	f := 1.0 / det
	s := o.Sub(a)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return Intersection{}
	}
	q := s.Cross(e1)
	v := f * d.Dot(q)
	if v < 0 || u+v > 1 {
		return Intersection{}
	}
	t := f * e2.Dot(q)
	return Intersection{Hit: true, T: t}
}
