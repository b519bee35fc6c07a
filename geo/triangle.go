package geo

import "sync/atomic"

// Triangle is an ordered triple of Vertex handles plus the bookkeeping the
// triangulator and the carver need. Neighbors[i] is the triangle sharing the
// edge opposite vertex i: Neighbors[0] borders edge BC, Neighbors[1] borders
// edge CA, Neighbors[2] borders edge AB. A nil neighbor marks a boundary
// edge. IsBad is triangulator scratch state and is never touched once a mesh
// build has finished; IsDeleted is set exactly once, by the carver, and is
// safe to race on by construction (first writer wins).
type Triangle struct {
	A, B, C *Vertex

	Centroid Vec3
	Bounds   Bounds

	Neighbors [3]*Triangle

	IsBad bool

	isDeleted atomic.Bool
}

// NewTriangle builds a Triangle from three vertex handles, precomputing its
// centroid and bounds. Neighbors are left nil; the caller wires them.
func NewTriangle(a, b, c *Vertex) *Triangle {
	t := &Triangle{A: a, B: b, C: c}
	t.Centroid = a.Position.Add(b.Position).Add(c.Position).Scale(1.0 / 3.0)
	bnd := EmptyBounds()
	bnd = bnd.EncapsulatePoint(a.Position)
	bnd = bnd.EncapsulatePoint(b.Position)
	bnd = bnd.EncapsulatePoint(c.Position)
	t.Bounds = bnd
	return t
}

// IsDeleted reports whether the carver has pruned this triangle.
func (t *Triangle) IsDeleted() bool {
	return t.isDeleted.Load()
}

// MarkDeleted sets IsDeleted, returning true iff this call was the one that
// transitioned it from false to true. Concurrent carver workers may race
// here; CompareAndSwap makes exactly one of them the "first to delete".
func (t *Triangle) MarkDeleted() bool {
	return t.isDeleted.CompareAndSwap(false, true)
}

// NeighborSharingEdge returns the slot index k such that t.Neighbors[k] == of,
// or -1 if of is nil or not a neighbor of t.
func (t *Triangle) NeighborSharingEdge(of *Triangle) int {
	if of == nil {
		return -1
	}
	for k, n := range t.Neighbors {
		if n == of {
			return k
		}
	}
	return -1
}

// SharesVertex reports whether t and o have any vertex handle in common.
func (t *Triangle) SharesVertex(o *Triangle) bool {
	for _, v := range [3]*Vertex{t.A, t.B, t.C} {
		if v == o.A || v == o.B || v == o.C {
			return true
		}
	}
	return false
}
