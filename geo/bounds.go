package geo

import "math"

// Bounds is an axis-aligned box.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// EmptyBounds returns a Bounds primed so that the first EncapsulatePoint
// call establishes its extent correctly.
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1), MinZ: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1), MaxZ: math.Inf(-1),
	}
}

// MidX returns the midpoint of the X extent.
func (b Bounds) MidX() float64 { return (b.MinX + b.MaxX) / 2 }

// MidY returns the midpoint of the Y extent.
func (b Bounds) MidY() float64 { return (b.MinY + b.MaxY) / 2 }

// MidZ returns the midpoint of the Z extent.
func (b Bounds) MidZ() float64 { return (b.MinZ + b.MaxZ) / 2 }

// ContainsPoint reports whether p lies within b, inclusive of the boundary.
func (b Bounds) ContainsPoint(p Vec3) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY &&
		p.Z >= b.MinZ && p.Z <= b.MaxZ
}

// Intersects reports whether b and o overlap, inclusive of shared boundaries.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY &&
		b.MinZ <= o.MaxZ && b.MaxZ >= o.MinZ
}

// IntersectsXZ reports whether the XZ projections of b and o overlap,
// ignoring Y entirely. Used by the quadtree, which partitions XZ only.
func (b Bounds) IntersectsXZ(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinZ <= o.MaxZ && b.MaxZ >= o.MinZ
}

// EncapsulatePoint grows b, if necessary, to contain p.
func (b Bounds) EncapsulatePoint(p Vec3) Bounds {
	if p.X < b.MinX {
		b.MinX = p.X
	}
	if p.Y < b.MinY {
		b.MinY = p.Y
	}
	if p.Z < b.MinZ {
		b.MinZ = p.Z
	}
	if p.X > b.MaxX {
		b.MaxX = p.X
	}
	if p.Y > b.MaxY {
		b.MaxY = p.Y
	}
	if p.Z > b.MaxZ {
		b.MaxZ = p.Z
	}
	return b
}

// ExpandByEpsilon grows b by eps on every face.
func (b Bounds) ExpandByEpsilon(eps float64) Bounds {
	return Bounds{
		MinX: b.MinX - eps, MinY: b.MinY - eps, MinZ: b.MinZ - eps,
		MaxX: b.MaxX + eps, MaxY: b.MaxY + eps, MaxZ: b.MaxZ + eps,
	}
}
