// Package pointindex implements the incremental point index: a uniform grid
// that enforces a minimum 3D spacing between accepted points while points
// stream in one at a time.
package pointindex

import (
	"encoding/binary"
	"math"

	farm "github.com/dgryski/go-farm"
	"github.com/fenwicklabs/terramesh/geo"
)

// cellSpacingFactor is the ratio between a grid cell's edge length and
// MinMergeDistance. At 4x, any point within MinMergeDistance of a candidate
// falls within the candidate's own cell or one of its 26 neighbors, so a
// 3x3x3 neighborhood search around a candidate's cell is exhaustive.
const cellSpacingFactor = 4

// cellKey identifies a grid cell by its integer XYZ coordinates.
type cellKey struct {
	x, y, z int64
}

// Index is a uniform-grid spatial index that deduplicates candidate points
// within MinMergeDistance of an already-accepted point. It is not safe for
// concurrent use; the streaming runner serializes all access behind a single
// mutex (see package ingest).
type Index struct {
	minMergeDistance        float64
	minMergeDistanceSquared float64
	cellSize                float64

	points []*geo.Vertex
	cells  map[uint64][]*geo.Vertex
}

// New returns an empty Index enforcing minMergeDistance between accepted
// points.
func New(minMergeDistance float64) *Index {
	return &Index{
		minMergeDistance:        minMergeDistance,
		minMergeDistanceSquared: minMergeDistance * minMergeDistance,
		cellSize:                cellSpacingFactor * minMergeDistance,
		cells:                   make(map[uint64][]*geo.Vertex),
	}
}

// NewFromPoints bulk-constructs an Index from a list of points that already
// satisfy the minimum spacing invariant; no distance checks are performed.
func NewFromPoints(minMergeDistance float64, points []*geo.Vertex) *Index {
	idx := New(minMergeDistance)
	idx.points = append(idx.points, points...)
	for _, p := range points {
		k := idx.hashCell(idx.cellOf(p.Position))
		idx.cells[k] = append(idx.cells[k], p)
	}
	return idx
}

// Points returns the master list of accepted points, in acceptance order.
func (idx *Index) Points() []*geo.Vertex {
	return idx.points
}

// Len returns the number of accepted points.
func (idx *Index) Len() int {
	return len(idx.points)
}

func (idx *Index) cellOf(p geo.Vec3) cellKey {
	return cellKey{
		x: int64(math.Floor(p.X / idx.cellSize)),
		y: int64(math.Floor(p.Y / idx.cellSize)),
		z: int64(math.Floor(p.Z / idx.cellSize)),
	}
}

// hashCell combines a cell's coordinates into a single map key via
// FarmHash-64, in place of a 3-field struct key, to keep the cell map's
// bucket lookups to a single comparison.
func (idx *Index) hashCell(k cellKey) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(k.x))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(k.y))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(k.z))
	return farm.Hash64WithSeed(buf[:], 0)
}

// TryAdd attempts to accept candidate into the index. It is rejected if any
// already-accepted point lies within MinMergeDistance in 3D; ties are
// resolved first-seen-wins. Returns true iff candidate was accepted.
func (idx *Index) TryAdd(candidate *geo.Vertex) bool {
	center := idx.cellOf(candidate.Position)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := idx.hashCell(cellKey{center.x + dx, center.y + dy, center.z + dz})
				for _, existing := range idx.cells[k] {
					if existing.Position.DistanceSquared(candidate.Position) < idx.minMergeDistanceSquared {
						return false
					}
				}
			}
		}
	}

	k := idx.hashCell(center)
	idx.cells[k] = append(idx.cells[k], candidate)
	idx.points = append(idx.points, candidate)
	return true
}

// AddRange runs TryAdd over batch sequentially, returning the count of
// accepted points.
func (idx *Index) AddRange(batch []*geo.Vertex) int {
	accepted := 0
	for _, candidate := range batch {
		if idx.TryAdd(candidate) {
			accepted++
		}
	}
	return accepted
}
