// Package carve prunes triangles contradicted by miss rays: segments known,
// from raycasting, to pass through empty space.
package carve

import (
	"sync/atomic"

	"github.com/fenwicklabs/terramesh/geo"
	"github.com/fenwicklabs/terramesh/quadtree"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// endBuffer excludes the 5cm nearest each ray endpoint from counting as an
// interior hit, so a ray whose endpoint sits on a surface doesn't delete the
// very geometry it's touching.
const endBuffer = 0.05

// Carve runs every ray against the candidates root's quadtree yields for
// that ray's bounding box, marking each intersected triangle deleted.
// Rays are processed in parallel; multiple rays may race to delete the same
// triangle, and Triangle.MarkDeleted resolves that race as first-writer-
// wins. Carve returns the number of triangles this call newly deleted.
func Carve(root *quadtree.Node, rays []geo.Ray) int64 {
	var deleted int64
	_ = traverse.Each(len(rays), func(i int) error {
		r := rays[i]
		length := r.Length()
		if length == 0 {
			return nil
		}
		d := r.Direction()

		for _, tri := range quadtree.Query(root, r.Bounds()) {
			if tri.IsDeleted() {
				continue
			}
			hit := geo.IntersectTriangle(r.Start, d, tri.A.Position, tri.B.Position, tri.C.Position)
			if !hit.Hit {
				continue
			}
			if hit.T > endBuffer && hit.T < length-endBuffer {
				if tri.MarkDeleted() {
					atomic.AddInt64(&deleted, 1)
				}
			}
		}
		return nil
	})
	log.Printf("carve: %d ray(s) deleted %d triangle(s)", len(rays), deleted)
	return deleted
}

// Survivors returns the subset of triangles not marked deleted.
func Survivors(triangles []*geo.Triangle) []*geo.Triangle {
	out := make([]*geo.Triangle, 0, len(triangles))
	for _, t := range triangles {
		if !t.IsDeleted() {
			out = append(out, t)
		}
	}
	return out
}
