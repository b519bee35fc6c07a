// Package delaunay incrementally triangulates the XZ projection of a point
// set using Bowyer-Watson cavity retriangulation with edge-walk point
// location and maintained neighbor adjacency. Y is carried through on every
// vertex but never examined by orientation or circumcircle tests: the result
// is a 2.5D surface, not a full 3D tetrahedralization.
package delaunay

import (
	"math"
	"sort"

	"github.com/fenwicklabs/terramesh/geo"
	"github.com/grailbio/base/log"
)

// maxWalkHops bounds the edge-walk point-location search. A walk that
// exceeds this is presumed to have hit a cycle or a pathological mesh and
// falls back to a linear circumcircle scan instead.
const maxWalkHops = 5000

// Dedup cell size and hash constants for the triangulator's own input
// pre-pass, independent of pointindex's 3D spacing grid. These match the
// published constants exactly: the hash combines two floored-coordinate
// cells with XOR and has no collision resolution, so two distinct points
// that hash to the same key will have the second one dropped. This is a
// deliberate open question in the source design, not strengthened here -
// see DESIGN.md.
const (
	dedupCellSize = 0.01
	dedupK1       = 73856093
	dedupK2       = 19349663
)

// Triangulate builds a Delaunay triangulation of the XZ projection of
// points. The returned triangles' vertex set is exactly the de-duplicated
// input (no Steiner points are added, no interior point is silently
// dropped beyond the documented hash pre-pass), and their union covers the
// convex hull of the input in XZ. Points within 1cm of each other in XZ
// (by the pre-pass grid) collapse to whichever was seen first.
func Triangulate(points []*geo.Vertex) []*geo.Triangle {
	survivors := dedupAndSortByX(points)
	if len(survivors) < 3 {
		log.Debug.Printf("delaunay: %d survivor point(s), nothing to triangulate", len(survivors))
		return nil
	}

	bld := newBuilder()
	bld.setupSuperTriangle(survivors)
	for _, p := range survivors {
		bld.insertPoint(p)
	}
	return bld.finish()
}

func dedupAndSortByX(points []*geo.Vertex) []*geo.Vertex {
	seen := make(map[int64]bool, len(points))
	survivors := make([]*geo.Vertex, 0, len(points))
	for _, p := range points {
		gx := int64(math.Floor(p.Position.X / dedupCellSize))
		gz := int64(math.Floor(p.Position.Z / dedupCellSize))
		key := (gx * dedupK1) ^ (gz * dedupK2)
		if seen[key] {
			continue
		}
		seen[key] = true
		survivors = append(survivors, p)
	}
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].Position.X < survivors[j].Position.X
	})
	return survivors
}

// setupSuperTriangle bootstraps the arena with one triangle large enough to
// enclose every survivor, per the published super-triangle construction.
func (bld *builder) setupSuperTriangle(points []*geo.Vertex) {
	bb := geo.EmptyBounds()
	for _, p := range points {
		bb = bb.EncapsulatePoint(p.Position)
	}
	midX, midZ := bb.MidX(), bb.MidZ()
	width := bb.MaxX - bb.MinX
	depth := bb.MaxZ - bb.MinZ
	m := math.Max(width, depth)
	if m <= 0 {
		m = 1
	}

	v1 := &geo.Vertex{Position: geo.Vec3{X: midX - 20*m, Y: 0, Z: midZ - m}}
	v2 := &geo.Vertex{Position: geo.Vec3{X: midX, Y: 0, Z: midZ + 20*m}}
	v3 := &geo.Vertex{Position: geo.Vec3{X: midX + 20*m, Y: 0, Z: midZ - m}}
	bld.super = [3]*geo.Vertex{v1, v2, v3}
	bld.seed = bld.alloc(v1, v2, v3)
}

// locate walks the adjacency graph from start toward p, crossing whichever
// of the triangle's three edges p lies to the right of. It stops and
// returns the current triangle either when p is inside it (not to the
// right of any edge) or when the edge it would cross is a boundary (nil
// neighbor). Returns nullHandle if the walk exceeds maxWalkHops.
func (bld *builder) locate(start handle, p geo.Vec3) handle {
	cur := start
	for hops := 0; hops < maxWalkHops; hops++ {
		n := bld.node(cur)
		a, b, c := n.a.Position, n.b.Position, n.c.Position

		if orient2D(b, c, p) > 0 {
			if n.neighbors[0] == nullHandle {
				return cur
			}
			cur = n.neighbors[0]
			continue
		}
		if orient2D(c, a, p) > 0 {
			if n.neighbors[1] == nullHandle {
				return cur
			}
			cur = n.neighbors[1]
			continue
		}
		if orient2D(a, b, p) > 0 {
			if n.neighbors[2] == nullHandle {
				return cur
			}
			cur = n.neighbors[2]
			continue
		}
		return cur
	}
	return nullHandle
}

// linearScanForCavitySeed is the fallback used when the walk overflows or
// lands somewhere whose circumcircle doesn't actually contain p: scan every
// live triangle for one that does.
func (bld *builder) linearScanForCavitySeed(p geo.Vec3) handle {
	for h := handle(1); h < handle(len(bld.nodes)); h++ {
		n := bld.node(h)
		if n.isBad {
			continue
		}
		if circumcircleContainsXZ(n.a.Position, n.b.Position, n.c.Position, p) {
			return h
		}
	}
	return nullHandle
}

type boundaryEdge struct {
	u, v   *geo.Vertex
	outer  handle
	oldTri handle
}

// insertPoint runs one Bowyer-Watson step: locate a seed triangle whose
// circumcircle contains p, flood-fill the cavity, retriangulate its
// boundary as a fan around p, and stitch the new triangles' shared edges.
// If no triangle's circumcircle contains p (should only happen for exact
// duplicates the pre-pass missed), p is silently skipped.
func (bld *builder) insertPoint(p *geo.Vertex) {
	cavitySeed := nullHandle
	if located := bld.locate(bld.seed, p.Position); located != nullHandle {
		n := bld.node(located)
		if circumcircleContainsXZ(n.a.Position, n.b.Position, n.c.Position, p.Position) {
			cavitySeed = located
		}
	}
	if cavitySeed == nullHandle {
		cavitySeed = bld.linearScanForCavitySeed(p.Position)
	}
	if cavitySeed == nullHandle {
		log.Debug.Printf("delaunay: no triangle's circumcircle contains %+v, skipping", p.Position)
		return
	}

	cavity := bld.floodCavity(cavitySeed, p.Position)
	boundary := bld.extractBoundary(cavity)
	newTris := bld.retriangulate(boundary, p)
	stitchNewTriangles(bld, newTris)

	if len(newTris) > 0 {
		bld.seed = newTris[0]
	}
}

func (bld *builder) floodCavity(seed handle, p geo.Vec3) []handle {
	bld.node(seed).isBad = true
	cavity := []handle{seed}
	queue := []handle{seed}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		n := bld.node(h)
		for i := 0; i < 3; i++ {
			nb := n.neighbors[i]
			if nb == nullHandle {
				continue
			}
			nbNode := bld.node(nb)
			if nbNode.isBad {
				continue
			}
			if circumcircleContainsXZ(nbNode.a.Position, nbNode.b.Position, nbNode.c.Position, p) {
				nbNode.isBad = true
				cavity = append(cavity, nb)
				queue = append(queue, nb)
			}
		}
	}
	return cavity
}

// extractBoundary walks every cavity triangle's three edges; an edge
// belongs to the boundary polygon iff its outer neighbor is absent or was
// not swept into the cavity.
func (bld *builder) extractBoundary(cavity []handle) []boundaryEdge {
	var boundary []boundaryEdge
	for _, h := range cavity {
		n := bld.node(h)
		edgeVerts := [3][2]*geo.Vertex{
			{n.b, n.c}, // neighbors[0] borders edge BC
			{n.c, n.a}, // neighbors[1] borders edge CA
			{n.a, n.b}, // neighbors[2] borders edge AB
		}
		for i := 0; i < 3; i++ {
			outer := n.neighbors[i]
			if outer == nullHandle || !bld.node(outer).isBad {
				boundary = append(boundary, boundaryEdge{
					u: edgeVerts[i][0], v: edgeVerts[i][1], outer: outer, oldTri: h,
				})
			}
		}
	}
	return boundary
}

// retriangulate fans a new triangle (u, v, p) off each boundary edge and
// rewires the outer-facing neighbor, if any, to point at it.
func (bld *builder) retriangulate(boundary []boundaryEdge, p *geo.Vertex) []handle {
	newTris := make([]handle, 0, len(boundary))
	for _, be := range boundary {
		nh := bld.alloc(be.u, be.v, p)
		bld.node(nh).neighbors[2] = be.outer // edge uv is opposite vertex p
		if be.outer != nullHandle {
			outerNode := bld.node(be.outer)
			for k := 0; k < 3; k++ {
				if outerNode.neighbors[k] == be.oldTri {
					outerNode.neighbors[k] = nh
					break
				}
			}
		}
		newTris = append(newTris, nh)
	}
	return newTris
}

// stitchNewTriangles links each pair of this point's new triangles that
// share the edge p-v: N1 = (u1, v1, p) and N2 = (u2, v2, p) are adjacent
// across that edge iff v1 == u2, in which case it's opposite vertex p on
// neither (it's the p-adjacent edge, index 0 on N1 and index 1 on N2 by the
// neighbor-index convention: neighbors[0] borders BC, i.e. v-p on N1;
// neighbors[1] borders CA, i.e. p-u on N2).
func stitchNewTriangles(bld *builder, newTris []handle) {
	for i := range newTris {
		ni := bld.node(newTris[i])
		for j := range newTris {
			if i == j {
				continue
			}
			nj := bld.node(newTris[j])
			if ni.b == nj.a {
				ni.neighbors[0] = newTris[j]
				nj.neighbors[1] = newTris[i]
			}
		}
	}
}

// finish discards cavity-marked and super-triangle-touching triangles and
// materializes the survivors as geo.Triangle values with real pointer-linked
// adjacency.
func (bld *builder) finish() []*geo.Triangle {
	survivorHandles := make([]handle, 0, len(bld.nodes))
	for h := handle(1); h < handle(len(bld.nodes)); h++ {
		n := bld.node(h)
		if n.isBad || bld.sharesSuperVertex(n) {
			continue
		}
		survivorHandles = append(survivorHandles, h)
	}

	byHandle := make(map[handle]*geo.Triangle, len(survivorHandles))
	result := make([]*geo.Triangle, 0, len(survivorHandles))
	for _, h := range survivorHandles {
		n := bld.node(h)
		gt := geo.NewTriangle(n.a, n.b, n.c)
		byHandle[h] = gt
		result = append(result, gt)
	}
	for _, h := range survivorHandles {
		n := bld.node(h)
		gt := byHandle[h]
		for i := 0; i < 3; i++ {
			nb := n.neighbors[i]
			if nb == nullHandle {
				continue
			}
			if gtN, ok := byHandle[nb]; ok {
				gt.Neighbors[i] = gtN
			}
		}
	}
	vertices := make(map[*geo.Vertex]struct{})
	for _, gt := range result {
		vertices[gt.A], vertices[gt.B], vertices[gt.C] = struct{}{}, struct{}{}, struct{}{}
	}
	log.Printf("delaunay: triangulated %d points into %d triangles", len(vertices), len(result))
	return result
}
