// Package quadtree builds a 2D (XZ) spatial index over triangles, with Y
// passed through unexamined, used by the space carver to cull ray-triangle
// candidates.
package quadtree

import (
	"github.com/fenwicklabs/terramesh/geo"
	"github.com/grailbio/base/traverse"
)

// maxDepth and leafTarget bound subdivision: a node stops splitting once it
// holds at most leafTarget triangles or has reached maxDepth.
const (
	maxDepth   = 8
	leafTarget = 50

	// parallelDepthThreshold is the depth below which a node's four children
	// are built concurrently (one task per child); at this depth or deeper
	// there just isn't enough work per child to be worth the fan-out.
	parallelDepthThreshold = 3
)

// Node is either an internal node with exactly four children (SW, SE, NW,
// NE, splitting XZ at the node's midpoint and inheriting the full Y range)
// or a leaf holding the triangles assigned to it. A triangle whose bounds
// straddle a split is assigned to every child it overlaps.
type Node struct {
	Bounds   geo.Bounds
	depth    int
	children [4]*Node
	leaf     []*geo.Triangle
}

func (n *Node) isLeaf() bool {
	return n.children[0] == nil && n.children[1] == nil && n.children[2] == nil && n.children[3] == nil
}

// Build constructs a quadtree over triangles. The root bounds are the union
// of every triangle's own Bounds (so the Y range covers the full dataset,
// inherited unchanged by every descendant).
func Build(triangles []*geo.Triangle) *Node {
	root := geo.EmptyBounds()
	for _, t := range triangles {
		root.MinX = minf(root.MinX, t.Bounds.MinX)
		root.MinY = minf(root.MinY, t.Bounds.MinY)
		root.MinZ = minf(root.MinZ, t.Bounds.MinZ)
		root.MaxX = maxf(root.MaxX, t.Bounds.MaxX)
		root.MaxY = maxf(root.MaxY, t.Bounds.MaxY)
		root.MaxZ = maxf(root.MaxZ, t.Bounds.MaxZ)
	}
	return buildNode(root, triangles, 0)
}

func buildNode(bounds geo.Bounds, triangles []*geo.Triangle, depth int) *Node {
	if len(triangles) <= leafTarget || depth >= maxDepth {
		return &Node{Bounds: bounds, depth: depth, leaf: triangles}
	}

	midX, midZ := bounds.MidX(), bounds.MidZ()
	childBounds := [4]geo.Bounds{
		{MinX: bounds.MinX, MaxX: midX, MinZ: bounds.MinZ, MaxZ: midZ, MinY: bounds.MinY, MaxY: bounds.MaxY}, // SW
		{MinX: midX, MaxX: bounds.MaxX, MinZ: bounds.MinZ, MaxZ: midZ, MinY: bounds.MinY, MaxY: bounds.MaxY}, // SE
		{MinX: bounds.MinX, MaxX: midX, MinZ: midZ, MaxZ: bounds.MaxZ, MinY: bounds.MinY, MaxY: bounds.MaxY}, // NW
		{MinX: midX, MaxX: bounds.MaxX, MinZ: midZ, MaxZ: bounds.MaxZ, MinY: bounds.MinY, MaxY: bounds.MaxY}, // NE
	}

	childTriangles := [4][]*geo.Triangle{}
	for _, t := range triangles {
		for i := 0; i < 4; i++ {
			if t.Bounds.IntersectsXZ(childBounds[i]) {
				childTriangles[i] = append(childTriangles[i], t)
			}
		}
	}

	node := &Node{Bounds: bounds, depth: depth}
	build := func(i int) error {
		node.children[i] = buildNode(childBounds[i], childTriangles[i], depth+1)
		return nil
	}

	if depth < parallelDepthThreshold {
		// traverse.Each never returns an error here since build never
		// returns one; the error return exists for call sites that can fail.
		_ = traverse.Each(4, build)
	} else {
		for i := 0; i < 4; i++ {
			_ = build(i)
		}
	}
	return node
}

// Query returns every indexed triangle whose Bounds intersects q in XZ,
// deduplicated (a triangle straddling multiple leaves is returned once).
// Triangles already marked deleted are returned too; Query does not check
// the deletion flag.
func Query(root *Node, q geo.Bounds) []*geo.Triangle {
	if root == nil {
		return nil
	}
	seen := make(map[*geo.Triangle]struct{})
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.Bounds.IntersectsXZ(q) {
			continue
		}
		if n.isLeaf() {
			for _, t := range n.leaf {
				if t.Bounds.IntersectsXZ(q) {
					seen[t] = struct{}{}
				}
			}
			continue
		}
		for _, c := range n.children {
			if c != nil {
				stack = append(stack, c)
			}
		}
	}
	out := make([]*geo.Triangle, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
