package delaunay

import "github.com/fenwicklabs/terramesh/geo"

// handle is an arena index identifying a triangle during construction.
// handle(0) is the null sentinel: arena slot 0 is never allocated to a real
// triangle, so a zero handle always means "no neighbor" or "no triangle
// found". The builder is the sole owner of the arena for the
// duration of one Triangulate call; nothing outside this package ever sees
// a handle.
type handle int32

const nullHandle handle = 0

// arenaNode is one triangle's scratch record during incremental
// construction: the three vertex handles, the three neighbor handles (same
// edge/index convention as geo.Triangle.Neighbors), and isBad, which marks a
// triangle as inside the cavity being retriangulated around the point
// currently being inserted.
type arenaNode struct {
	a, b, c   *geo.Vertex
	neighbors [3]handle
	isBad     bool
}

// builder owns the triangle arena for one Triangulate call.
type builder struct {
	nodes []arenaNode
	super [3]*geo.Vertex
	seed  handle
}

func newBuilder() *builder {
	// Slot 0 is the null sentinel; never dereferenced.
	return &builder{nodes: make([]arenaNode, 1)}
}

func (bld *builder) alloc(a, b, c *geo.Vertex) handle {
	bld.nodes = append(bld.nodes, arenaNode{a: a, b: b, c: c})
	return handle(len(bld.nodes) - 1)
}

func (bld *builder) node(h handle) *arenaNode {
	return &bld.nodes[h]
}

func (bld *builder) sharesSuperVertex(n *arenaNode) bool {
	for _, sv := range bld.super {
		if n.a == sv || n.b == sv || n.c == sv {
			return true
		}
	}
	return false
}
