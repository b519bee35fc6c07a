// Package export writes a triangle mesh to the two on-disk mesh formats
// downstream viewers expect: Wavefront OBJ and a minimal binary glTF (GLB)
// container. Neither format needs anything beyond what this module already
// pulls in for the database codec (encoding/binary) plus the standard
// library's own JSON encoder for the GLB JSON chunk — there's no pack
// dependency for 3D interchange formats to reach for instead.
package export

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/fenwicklabs/terramesh/geo"
)

// Writer exports a triangle mesh. Implementations assign Vertex.ID lazily,
// in first-seen order starting at 1, so the same mesh exported twice gets
// stable numbering regardless of what numbering (if any) a caller left on
// the vertices beforehand.
type Writer interface {
	WriteOBJ(w io.Writer, triangles []*geo.Triangle) error
	WriteGLB(w io.Writer, triangles []*geo.Triangle) error
}

// Default is the package's sole Writer implementation; it holds no state.
var Default Writer = writer{}

type writer struct{}

// orderedVertices assigns Vertex.ID to every distinct vertex referenced by
// triangles, in first-seen order starting at 1, and returns them in that
// order.
func orderedVertices(triangles []*geo.Triangle) []*geo.Vertex {
	var ordered []*geo.Vertex
	seen := make(map[*geo.Vertex]bool, len(triangles)*3)
	next := 1
	assign := func(v *geo.Vertex) {
		if seen[v] {
			return
		}
		seen[v] = true
		v.ID = next
		next++
		ordered = append(ordered, v)
	}
	for _, t := range triangles {
		assign(t.A)
		assign(t.B)
		assign(t.C)
	}
	return ordered
}

// WriteOBJ writes textual v/vn/f lines: one v and one vn per distinct
// vertex (in ID order), then one f per triangle referencing them by ID.
func (writer) WriteOBJ(w io.Writer, triangles []*geo.Triangle) error {
	vertices := orderedVertices(triangles)

	bw := bufio.NewWriter(w)
	for _, v := range vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.Position.X, v.Position.Y, v.Position.Z)
	}
	for _, v := range vertices {
		fmt.Fprintf(bw, "vn %g %g %g\n", v.Normal.X, v.Normal.Y, v.Normal.Z)
	}
	for _, t := range triangles {
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", t.A.ID, t.A.ID, t.B.ID, t.B.ID, t.C.ID, t.C.ID)
	}
	return bw.Flush()
}

const (
	glTFFloat        = 5126 // FLOAT
	glTFUnsignedInt  = 5125 // UNSIGNED_INT
	glTFArrayBuffer  = 34962
	glTFElementArray = 34963
)

type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Buffers     []gltfBuffer     `json:"buffers"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Accessors   []gltfAccessor   `json:"accessors"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}
type gltfScene struct {
	Nodes []int `json:"nodes"`
}
type gltfNode struct {
	Mesh int `json:"mesh"`
}
type gltfMesh struct {
	Primitives []gltfPrimitive `json:"primitives"`
}
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
}
type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}
type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target"`
}
type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

// WriteGLB writes a single-mesh, single-primitive binary glTF container:
// a JSON chunk describing a POSITION+NORMAL accessor pair and a uint32
// index accessor, followed by a BIN chunk holding the raw buffers.
func (writer) WriteGLB(w io.Writer, triangles []*geo.Triangle) error {
	vertices := orderedVertices(triangles)

	var positions, normals bytes.Buffer
	min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range vertices {
		binary.Write(&positions, binary.LittleEndian, [3]float32{
			float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z),
		})
		binary.Write(&normals, binary.LittleEndian, [3]float32{
			float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z),
		})
		coords := [3]float64{v.Position.X, v.Position.Y, v.Position.Z}
		for i, c := range coords {
			if c < min[i] {
				min[i] = c
			}
			if c > max[i] {
				max[i] = c
			}
		}
	}

	var indices bytes.Buffer
	for _, t := range triangles {
		binary.Write(&indices, binary.LittleEndian, [3]uint32{
			uint32(t.A.ID - 1), uint32(t.B.ID - 1), uint32(t.C.ID - 1),
		})
	}

	if len(vertices) == 0 {
		min, max = [3]float64{}, [3]float64{}
	}

	posLen := positions.Len()
	normLen := normals.Len()
	idxLen := indices.Len()

	doc := gltfDocument{
		Asset: gltfAsset{Version: "2.0", Generator: "terramesh"},
		Scene: 0,
		Scenes: []gltfScene{
			{Nodes: []int{0}},
		},
		Nodes: []gltfNode{{Mesh: 0}},
		Meshes: []gltfMesh{{
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0, "NORMAL": 1},
				Indices:    2,
			}},
		}},
		Buffers: []gltfBuffer{{ByteLength: posLen + normLen + idxLen}},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: posLen, Target: glTFArrayBuffer},
			{Buffer: 0, ByteOffset: posLen, ByteLength: normLen, Target: glTFArrayBuffer},
			{Buffer: 0, ByteOffset: posLen + normLen, ByteLength: idxLen, Target: glTFElementArray},
		},
		Accessors: []gltfAccessor{
			{BufferView: 0, ComponentType: glTFFloat, Count: len(vertices), Type: "VEC3",
				Min: min[:], Max: max[:]},
			{BufferView: 1, ComponentType: glTFFloat, Count: len(vertices), Type: "VEC3"},
			{BufferView: 2, ComponentType: glTFUnsignedInt, Count: 3 * len(triangles), Type: "SCALAR"},
		},
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	for len(jsonBytes)%4 != 0 {
		jsonBytes = append(jsonBytes, ' ')
	}

	bin := make([]byte, 0, posLen+normLen+idxLen)
	bin = append(bin, positions.Bytes()...)
	bin = append(bin, normals.Bytes()...)
	bin = append(bin, indices.Bytes()...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := 12 + 8 + len(jsonBytes) + 8 + len(bin)

	bw := bufio.NewWriter(w)
	binary.Write(bw, binary.LittleEndian, []byte("glTF"))
	binary.Write(bw, binary.LittleEndian, uint32(2))
	binary.Write(bw, binary.LittleEndian, uint32(total))

	binary.Write(bw, binary.LittleEndian, uint32(len(jsonBytes)))
	binary.Write(bw, binary.LittleEndian, []byte("JSON"))
	bw.Write(jsonBytes)

	binary.Write(bw, binary.LittleEndian, uint32(len(bin)))
	binary.Write(bw, binary.LittleEndian, []byte("BIN\x00"))
	bw.Write(bin)

	return bw.Flush()
}
