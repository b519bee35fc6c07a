package export

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/fenwicklabs/terramesh/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTriangles() []*geo.Triangle {
	a := &geo.Vertex{Position: geo.Vec3{X: 0, Y: 0, Z: 0}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}}
	b := &geo.Vertex{Position: geo.Vec3{X: 1, Y: 0, Z: 0}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}}
	c := &geo.Vertex{Position: geo.Vec3{X: 0, Y: 0, Z: 1}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}}
	d := &geo.Vertex{Position: geo.Vec3{X: 1, Y: 0, Z: 1}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}}
	return []*geo.Triangle{
		geo.NewTriangle(a, b, c),
		geo.NewTriangle(b, d, c),
	}
}

func TestWriteOBJAssignsSequentialIDs(t *testing.T) {
	triangles := sampleTriangles()
	var buf bytes.Buffer
	require.NoError(t, Default.WriteOBJ(&buf, triangles))

	out := buf.String()
	assert.Equal(t, 4, countPrefix(out, "v "))
	assert.Equal(t, 4, countPrefix(out, "vn "))
	assert.Equal(t, 2, countPrefix(out, "f "))
	assert.Contains(t, out, "f 1//1 2//2 3//3")
	assert.Contains(t, out, "f 2//2 4//4 3//3")

	assert.Equal(t, 1, triangles[0].A.ID)
	assert.Equal(t, 2, triangles[0].B.ID)
	assert.Equal(t, 3, triangles[0].C.ID)
	assert.Equal(t, 4, triangles[1].B.ID)
}

func countPrefix(s, prefix string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestWriteGLBHeaderAndChunks(t *testing.T) {
	triangles := sampleTriangles()
	var buf bytes.Buffer
	require.NoError(t, Default.WriteGLB(&buf, triangles))

	data := buf.Bytes()
	require.GreaterOrEqual(t, len(data), 12)
	assert.Equal(t, "glTF", string(data[0:4]))
	version := binary.LittleEndian.Uint32(data[4:8])
	assert.EqualValues(t, 2, version)
	totalLen := binary.LittleEndian.Uint32(data[8:12])
	assert.EqualValues(t, len(data), totalLen)

	jsonChunkLen := binary.LittleEndian.Uint32(data[12:16])
	assert.Equal(t, "JSON", string(data[16:20]))
	jsonBytes := data[20 : 20+jsonChunkLen]
	assert.Contains(t, string(jsonBytes), `"POSITION":0`)
	assert.Contains(t, string(jsonBytes), `"NORMAL":1`)

	binHeaderOffset := 20 + jsonChunkLen
	binChunkLen := binary.LittleEndian.Uint32(data[binHeaderOffset : binHeaderOffset+4])
	assert.Equal(t, "BIN\x00", string(data[binHeaderOffset+4:binHeaderOffset+8]))
	assert.EqualValues(t, 0, binChunkLen%4, "BIN chunk must be 4-byte aligned")
}

func TestWriteEmptyMeshDoesNotFailOnBounds(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Default.WriteGLB(&buf, nil))
	assert.NoError(t, Default.WriteOBJ(&buf, nil))
}
