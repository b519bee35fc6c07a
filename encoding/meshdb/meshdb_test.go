package meshdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenwicklabs/terramesh/geo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDatabase() *Database {
	return &Database{
		Points: []*geo.Vertex{
			{Position: geo.Vec3{X: 1, Y: 2, Z: 3}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}},
			{Position: geo.Vec3{X: -4, Y: 0.5, Z: 8}, Normal: geo.Vec3{X: 1, Y: 0, Z: 0}},
		},
		Rays: []geo.Ray{
			{Start: geo.Vec3{X: 0, Y: 0, Z: 0}, End: geo.Vec3{X: 10, Y: 0, Z: 0}},
		},
	}
}

// TestRoundTrip covers property 3: load(save(P, R)) == (P, R) bitwise.
func TestRoundTrip(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "mesh.db")

	db := sampleDatabase()
	require.NoError(t, Save(path, db))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got.Points, len(db.Points))
	for i := range db.Points {
		assert.Equal(t, db.Points[i].Position, got.Points[i].Position)
		assert.Equal(t, db.Points[i].Normal, got.Points[i].Normal)
	}
	require.Len(t, got.Rays, len(db.Rays))
	for i := range db.Rays {
		assert.Equal(t, db.Rays[i], got.Rays[i])
	}
}

func TestLoadMissingFileIsEmptyNotError(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	got, err := Load(context.Background(), filepath.Join(dir, "does-not-exist.db"))
	require.NoError(t, err)
	assert.Empty(t, got.Points)
	assert.Empty(t, got.Rays)
}

func TestDecodeWrongVersionFails(t *testing.T) {
	db := sampleDatabase()
	raw := Encode(db)
	raw[0] = 9 // corrupt the low byte of the little-endian version field

	_, err := Decode(raw)
	require.Error(t, err)
	e, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, errors.Invalid, e.Kind)
}

func TestDecodeTruncatedFails(t *testing.T) {
	db := sampleDatabase()
	raw := Encode(db)
	_, err := Decode(raw[:len(raw)-4])
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "mesh.db")

	db := sampleDatabase()
	require.NoError(t, SaveSnapshot(path, db))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got.Points, len(db.Points))
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	raw := Encode(sampleDatabase())
	assert.Equal(t, Fingerprint(raw), Fingerprint(raw))
}

func TestEmptyDatabaseRoundTrip(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "empty.db")

	require.NoError(t, Save(path, &Database{}))
	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, got.Points)
	assert.Empty(t, got.Rays)
}
