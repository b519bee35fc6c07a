package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwicklabs/terramesh/encoding/meshdb"
	"github.com/fenwicklabs/terramesh/geo"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerIngestsAndPersists(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	logPath := filepath.Join(dir, "log.txt")
	dbPath := filepath.Join(dir, "mesh.db")

	content := "" +
		"HIT|P: 0,0,0|N: 0,1,0\n" +
		"HIT|P: 1,0,0|N: 0,1,0\n" +
		"MISS|S: 0,0,0|E: 1,0,0\n" +
		"garbage line\n" +
		FragmentPrefix + "broken\n" +
		"MISS|S: 2,0,0|E: 3,0,0\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0644))

	r := NewRunner(logPath, false, dbPath, 0.01)
	r.tailer.interval = testInterval

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		stats Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := r.Run(ctx)
		done <- result{stats, err}
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.stats.Points)
	assert.Equal(t, 2, res.stats.Rays)
	assert.EqualValues(t, 6, res.stats.ProcessedLines)
	assert.GreaterOrEqual(t, res.stats.Saves, int64(1))

	db, err := meshdb.Load(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Len(t, db.Points, 2)
	assert.Len(t, db.Rays, 2)
}

func TestRunnerResumesFromExistingDatabase(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	logPath := filepath.Join(dir, "log.txt")
	dbPath := filepath.Join(dir, "mesh.db")

	seed := &meshdb.Database{
		Points: []*geo.Vertex{
			{Position: geo.Vec3{X: -50, Y: 0, Z: -50}, Normal: geo.Vec3{X: 0, Y: 1, Z: 0}},
		},
		Rays: []geo.Ray{
			{Start: geo.Vec3{X: -50, Y: 0, Z: -50}, End: geo.Vec3{X: -40, Y: 0, Z: -50}},
		},
	}
	require.NoError(t, meshdb.Save(dbPath, seed))
	require.NoError(t, os.WriteFile(logPath, []byte("HIT|P: 10,0,10|N: 0,1,0\n"), 0644))

	r := NewRunner(logPath, false, dbPath, 0.01)
	r.tailer.interval = testInterval

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		stats Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := r.Run(ctx)
		done <- result{stats, err}
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.stats.Points, "seeded point plus the newly tailed hit")
	assert.Equal(t, 1, res.stats.Rays, "seeded ray carried forward")
}
