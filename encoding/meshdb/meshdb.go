// Package meshdb implements the little-endian binary database format: a
// round-trippable serialization of the accumulated HIT points and MISS rays.
package meshdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"

	"blainsmith.com/go/seahash"
	"github.com/fenwicklabs/terramesh/geo"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Version is the only database version this codec understands.
const Version int32 = 1

// Database is the persisted form of the master point and ray lists.
type Database struct {
	Points []*geo.Vertex
	Rays   []geo.Ray
}

// Load reads path into a Database. A missing file loads as an empty
// Database, not an error, matching the streaming runner's "start fresh"
// behavior on first run. A version mismatch is reported with Kind
// errors.Invalid.
func Load(ctx context.Context, path string) (*Database, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Kind == errors.NotExist {
			return &Database{}, nil
		}
		if os.IsNotExist(err) {
			return &Database{}, nil
		}
		return nil, errors.E(err, "meshdb: open "+path)
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil {
			log.Error.Printf("meshdb: close %s: %v", path, cerr)
		}
	}()

	raw, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "meshdb: read "+path)
	}

	db, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	log.Printf("meshdb: loaded %s (%d points, %d rays, fingerprint %x)",
		path, len(db.Points), len(db.Rays), Fingerprint(raw))
	return db, nil
}

// Decode parses the fixed little-endian layout: int32 version, int32
// pointCount, pointCount*6 float64, int32 rayCount, rayCount*6 float64.
func Decode(raw []byte) (*Database, error) {
	r := bytes.NewReader(raw)

	var version int32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.E(errors.Invalid, "meshdb: truncated header")
	}
	if version != Version {
		return nil, errors.E(errors.Invalid, "meshdb: unsupported version", version)
	}

	var pointCount int32
	if err := binary.Read(r, binary.LittleEndian, &pointCount); err != nil {
		return nil, errors.E(errors.Invalid, "meshdb: truncated point count")
	}
	points := make([]*geo.Vertex, pointCount)
	for i := range points {
		var f [6]float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return nil, errors.E(errors.Invalid, "meshdb: truncated point record")
		}
		points[i] = &geo.Vertex{
			Position: geo.Vec3{X: f[0], Y: f[1], Z: f[2]},
			Normal:   geo.Vec3{X: f[3], Y: f[4], Z: f[5]},
		}
	}

	var rayCount int32
	if err := binary.Read(r, binary.LittleEndian, &rayCount); err != nil {
		return nil, errors.E(errors.Invalid, "meshdb: truncated ray count")
	}
	rays := make([]geo.Ray, rayCount)
	for i := range rays {
		var f [6]float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return nil, errors.E(errors.Invalid, "meshdb: truncated ray record")
		}
		rays[i] = geo.Ray{
			Start: geo.Vec3{X: f[0], Y: f[1], Z: f[2]},
			End:   geo.Vec3{X: f[3], Y: f[4], Z: f[5]},
		}
	}

	return &Database{Points: points, Rays: rays}, nil
}

// Encode serializes db into the fixed little-endian layout.
func Encode(db *Database) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(8 + len(db.Points)*48 + 4 + len(db.Rays)*48)

	binary.Write(buf, binary.LittleEndian, Version)
	binary.Write(buf, binary.LittleEndian, int32(len(db.Points)))
	for _, p := range db.Points {
		binary.Write(buf, binary.LittleEndian, [6]float64{
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Normal.X, p.Normal.Y, p.Normal.Z,
		})
	}
	binary.Write(buf, binary.LittleEndian, int32(len(db.Rays)))
	for _, r := range db.Rays {
		binary.Write(buf, binary.LittleEndian, [6]float64{
			r.Start.X, r.Start.Y, r.Start.Z,
			r.End.X, r.End.Y, r.End.Z,
		})
	}
	return buf.Bytes()
}

// Save atomically persists db to path: the full encoding is written to
// path+".tmp", then renamed over path in one filesystem operation so no
// concurrent reader ever observes a truncated file. If the rename fails
// (e.g. a stale path left by a crashed process on a filesystem that
// disallows replacing), Save falls back to removing the destination first
// and renaming again, best effort.
//
// Save always targets the local filesystem: atomicity is a local rename
// guarantee that remote object stores (reachable through Load via
// grailbio/base/file) don't provide.
func Save(path string, db *Database) error {
	raw := Encode(db)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, raw, 0644); err != nil {
		return errors.E(err, "meshdb: write "+tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return errors.E(err, "meshdb: rename "+tmpPath+" over "+path)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return errors.E(err, "meshdb: rename fallback "+tmpPath+" over "+path)
		}
	}
	log.Printf("meshdb: saved %s (%d points, %d rays, fingerprint %x)",
		path, len(db.Points), len(db.Rays), Fingerprint(raw))
	return nil
}

// Fingerprint returns a SeaHash digest of a database's encoded bytes. It is
// logged on save/load for quick drift detection between generations; it is
// never part of the wire format itself.
func Fingerprint(raw []byte) uint64 {
	return seahash.Sum64(raw)
}

// SaveSnapshot writes a snappy-compressed copy of db's encoding to
// path+".snap", alongside (not instead of) the primary Save. It exists for
// crash-recovery/debugging only; Load never reads it.
func SaveSnapshot(path string, db *Database) error {
	raw := Encode(db)
	compressed := snappy.Encode(nil, raw)
	if err := os.WriteFile(path+".snap", compressed, 0644); err != nil {
		return errors.E(err, "meshdb: write snapshot "+path+".snap")
	}
	return nil
}

// LoadSnapshot reads back a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Database, error) {
	compressed, err := os.ReadFile(path + ".snap")
	if err != nil {
		return nil, errors.E(err, "meshdb: read snapshot "+path+".snap")
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.E(errors.Invalid, "meshdb: corrupt snapshot "+path+".snap")
	}
	return Decode(raw)
}
