// Command terramesh reconstructs a surface mesh from a streamed raycast
// log: it tails HIT/MISS records into a point/ray database, then
// triangulates and carves a mesh from the accumulated points and rays.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fenwicklabs/terramesh/carve"
	"github.com/fenwicklabs/terramesh/delaunay"
	"github.com/fenwicklabs/terramesh/encoding/meshdb"
	"github.com/fenwicklabs/terramesh/export"
	"github.com/fenwicklabs/terramesh/geo"
	"github.com/fenwicklabs/terramesh/ingest"
	"github.com/fenwicklabs/terramesh/pointindex"
	"github.com/fenwicklabs/terramesh/quadtree"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

// defaultMinMergeDistance is the point-index spacing used by the ingest
// runner and by merge, in the absence of a per-invocation tuning flag: 5cm,
// matching carve's own endBuffer order of magnitude.
const defaultMinMergeDistance = 0.05

var (
	dbFlag    = flag.String("db", "mesh.db", "path to the mesh point/ray database")
	logFlag   = flag.String("log", "", "path to the raycast log file to tail (required unless -nolog)")
	outFlag   = flag.String("out", "", "output mesh path for run; .obj or .glb extension selects the format")
	noLogFlag = flag.Bool("nolog", false, "skip tailing -log; triangulate and carve whatever -db already holds")
)

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run",
		Short: "Tail the log (unless -nolog), ingest, then triangulate, carve, and export -out",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("run takes no arguments, but got %v", argv)
		}
		if *outFlag == "" {
			return fmt.Errorf("run requires -out")
		}
		return runRun()
	})
	return cmd
}

func newCmdUpdate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "update",
		Short: "Tail -log and ingest into -db until interrupted, without exporting a mesh",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("update takes no arguments, but got %v", argv)
		}
		return runUpdate()
	})
	return cmd
}

func newCmdMerge() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "merge",
		Short:    "Merge two databases into a third, deduplicating points against each other",
		ArgsName: "A B out",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("merge takes <A> <B> <out>, but got %v", argv)
		}
		return runMerge(argv[0], argv[1], argv[2])
	})
	return cmd
}

// interruptContext returns a context canceled on SIGINT/SIGTERM, for the
// long-running tail loop in run/update.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(vcontext.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun() error {
	if !*noLogFlag {
		if *logFlag == "" {
			return fmt.Errorf("-log is required unless -nolog")
		}
		ctx, cancel := interruptContext()
		defer cancel()
		r := ingest.NewRunner(*logFlag, true, *dbFlag, defaultMinMergeDistance)
		stats, err := r.Run(ctx)
		if err != nil {
			return errors.E(err, "run: ingest")
		}
		log.Printf("run: ingested %d lines (%d points, %d rays)", stats.ProcessedLines, stats.Points, stats.Rays)
	}

	db, err := meshdb.Load(vcontext.Background(), *dbFlag)
	if err != nil {
		return errors.E(err, "run: load "+*dbFlag)
	}
	triangles := delaunay.Triangulate(db.Points)
	root := quadtree.Build(triangles)
	carve.Carve(root, db.Rays)
	survivors := carve.Survivors(triangles)
	log.Printf("run: triangulated %d points into %d triangles, %d survive carving",
		len(db.Points), len(triangles), len(survivors))

	return exportMesh(survivors, *outFlag)
}

func runUpdate() error {
	if *logFlag == "" {
		return fmt.Errorf("update requires -log")
	}
	ctx, cancel := interruptContext()
	defer cancel()
	r := ingest.NewRunner(*logFlag, true, *dbFlag, defaultMinMergeDistance)
	stats, err := r.Run(ctx)
	if err != nil {
		return errors.E(err, "update: ingest")
	}
	log.Printf("update: ingested %d lines (%d points, %d rays)", stats.ProcessedLines, stats.Points, stats.Rays)
	return nil
}

func runMerge(aPath, bPath, outPath string) error {
	ctx := vcontext.Background()
	a, err := meshdb.Load(ctx, aPath)
	if err != nil {
		return errors.E(err, "merge: load "+aPath)
	}
	b, err := meshdb.Load(ctx, bPath)
	if err != nil {
		return errors.E(err, "merge: load "+bPath)
	}

	idx := pointindex.NewFromPoints(defaultMinMergeDistance, a.Points)
	accepted := idx.AddRange(b.Points)
	rays := append(append([]geo.Ray(nil), a.Rays...), b.Rays...)

	merged := &meshdb.Database{Points: idx.Points(), Rays: rays}
	if err := meshdb.Save(outPath, merged); err != nil {
		return errors.E(err, "merge: save "+outPath)
	}
	log.Printf("merge: %s (%d pts) + %s (%d pts) -> %s: %d/%d new points accepted, %d points, %d rays total",
		aPath, len(a.Points), bPath, len(b.Points), outPath, accepted, len(b.Points), len(merged.Points), len(merged.Rays))
	return nil
}

func exportMesh(triangles []*geo.Triangle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E(err, "export: create "+path)
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(strings.ToLower(path), ".glb"):
		return export.Default.WriteGLB(f, triangles)
	default:
		return export.Default.WriteOBJ(f, triangles)
	}
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:  "terramesh",
		Short: "Reconstructs a surface mesh from streamed raycast samples",
		Children: []*cmdline.Command{
			newCmdRun(),
			newCmdUpdate(),
			newCmdMerge(),
		},
	})
}
