// Package ingest streams a raycast log into the accumulated point/ray
// database: a file tailer (tailer.go) feeding a record parser (record.go)
// feeding the point index and a debounced, atomically-saved database.
package ingest

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fenwicklabs/terramesh/encoding/meshdb"
	"github.com/fenwicklabs/terramesh/geo"
	"github.com/fenwicklabs/terramesh/pointindex"
	"github.com/grailbio/base/log"
)

const (
	batchMaxRecords = 500
	batchMaxWait    = 200 * time.Millisecond

	saverInterval       = 500 * time.Millisecond
	mutationQuietPeriod = 1 * time.Second
	minSaveInterval     = 5 * time.Second
	maxSaveInterval     = 30 * time.Second
)

// Stats summarizes one Runner invocation for the caller to report.
type Stats struct {
	ProcessedLines    int64
	BaselineFileLines int64
	Points            int
	Rays              int
	Saves             int64
}

// Runner composes the tailer, parser, point index, and database save behind
// a single mutex, as three concurrent roles: the tailer goroutine (started
// by Tailer.Run), a consumer that batches and applies accepted records, and
// a saver that debounces persistence.
type Runner struct {
	tailer           *Tailer
	dbPath           string
	minMergeDistance float64

	mu                sync.Mutex
	index             *pointindex.Index
	rays              []geo.Ray
	dirty             bool
	lastMutationTime  time.Time
	lastSaveTime      time.Time
	saves             int64
	processedLines    int64
	baselineFileLines int64
}

// NewRunner returns a Runner that tails path (see New for startAtEnd) and
// persists the accumulated database at dbPath.
func NewRunner(path string, startAtEnd bool, dbPath string, minMergeDistance float64) *Runner {
	return &Runner{
		tailer:           New(path, startAtEnd),
		dbPath:           dbPath,
		minMergeDistance: minMergeDistance,
	}
}

// Run loads dbPath (if present), then tails until ctx is canceled. On
// cancellation it drains whatever the tailer already queued, saves once
// more, and returns totals.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	db, err := meshdb.Load(ctx, r.dbPath)
	if err != nil {
		return Stats{}, err
	}
	r.index = pointindex.NewFromPoints(r.minMergeDistance, db.Points)
	r.rays = append([]geo.Ray(nil), db.Rays...)
	r.lastSaveTime = time.Now()

	events := r.tailer.Run(ctx)

	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		r.runSaver(ctx)
	}()

	r.runConsumer(events)
	<-saverDone

	if err := r.save(); err != nil {
		return r.statsLocked(), err
	}

	stats := r.statsLocked()
	log.Printf("ingest: done: %d lines, %d points, %d rays, %d save(s)",
		stats.ProcessedLines, stats.Points, stats.Rays, stats.Saves)
	return stats, nil
}

func (r *Runner) statsLocked() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ProcessedLines:    r.processedLines,
		BaselineFileLines: r.baselineFileLines,
		Points:            r.index.Len(),
		Rays:              len(r.rays),
		Saves:             r.saves,
	}
}

// runConsumer reads tailer Events until the channel closes (which happens
// once the tailer has observed ctx's cancellation and flushed its final
// fragment), batching accepted records and applying them under the mutex.
func (r *Runner) runConsumer(events <-chan Event) {
	var hitBatch []*geo.Vertex
	var missBatch []geo.Ray

	flush := func() {
		if len(hitBatch) == 0 && len(missBatch) == 0 {
			return
		}
		r.apply(hitBatch, missBatch)
		hitBatch = hitBatch[:0]
		missBatch = missBatch[:0]
	}

	ticker := time.NewTicker(batchMaxWait)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				flush()
				return
			}
			switch ev.Kind {
			case EventReset:
				flush()
				r.resetProgress(ev.Reason)
			case EventLine:
				r.mu.Lock()
				r.processedLines++
				r.mu.Unlock()
				rec, ok := Parse(ev.Line)
				if !ok {
					continue
				}
				if rec.Hit != nil {
					hitBatch = append(hitBatch, rec.Hit)
				}
				if rec.Miss != nil {
					missBatch = append(missBatch, *rec.Miss)
				}
				if len(hitBatch)+len(missBatch) >= batchMaxRecords {
					flush()
				}
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Runner) resetProgress(reason ResetReason) {
	r.mu.Lock()
	r.processedLines = 0
	r.mu.Unlock()
	baseline := countLines(r.tailer.path)
	r.mu.Lock()
	r.baselineFileLines = baseline
	r.mu.Unlock()
	log.Printf("ingest: reset (%s), baseline %d lines", reason, baseline)
}

// apply accepts hits into the point index and appends misses to the master
// ray list, marking the database dirty for the saver.
func (r *Runner) apply(hits []*geo.Vertex, misses []geo.Ray) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accepted := r.index.AddRange(hits)
	r.rays = append(r.rays, misses...)
	r.dirty = true
	r.lastMutationTime = time.Now()
	log.Debug.Printf("ingest: applied batch: %d/%d hits accepted, %d misses", accepted, len(hits), len(misses))
}

// runSaver polls at saverInterval, triggering a debounced save once the
// database has been quiet for mutationQuietPeriod and at least
// minSaveInterval has passed since the last save, or unconditionally once
// maxSaveInterval has elapsed, whichever comes first.
func (r *Runner) runSaver(ctx context.Context) {
	ticker := time.NewTicker(saverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			now := time.Now()
			sinceMutation := now.Sub(r.lastMutationTime)
			sinceSave := now.Sub(r.lastSaveTime)
			due := (r.dirty && sinceMutation >= mutationQuietPeriod && sinceSave >= minSaveInterval) ||
				sinceSave >= maxSaveInterval
			r.mu.Unlock()
			if !due {
				continue
			}
			if err := r.save(); err != nil {
				log.Error.Printf("ingest: save: %v", err)
			}
		}
	}
}

// save snapshots the current index/rays under the mutex, then writes it to
// disk without holding the lock.
func (r *Runner) save() error {
	r.mu.Lock()
	db := &meshdb.Database{Points: r.index.Points(), Rays: r.rays}
	r.mu.Unlock()

	if err := meshdb.Save(r.dbPath, db); err != nil {
		return err
	}

	r.mu.Lock()
	r.dirty = false
	r.lastSaveTime = time.Now()
	r.saves++
	r.mu.Unlock()
	return nil
}

// countLines approximates a file's line count by scanning for '\n', adding
// one more if the file is non-empty and doesn't end on a newline. It is
// used only for progress reporting after a tailer reset, so a transient
// read error is reported as zero rather than propagated.
func countLines(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	var count int64
	var lastByte byte
	var sawAny bool
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sawAny = true
			for _, b := range buf[:n] {
				if b == '\n' {
					count++
				}
			}
			lastByte = buf[n-1]
		}
		if err != nil {
			break
		}
	}
	if sawAny && lastByte != '\n' {
		count++
	}
	return count
}
