//go:build !linux && !darwin

package ingest

import "os"

// fileIdentity has no portable implementation outside unix; the tailer
// detects only truncation (a shrinking size) when it returns 0, and never
// rotation (see Tailer.poll).
func fileIdentity(info os.FileInfo) uint64 {
	return 0
}
