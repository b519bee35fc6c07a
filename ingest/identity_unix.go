//go:build linux || darwin

package ingest

import (
	"os"
	"syscall"
)

// fileIdentity returns the inode number as a stable per-file token, or 0 if
// the platform-specific stat info isn't available.
func fileIdentity(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
