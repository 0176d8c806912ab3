//go:build linux

package vault

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// fileTimes returns the modification and birth time of a file. Birth time
// comes from statx; filesystems that do not record it fall back to mtime.
func fileTimes(path string, info fs.FileInfo) (modified, created time.Time) {
	modified = info.ModTime()
	created = modified

	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err != nil {
		return modified, created
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		created = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return modified, created
}
