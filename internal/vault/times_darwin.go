//go:build darwin

package vault

import (
	"io/fs"
	"syscall"
	"time"
)

// fileTimes returns the modification and birth time of a file.
func fileTimes(_ string, info fs.FileInfo) (modified, created time.Time) {
	modified = info.ModTime()
	created = modified
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		created = time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	}
	return modified, created
}
