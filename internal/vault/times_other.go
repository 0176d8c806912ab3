//go:build !darwin && !linux

package vault

import (
	"io/fs"
	"time"
)

// fileTimes returns the modification time twice: the stat call exposed by
// the standard library carries no birth time on this platform.
func fileTimes(_ string, info fs.FileInfo) (modified, created time.Time) {
	modified = info.ModTime()
	return modified, modified
}
