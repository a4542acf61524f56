//go:build linux

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential asks the kernel for aggressive readahead on f. Errors are
// ignored: pipes and some filesystems do not support the hint.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
