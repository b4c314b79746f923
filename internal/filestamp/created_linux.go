//go:build linux

package filestamp

import (
	"time"

	"golang.org/x/sys/unix"
)

// Created returns the birth time of path when the filesystem records one,
// otherwise its status change time.
func Created(path string) (time.Time, error) {
	var st unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME|unix.STATX_CTIME, &st); err != nil {
		return time.Time{}, err
	}
	if st.Mask&unix.STATX_BTIME != 0 && st.Btime.Sec != 0 {
		return time.Unix(st.Btime.Sec, int64(st.Btime.Nsec)), nil
	}
	return time.Unix(st.Ctime.Sec, int64(st.Ctime.Nsec)), nil
}
