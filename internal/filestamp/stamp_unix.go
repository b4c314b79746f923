//go:build !windows

package filestamp

import (
	"time"

	"golang.org/x/sys/unix"
)

func setTimes(path string, t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.UtimesNano(path, []unix.Timespec{ts, ts})
}
