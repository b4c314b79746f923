//go:build windows

package filestamp

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// Created returns the creation time of path.
func Created(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, fmt.Errorf("no creation time for %s", path)
	}
	return time.Unix(0, data.CreationTime.Nanoseconds()), nil
}
