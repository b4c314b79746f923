//go:build !linux && !darwin && !windows

package filestamp

import (
	"os"
	"time"
)

// Created falls back to the modification time where no creation time is
// exposed.
func Created(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
