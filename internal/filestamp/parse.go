// Package filestamp reads timestamps embedded in filenames and applies them
// to file times.
package filestamp

import (
	"errors"
	"regexp"
	"time"
)

// DefaultLayout matches names such as screenshot_20250101_123456.png.
const DefaultLayout = "20060102_150405"

// ErrVerify reports that the modification time did not take.
var ErrVerify = errors.New("file time verification failed")

var stampPattern = regexp.MustCompile(`\d{8}_\d{6}`)

// ParseFilename finds the first YYYYMMDD_HHMMSS run in name and parses it
// with layout in local time. An empty layout uses DefaultLayout.
func ParseFilename(name, layout string) (time.Time, bool) {
	if layout == "" {
		layout = DefaultLayout
	}
	match := stampPattern.FindString(name)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(layout, match, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
