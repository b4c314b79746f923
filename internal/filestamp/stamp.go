package filestamp

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Set applies t to the access and modification times of path (and the
// creation time where the platform allows), then checks that the
// modification time landed within one second.
func Set(path string, t time.Time) error {
	if t.IsZero() || t.Unix() <= 0 {
		return errors.New("timestamp must be after the unix epoch")
	}
	if err := setTimes(path, t); err != nil {
		return fmt.Errorf("set times on %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if diff := info.ModTime().Sub(t); diff >= time.Second || diff <= -time.Second {
		return fmt.Errorf("%w: %s has mtime %s, want %s", ErrVerify, path, info.ModTime().Format(time.RFC3339), t.Format(time.RFC3339))
	}
	return nil
}

// FromFilename stamps path with the timestamp embedded in name. It reports
// false without error when name carries no timestamp.
func FromFilename(path, name string) (time.Time, bool, error) {
	t, ok := ParseFilename(name, DefaultLayout)
	if !ok {
		return time.Time{}, false, nil
	}
	if err := Set(path, t); err != nil {
		return t, true, err
	}
	return t, true, nil
}
