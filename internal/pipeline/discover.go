package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExcludeDirs lists directory names skipped during discovery.
var DefaultExcludeDirs = []string{".bf"}

// Discover returns every .png file under root, sorted, skipping subtrees
// whose directory name appears in excludeDirs. Unreadable subdirectories
// are skipped; an unreadable root is an error.
func Discover(root string, excludeDirs []string) ([]string, error) {
	return Walk(root, excludeDirs, ".png")
}

// Walk is Discover for an arbitrary set of extensions, matched
// case-insensitively.
func Walk(root string, excludeDirs []string, exts ...string) ([]string, error) {
	excluded := make(map[string]struct{}, len(excludeDirs))
	for _, name := range excludeDirs {
		excluded[name] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root {
				if _, skip := excluded[d.Name()]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if d.Type().IsRegular() && hasExt(d.Name(), exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
