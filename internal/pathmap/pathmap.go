// Package pathmap computes where a converted image is written.
//
// Two layouts exist. LayoutMirror recreates the source tree under a sibling
// root named after the source root and the output format, so the source
// tree is never touched. LayoutSubfolder drops each output into a
// format-named folder beside its source file.
package pathmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sdmeta/internal/fileutil"
	"sdmeta/internal/imageconv"
)

// Layout selects a destination policy.
type Layout string

const (
	LayoutMirror    Layout = "mirror"
	LayoutSubfolder Layout = "subfolder"
)

// ErrOutsideRoot reports a source path that does not live under the root.
var ErrOutsideRoot = errors.New("source outside root")

// ParseLayout accepts mirror/subfolder or the short aliases a/b.
func ParseLayout(value string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mirror", "a":
		return LayoutMirror, nil
	case "subfolder", "b":
		return LayoutSubfolder, nil
	default:
		return "", fmt.Errorf("unsupported layout %q (want mirror or subfolder)", value)
	}
}

func (l Layout) String() string {
	return string(l)
}

// MirrorRoot returns the sibling destination root for root, e.g.
// /data/shots -> /data/shots_jpg.
func MirrorRoot(root string, format imageconv.Format) (string, error) {
	clean := filepath.Clean(root)
	base := filepath.Base(clean)
	if base == string(filepath.Separator) || base == "." || base == ".." {
		return "", fmt.Errorf("root %q has no name to derive a sibling from", root)
	}
	return filepath.Join(filepath.Dir(clean), base+"_"+string(format)), nil
}

// SubfolderName is the per-directory output folder, e.g. png_to_JPG.
func SubfolderName(format imageconv.Format) string {
	return "png_to_" + format.Upper()
}

// Map returns the destination for source under the given layout. The
// result is a pure function of its inputs.
func Map(source, root string, format imageconv.Format, layout Layout) (string, error) {
	name := stem(source) + format.Ext()
	switch layout {
	case LayoutMirror:
		destRoot, err := MirrorRoot(root, format)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(filepath.Clean(root), filepath.Dir(filepath.Clean(source)))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrOutsideRoot, source, err)
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, source)
		}
		return filepath.Join(destRoot, rel, name), nil
	case LayoutSubfolder:
		return filepath.Join(filepath.Dir(source), SubfolderName(format), name), nil
	default:
		return "", fmt.Errorf("unsupported layout %q", layout)
	}
}

// Ensure creates the parent directory of dest.
func Ensure(dest string) error {
	return fileutil.EnsureDir(filepath.Dir(dest))
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
