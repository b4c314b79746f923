// Package imageconv turns decoded PNG sources into JPEG or WebP bytes with
// an EXIF tag-set embedded.
package imageconv

import (
	"fmt"
	"strings"

	"sdmeta/internal/container"
)

// Format is a destination codec.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatWebP Format = "webp"
)

// DefaultJPEGQuality matches the quality the original converter shipped.
const DefaultJPEGQuality = 95

// ParseFormat accepts jpg, jpeg or webp in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want jpg or webp)", value)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Upper is the display form used in folder names and summaries.
func (f Format) Upper() string {
	return strings.ToUpper(string(f))
}

// SupportsAlpha reports whether the codec keeps an alpha channel.
func (f Format) SupportsAlpha() bool {
	return f == FormatWebP
}

// MaxEXIFPayload is the largest TIFF payload the container can embed, or
// zero when effectively unbounded.
func (f Format) MaxEXIFPayload() int {
	if f == FormatJPEG {
		return container.MaxJPEGPayload
	}
	return 0
}

func (f Format) String() string {
	return string(f)
}
