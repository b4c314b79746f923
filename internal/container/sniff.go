package container

import (
	"bytes"
	"errors"
)

// Kind is a raster container format.
type Kind int

const (
	KindUnknown Kind = iota
	KindPNG
	KindJPEG
	KindWebP
)

func (k Kind) String() string {
	switch k {
	case KindPNG:
		return "png"
	case KindJPEG:
		return "jpeg"
	case KindWebP:
		return "webp"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupported reports a container this package cannot read.
	ErrUnsupported = errors.New("unsupported container")
	// ErrMalformed reports a structurally broken container.
	ErrMalformed = errors.New("malformed container")
)

const pngSignature = "\x89PNG\r\n\x1a\n"

// Sniff identifies the container from its leading bytes.
func Sniff(header []byte) Kind {
	switch {
	case len(header) >= 8 && string(header[:8]) == pngSignature:
		return KindPNG
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return KindJPEG
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")):
		return KindWebP
	default:
		return KindUnknown
	}
}
