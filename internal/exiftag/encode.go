// Package exiftag encodes generation text into EXIF tag values and reads
// those values back out of TIFF-structured EXIF payloads.
package exiftag

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"sdmeta/internal/textdecode"
)

// Tag identifiers for the two slots generation text is stored in.
const (
	TagImageDescription uint16 = 0x010E
	TagExifIFD          uint16 = 0x8769
	TagUserComment      uint16 = 0x9286
)

// ErrNoTagSet reports that no tag-set could be produced for the text. The
// image should still be written, just without embedded metadata.
var ErrNoTagSet = errors.New("no tag-set produced")

// Mode selects how the UserComment slot is filled.
type Mode int

const (
	// ModeStandard writes the UTF-16 marker plus UTF-16LE text to
	// UserComment and UTF-8 to ImageDescription.
	ModeStandard Mode = iota
	// ModeLegacy writes UTF-8 to both slots, for readers that mishandle the
	// marker convention.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options controls Encode.
type Options struct {
	Mode Mode
	// MaxPayload caps the serialized TIFF size in bytes; zero disables it.
	MaxPayload int
}

// TagSet holds the encoded tag values.
type TagSet struct {
	UserComment      []byte
	ImageDescription []byte
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Encode builds the tag-set for text. Invalid UTF-8 sequences are dropped.
// Every failure is reported as ErrNoTagSet.
func Encode(text string, opts Options) (set *TagSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			set = nil
			err = fmt.Errorf("%w: %v", ErrNoTagSet, r)
		}
	}()

	plain := append([]byte{}, strings.ToValidUTF8(text, "")...)

	var comment []byte
	switch opts.Mode {
	case ModeStandard:
		encoded, encErr := utf16LE.NewEncoder().Bytes(plain)
		if encErr != nil {
			return nil, fmt.Errorf("%w: utf-16 encode: %v", ErrNoTagSet, encErr)
		}
		comment = make([]byte, 0, len(textdecode.Marker)+len(encoded))
		comment = append(comment, textdecode.Marker...)
		comment = append(comment, encoded...)
	case ModeLegacy:
		comment = append([]byte{}, plain...)
	default:
		return nil, fmt.Errorf("%w: unknown mode %s", ErrNoTagSet, opts.Mode)
	}

	set = &TagSet{UserComment: comment, ImageDescription: plain}
	if opts.MaxPayload > 0 {
		if size := len(set.Bytes()); size > opts.MaxPayload {
			return nil, fmt.Errorf("%w: payload of %d bytes exceeds limit of %d", ErrNoTagSet, size, opts.MaxPayload)
		}
	}
	return set, nil
}
