package container

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const exifHeader = "Exif\x00\x00"

// MaxJPEGPayload is the largest TIFF payload one APP1 segment can carry.
const MaxJPEGPayload = 0xFFFF - 2 - len(exifHeader)

// ErrSegmentTooLarge reports an EXIF payload that does not fit in APP1.
var ErrSegmentTooLarge = errors.New("exif payload exceeds jpeg segment limit")

// jpegEXIF scans the marker segments up to start-of-scan and returns the
// TIFF payload of the first Exif APP1 segment.
func jpegEXIF(data []byte) ([]byte, bool, error) {
	if Sniff(data) != KindJPEG {
		return nil, false, fmt.Errorf("%w: missing jpeg soi", ErrMalformed)
	}
	p := 2
	for p < len(data) {
		if data[p] != 0xFF {
			return nil, false, fmt.Errorf("%w: invalid marker at %d", ErrMalformed, p)
		}
		for p < len(data) && data[p] == 0xFF {
			p++
		}
		if p >= len(data) {
			break
		}
		marker := data[p]
		p++
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8) {
			continue
		}
		if marker == 0xD9 || marker == 0xDA {
			break
		}
		if len(data)-p < 2 {
			return nil, false, fmt.Errorf("%w: truncated segment length", ErrMalformed)
		}
		length := int(binary.BigEndian.Uint16(data[p:]))
		if length < 2 || len(data)-p < length {
			return nil, false, fmt.Errorf("%w: segment 0x%02X overruns file", ErrMalformed, marker)
		}
		segment := data[p+2 : p+length]
		if marker == 0xE1 && len(segment) >= len(exifHeader) && string(segment[:len(exifHeader)]) == exifHeader {
			return segment[len(exifHeader):], true, nil
		}
		p += length
	}
	return nil, false, nil
}

// EmbedJPEG inserts an Exif APP1 segment directly after SOI.
func EmbedJPEG(encoded, tiff []byte) ([]byte, error) {
	if Sniff(encoded) != KindJPEG {
		return nil, fmt.Errorf("%w: missing jpeg soi", ErrMalformed)
	}
	if len(tiff) == 0 {
		return encoded, nil
	}
	if len(tiff) > MaxJPEGPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrSegmentTooLarge, len(tiff))
	}
	segLen := 2 + len(exifHeader) + len(tiff)
	out := make([]byte, 0, len(encoded)+2+segLen)
	out = append(out, encoded[:2]...)
	out = append(out, 0xFF, 0xE1, byte(segLen>>8), byte(segLen))
	out = append(out, exifHeader...)
	out = append(out, tiff...)
	out = append(out, encoded[2:]...)
	return out, nil
}
