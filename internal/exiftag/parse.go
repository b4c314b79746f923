package exiftag

import (
	"encoding/binary"
	"errors"
	"fmt"

	"sdmeta/internal/textdecode"
)

// ErrInvalidTIFF reports a malformed EXIF payload.
var ErrInvalidTIFF = errors.New("invalid tiff data")

// Parse reads the UserComment and ImageDescription slots from a TIFF
// structured EXIF payload. Missing slots are simply absent from the result.
func Parse(data []byte) ([]textdecode.Blob, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidTIFF, len(data))
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: byte order %q", ErrInvalidTIFF, data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidTIFF)
	}

	r := tiffReader{data: data, order: order}
	ifd0, err := r.entries(order.Uint32(data[4:8]))
	if err != nil {
		return nil, err
	}

	var comment, description []byte
	var haveComment, haveDescription bool
	for _, e := range ifd0 {
		switch e.tag {
		case TagImageDescription:
			description, haveDescription = e.data, true
		case TagExifIFD:
			if len(e.data) < 4 {
				continue
			}
			sub, err := r.entries(order.Uint32(e.data[:4]))
			if err != nil {
				return nil, fmt.Errorf("exif ifd: %w", err)
			}
			for _, se := range sub {
				if se.tag == TagUserComment {
					comment, haveComment = se.data, true
				}
			}
		}
	}

	var blobs []textdecode.Blob
	if haveComment {
		blobs = append(blobs, textdecode.Blob{Kind: textdecode.KindUserComment, Data: comment})
	}
	if haveDescription {
		blobs = append(blobs, textdecode.Blob{Kind: textdecode.KindImageDescription, Data: description})
	}
	return blobs, nil
}

type tiffReader struct {
	data  []byte
	order binary.ByteOrder
}

func typeSize(typ uint16) uint32 {
	switch typ {
	case typeShort:
		return 2
	case typeLong, typeIFD:
		return 4
	default:
		return 1
	}
}

func (r tiffReader) entries(offset uint32) ([]entry, error) {
	size := uint32(len(r.data))
	if offset > size || size-offset < 2 {
		return nil, fmt.Errorf("%w: ifd offset %d out of bounds", ErrInvalidTIFF, offset)
	}
	n := uint32(r.order.Uint16(r.data[offset:]))
	p := offset + 2
	if size-p < n*12 {
		return nil, fmt.Errorf("%w: ifd with %d entries truncated", ErrInvalidTIFF, n)
	}

	out := make([]entry, 0, n)
	for i := uint32(0); i < n; i++ {
		raw := r.data[p : p+12]
		p += 12
		e := entry{tag: r.order.Uint16(raw[0:2]), typ: r.order.Uint16(raw[2:4])}
		if e.tag != TagImageDescription && e.tag != TagUserComment && e.tag != TagExifIFD {
			continue
		}
		length := uint64(r.order.Uint32(raw[4:8])) * uint64(typeSize(e.typ))
		if length <= 4 {
			e.data = append([]byte(nil), raw[8:8+length]...)
		} else {
			at := uint64(r.order.Uint32(raw[8:12]))
			if at+length > uint64(size) {
				return nil, fmt.Errorf("%w: tag 0x%04x value out of bounds", ErrInvalidTIFF, e.tag)
			}
			e.data = append([]byte(nil), r.data[at:at+length]...)
		}
		out = append(out, e)
	}
	return out, nil
}
