package exiftag

import "encoding/binary"

const (
	typeByte      uint16 = 1
	typeASCII     uint16 = 2
	typeShort     uint16 = 3
	typeLong      uint16 = 4
	typeUndefined uint16 = 7
	typeIFD       uint16 = 13
)

type entry struct {
	tag  uint16
	typ  uint16
	data []byte
}

func (e entry) count() uint32 {
	switch e.typ {
	case typeLong, typeIFD:
		return uint32(len(e.data) / 4)
	case typeShort:
		return uint32(len(e.data) / 2)
	default:
		return uint32(len(e.data))
	}
}

func ifdSize(n int) uint32 {
	return uint32(2 + 12*n + 4)
}

// Bytes serializes the tag-set as a little-endian TIFF stream: IFD0 carries
// ImageDescription and the Exif IFD pointer, the Exif IFD carries
// UserComment. Nil values are omitted.
func (s *TagSet) Bytes() []byte {
	order := binary.LittleEndian

	var ifd0, exif []entry
	if s.ImageDescription != nil {
		desc := make([]byte, len(s.ImageDescription)+1)
		copy(desc, s.ImageDescription)
		ifd0 = append(ifd0, entry{tag: TagImageDescription, typ: typeASCII, data: desc})
	}
	if s.UserComment != nil {
		exif = append(exif, entry{tag: TagUserComment, typ: typeUndefined, data: s.UserComment})
	}

	const ifd0Offset = 8
	exifOffset := ifd0Offset + ifdSize(len(ifd0)+boolInt(len(exif) > 0))
	dataOffset := exifOffset
	if len(exif) > 0 {
		pointer := make([]byte, 4)
		order.PutUint32(pointer, exifOffset)
		ifd0 = append(ifd0, entry{tag: TagExifIFD, typ: typeLong, data: pointer})
		dataOffset += ifdSize(len(exif))
	}

	out := make([]byte, dataOffset)
	copy(out, "II")
	order.PutUint16(out[2:], 42)
	order.PutUint32(out[4:], ifd0Offset)

	cursor := dataOffset
	var data []byte
	writeIFD := func(at uint32, entries []entry) {
		order.PutUint16(out[at:], uint16(len(entries)))
		p := at + 2
		for _, e := range entries {
			order.PutUint16(out[p:], e.tag)
			order.PutUint16(out[p+2:], e.typ)
			order.PutUint32(out[p+4:], e.count())
			if len(e.data) <= 4 {
				copy(out[p+8:p+12], e.data)
			} else {
				order.PutUint32(out[p+8:], cursor)
				data = append(data, e.data...)
				cursor += uint32(len(e.data))
				if cursor%2 == 1 {
					data = append(data, 0)
					cursor++
				}
			}
			p += 12
		}
		order.PutUint32(out[p:], 0)
	}

	writeIFD(ifd0Offset, ifd0)
	if len(exif) > 0 {
		writeIFD(exifOffset, exif)
	}
	return append(out, data...)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
