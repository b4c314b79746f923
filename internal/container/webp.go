package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	vp8xFlagAlpha = 0x10
	vp8xFlagEXIF  = 0x08
)

type riffChunk struct {
	fourCC string
	data   []byte
}

func webpChunks(data []byte) ([]riffChunk, error) {
	if Sniff(data) != KindWebP {
		return nil, fmt.Errorf("%w: missing riff/webp header", ErrMalformed)
	}
	end := len(data)
	if declared := int(binary.LittleEndian.Uint32(data[4:8])) + 8; declared >= 12 && declared < end {
		end = declared
	}
	var chunks []riffChunk
	p := 12
	for p+8 <= end {
		fourCC := string(data[p : p+4])
		size := int(binary.LittleEndian.Uint32(data[p+4 : p+8]))
		if size < 0 || end-p-8 < size {
			return chunks, fmt.Errorf("%w: chunk %s overruns file", ErrMalformed, fourCC)
		}
		chunks = append(chunks, riffChunk{fourCC: fourCC, data: data[p+8 : p+8+size]})
		p += 8 + size + size%2
	}
	return chunks, nil
}

func webpEXIF(chunks []riffChunk) ([]byte, bool) {
	for _, c := range chunks {
		if c.fourCC == "EXIF" {
			return bytes.TrimPrefix(c.data, []byte(exifHeader)), true
		}
	}
	return nil, false
}

// EmbedWebP rewraps an encoded WebP into the extended (VP8X) layout with an
// EXIF chunk after the image data. Existing VP8X, EXIF and XMP chunks are
// replaced.
func EmbedWebP(encoded, tiff []byte, width, height int, alpha bool) ([]byte, error) {
	chunks, err := webpChunks(encoded)
	if err != nil {
		return nil, err
	}
	if len(tiff) == 0 {
		return encoded, nil
	}
	if width < 1 || height < 1 || width > 1<<24 || height > 1<<24 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrMalformed, width, height)
	}

	var flags byte = vp8xFlagEXIF
	if alpha {
		flags |= vp8xFlagAlpha
	}
	vp8x := make([]byte, 10)
	vp8x[0] = flags
	putUint24(vp8x[4:], uint32(width-1))
	putUint24(vp8x[7:], uint32(height-1))

	out := []riffChunk{{fourCC: "VP8X", data: vp8x}}
	for _, c := range chunks {
		switch c.fourCC {
		case "VP8X", "EXIF", "XMP ":
			continue
		}
		out = append(out, c)
	}
	out = append(out, riffChunk{fourCC: "EXIF", data: tiff})

	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range out {
		var header [8]byte
		copy(header[:4], c.fourCC)
		binary.LittleEndian.PutUint32(header[4:], uint32(len(c.data)))
		body.Write(header[:])
		body.Write(c.data)
		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	result := make([]byte, 8, 8+body.Len())
	copy(result, "RIFF")
	binary.LittleEndian.PutUint32(result[4:], uint32(body.Len()))
	return append(result, body.Bytes()...), nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
