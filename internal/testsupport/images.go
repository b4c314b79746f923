package testsupport

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// PNGSpec describes a synthetic PNG fixture.
type PNGSpec struct {
	Width  int
	Height int
	Alpha  bool
	// Text is stored under the "parameters" keyword when non-empty.
	Text string
	// Chunk selects tEXt (default), zTXt or iTXt.
	Chunk string
}

// PNGBytes renders a small gradient image and splices in the parameters
// text chunk right after IHDR.
func PNGBytes(t testing.TB, spec PNGSpec) []byte {
	t.Helper()

	if spec.Width <= 0 {
		spec.Width = 8
	}
	if spec.Height <= 0 {
		spec.Height = 6
	}
	var img image.Image
	if spec.Alpha {
		rgba := image.NewNRGBA(image.Rect(0, 0, spec.Width, spec.Height))
		for y := 0; y < spec.Height; y++ {
			for x := 0; x < spec.Width; x++ {
				rgba.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: uint8(40 + x*10)})
			}
		}
		img = rgba
	} else {
		rgb := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
		for y := 0; y < spec.Height; y++ {
			for x := 0; x < spec.Width; x++ {
				rgb.SetRGBA(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: 255})
			}
		}
		img = rgb
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	if spec.Text == "" {
		return data
	}

	chunk := textChunk(t, spec)
	// signature (8) + IHDR (4+4+13+4)
	const ihdrEnd = 8 + 25
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out
}

// WritePNG writes a PNGBytes fixture to path, creating parent directories.
func WritePNG(t testing.TB, path string, spec PNGSpec) {
	t.Helper()
	writeBytes(t, path, PNGBytes(t, spec))
}

func textChunk(t testing.TB, spec PNGSpec) []byte {
	t.Helper()

	typ := spec.Chunk
	if typ == "" {
		typ = "tEXt"
	}
	payload := []byte("parameters\x00")
	switch typ {
	case "tEXt":
		payload = append(payload, latin1(t, spec.Text)...)
	case "zTXt":
		payload = append(payload, 0)
		payload = append(payload, deflate(t, latin1(t, spec.Text))...)
	case "iTXt":
		payload = append(payload, 0, 0, 0, 0)
		payload = append(payload, spec.Text...)
	default:
		t.Fatalf("unknown text chunk %q", typ)
	}

	out := make([]byte, 8, 12+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], typ)
	out = append(out, payload...)
	crc := crc32.ChecksumIEEE(out[4:])
	return binary.BigEndian.AppendUint32(out, crc)
}

func latin1(t testing.TB, text string) []byte {
	t.Helper()
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("latin-1 encode: %v", err)
	}
	return out
}

func deflate(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	return buf.Bytes()
}
