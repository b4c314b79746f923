package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HugoSmits86/nativewebp"

	"sdmeta/internal/exiftag"
	"sdmeta/internal/testsupport"
	"sdmeta/internal/textdecode"
)

const sampleParams = "masterpiece, 1girl\nNegative prompt: lowres\nSteps: 20, Sampler: Euler a, Model: foo"

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"png", []byte(pngSignature + "rest"), KindPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, KindJPEG},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBPVP8L"), KindWebP},
		{"riff wave", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), KindUnknown},
		{"short", []byte{0xFF}, KindUnknown},
		{"empty", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.header); got != tt.want {
				t.Fatalf("Sniff = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadTextChunkVariants(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		text  string
	}{
		{"tEXt", "tEXt", sampleParams},
		{"tEXt latin-1", "tEXt", "café, masterpiece"},
		{"zTXt", "zTXt", sampleParams},
		{"iTXt utf-8", "iTXt", "杰作, masterpiece\nSteps: 20, Sampler: Euler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a.png")
			testsupport.WritePNG(t, path, testsupport.PNGSpec{Text: "  " + tt.text + "\n", Chunk: tt.chunk})
			got, err := ReadText(path)
			if err != nil {
				t.Fatalf("ReadText: %v", err)
			}
			if got != tt.text {
				t.Fatalf("ReadText = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestReadTextAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	testsupport.WritePNG(t, path, testsupport.PNGSpec{})
	got, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestReadTextRejectsNonPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	testsupport.WriteFile(t, path, 64)
	if _, err := ReadText(path); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestBlobsPNG(t *testing.T) {
	data := testsupport.PNGBytes(t, testsupport.PNGSpec{Text: sampleParams})
	kind, blobs, err := Blobs(data)
	if err != nil {
		t.Fatalf("Blobs: %v", err)
	}
	if kind != KindPNG {
		t.Fatalf("kind = %v", kind)
	}
	if len(blobs) != 1 || blobs[0].Kind != textdecode.KindTextField || string(blobs[0].Data) != sampleParams {
		t.Fatalf("unexpected blobs %+v", blobs)
	}
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestJPEGEmbedRoundTrip(t *testing.T) {
	set, err := exiftag.Encode(sampleParams, exiftag.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := EmbedJPEG(testJPEG(t), set.Bytes())
	if err != nil {
		t.Fatalf("EmbedJPEG: %v", err)
	}
	if out[2] != 0xFF || out[3] != 0xE1 {
		t.Fatalf("APP1 not placed after SOI: % X", out[:4])
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("embedded jpeg no longer decodes: %v", err)
	}

	kind, blobs, err := Blobs(out)
	if err != nil {
		t.Fatalf("Blobs: %v", err)
	}
	if kind != KindJPEG || len(blobs) != 2 {
		t.Fatalf("kind=%v blobs=%d", kind, len(blobs))
	}
	if blobs[0].Kind != textdecode.KindUserComment {
		t.Fatalf("first blob kind = %v", blobs[0].Kind)
	}
	text, ok := textdecode.DecodeUserComment(blobs[0].Data)
	if !ok || text != sampleParams {
		t.Fatalf("DecodeUserComment = %q, %v", text, ok)
	}
	if string(blobs[1].Data) != sampleParams {
		t.Fatalf("ImageDescription = %q", blobs[1].Data)
	}
}

func TestJPEGWithoutEXIF(t *testing.T) {
	_, blobs, err := Blobs(testJPEG(t))
	if err != nil {
		t.Fatalf("Blobs: %v", err)
	}
	if len(blobs) != 0 {
		t.Fatalf("expected no blobs, got %d", len(blobs))
	}
}

func TestEmbedJPEGTooLarge(t *testing.T) {
	_, err := EmbedJPEG(testJPEG(t), make([]byte, MaxJPEGPayload+1))
	if !errors.Is(err, ErrSegmentTooLarge) {
		t.Fatalf("expected ErrSegmentTooLarge, got %v", err)
	}
}

func TestEmbedJPEGEmptyPayloadPassesThrough(t *testing.T) {
	src := testJPEG(t)
	out, err := EmbedJPEG(src, nil)
	if err != nil {
		t.Fatalf("EmbedJPEG: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("expected unchanged output")
	}
}

func testWebP(t *testing.T, alpha bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			a := uint8(255)
			if alpha {
				a = uint8(60 + x*30)
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 10, A: a})
		}
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	return buf.Bytes()
}

func TestWebPEmbedRoundTrip(t *testing.T) {
	text := sampleParams + " odd"
	set, err := exiftag.Encode(text, exiftag.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := EmbedWebP(testWebP(t, true), set.Bytes(), 5, 3, true)
	if err != nil {
		t.Fatalf("EmbedWebP: %v", err)
	}
	if got := int(binary.LittleEndian.Uint32(out[4:8])); got != len(out)-8 {
		t.Fatalf("riff size %d, file %d", got, len(out))
	}
	if string(out[12:16]) != "VP8X" {
		t.Fatalf("first chunk = %q", out[12:16])
	}
	flags := out[20]
	if flags&vp8xFlagEXIF == 0 || flags&vp8xFlagAlpha == 0 {
		t.Fatalf("flags = %08b", flags)
	}
	if w := int(out[24]) | int(out[25])<<8 | int(out[26])<<16; w != 4 {
		t.Fatalf("canvas width-1 = %d", w)
	}

	chunks, err := webpChunks(out)
	if err != nil {
		t.Fatalf("webpChunks: %v", err)
	}
	var names []string
	for _, c := range chunks {
		names = append(names, c.fourCC)
	}
	if names[0] != "VP8X" || names[len(names)-1] != "EXIF" {
		t.Fatalf("chunk order %v", names)
	}

	_, blobs, err := Blobs(out)
	if err != nil {
		t.Fatalf("Blobs: %v", err)
	}
	got, ok := textdecode.DecodeUserComment(blobs[0].Data)
	if !ok || got != text {
		t.Fatalf("DecodeUserComment = %q, %v", got, ok)
	}
}

func TestWebPEXIFWithHeaderPrefix(t *testing.T) {
	set, err := exiftag.Encode("Steps: 1", exiftag.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	prefixed := append([]byte(exifHeader), set.Bytes()...)
	out, err := EmbedWebP(testWebP(t, false), prefixed, 5, 3, false)
	if err != nil {
		t.Fatalf("EmbedWebP: %v", err)
	}
	_, blobs, err := Blobs(out)
	if err != nil {
		t.Fatalf("Blobs: %v", err)
	}
	if len(blobs) != 2 || !strings.HasPrefix(string(blobs[0].Data), textdecode.Marker) {
		t.Fatalf("unexpected blobs %+v", blobs)
	}
}

func TestBlobsUnsupported(t *testing.T) {
	if _, _, err := Blobs([]byte("GIF89a....")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestReadTextTruncatedPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.png")
	testsupport.WriteTruncatedPNG(t, path, testsupport.PNGSpec{Text: "Steps: 20, Sampler: Euler"}, 20)
	if _, err := ReadText(path); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, _, err := ReadBlobs(path); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed from ReadBlobs, got %v", err)
	}
}
