package imageconv

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"

	"sdmeta/internal/container"
	"sdmeta/internal/exiftag"
)

// Options controls Encode.
type Options struct {
	Format      Format
	JPEGQuality int
}

// Decode reads a PNG image.
func Decode(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xFFFF {
				return true
			}
		}
	}
	return false
}

// Prepare converts img to the colour model the destination codec needs.
// Transparent sources headed for a codec without alpha are composited onto
// white.
func Prepare(img image.Image, format Format) image.Image {
	b := img.Bounds()
	if format.SupportsAlpha() {
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if HasAlpha(img) {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Encode writes img in the requested format and embeds tags when non-nil.
// img should already be Prepared for the format.
func Encode(img image.Image, tags *exiftag.TagSet, opts Options) ([]byte, error) {
	var payload []byte
	if tags != nil {
		payload = tags.Bytes()
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return container.EmbedJPEG(buf.Bytes(), payload)
	case FormatWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		b := img.Bounds()
		return container.EmbedWebP(buf.Bytes(), payload, b.Dx(), b.Dy(), HasAlpha(img))
	default:
		return nil, fmt.Errorf("unsupported output format %q", opts.Format)
	}
}
