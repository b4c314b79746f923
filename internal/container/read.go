package container

import (
	"fmt"
	"os"
	"strings"

	"sdmeta/internal/exiftag"
	"sdmeta/internal/textdecode"
)

// ReadText returns the trimmed PNG "parameters" text of the file at path.
// Files without the chunk yield an empty string.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	chunks, err := pngChunks(data)
	if err != nil {
		return "", err
	}
	text, _, err := pngText(chunks)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ReadBlobs returns every metadata blob of the file at path.
func ReadBlobs(path string) (Kind, []textdecode.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KindUnknown, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Blobs(data)
}

// Blobs resolves the metadata slots of an in-memory image.
func Blobs(data []byte) (Kind, []textdecode.Blob, error) {
	kind := Sniff(data)
	var (
		tiff []byte
		ok   bool
		err  error
	)
	var blobs []textdecode.Blob

	switch kind {
	case KindPNG:
		chunks, cerr := pngChunks(data)
		if cerr != nil {
			return kind, nil, cerr
		}
		text, found, terr := pngText(chunks)
		if terr != nil {
			return kind, nil, terr
		}
		if found {
			blobs = append(blobs, textdecode.Blob{Kind: textdecode.KindTextField, Data: []byte(text)})
		}
		tiff, ok = pngEXIF(chunks)
	case KindJPEG:
		tiff, ok, err = jpegEXIF(data)
		if err != nil {
			return kind, nil, err
		}
	case KindWebP:
		chunks, cerr := webpChunks(data)
		if cerr != nil {
			return kind, nil, cerr
		}
		tiff, ok = webpEXIF(chunks)
	default:
		return kind, nil, ErrUnsupported
	}

	if ok {
		tags, perr := exiftag.Parse(tiff)
		if perr != nil {
			return kind, blobs, fmt.Errorf("%s exif: %w", kind, perr)
		}
		blobs = append(blobs, tags...)
	}
	return kind, blobs, nil
}
