package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// ParametersKeyword is the text chunk keyword generators store their
// metadata under.
const ParametersKeyword = "parameters"

type pngChunk struct {
	typ  string
	data []byte
}

func pngChunks(data []byte) ([]pngChunk, error) {
	if Sniff(data) != KindPNG {
		return nil, fmt.Errorf("%w: missing png signature", ErrMalformed)
	}
	var chunks []pngChunk
	p := len(pngSignature)
	for p < len(data) {
		if len(data)-p < 12 {
			return chunks, fmt.Errorf("%w: truncated chunk header at %d", ErrMalformed, p)
		}
		length := int(binary.BigEndian.Uint32(data[p:]))
		typ := string(data[p+4 : p+8])
		if length < 0 || len(data)-p-12 < length {
			return chunks, fmt.Errorf("%w: chunk %s overruns file", ErrMalformed, typ)
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[p+8 : p+8+length]})
		p += 12 + length
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

// pngText returns the parameters text decoded to UTF-8. tEXt and zTXt are
// Latin-1 by definition; iTXt is UTF-8.
func pngText(chunks []pngChunk) (string, bool, error) {
	for _, c := range chunks {
		keyword, rest, ok := bytes.Cut(c.data, []byte{0})
		if !ok || string(keyword) != ParametersKeyword {
			continue
		}
		switch c.typ {
		case "tEXt":
			text, err := latin1(rest)
			return text, err == nil, err
		case "zTXt":
			if len(rest) < 1 {
				return "", false, fmt.Errorf("%w: empty zTXt", ErrMalformed)
			}
			raw, err := inflate(rest[1:])
			if err != nil {
				return "", false, err
			}
			text, err := latin1(raw)
			return text, err == nil, err
		case "iTXt":
			return itxt(rest)
		}
	}
	return "", false, nil
}

func itxt(rest []byte) (string, bool, error) {
	if len(rest) < 2 {
		return "", false, fmt.Errorf("%w: short iTXt", ErrMalformed)
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	_, rest, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return "", false, fmt.Errorf("%w: iTXt language tag", ErrMalformed)
	}
	_, rest, ok = bytes.Cut(rest, []byte{0})
	if !ok {
		return "", false, fmt.Errorf("%w: iTXt translated keyword", ErrMalformed)
	}
	if compressed {
		raw, err := inflate(rest)
		if err != nil {
			return "", false, err
		}
		rest = raw
	}
	return string(rest), true, nil
}

// pngEXIF returns the payload of an eXIf chunk when present.
func pngEXIF(chunks []pngChunk) ([]byte, bool) {
	for _, c := range chunks {
		if c.typ == "eXIf" {
			return c.data, true
		}
	}
	return nil, false
}

func latin1(data []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1 text: %w", err)
	}
	return string(out), nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate text chunk: %v", ErrMalformed, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate text chunk: %v", ErrMalformed, err)
	}
	return out, nil
}
