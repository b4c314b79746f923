package textdecode

import (
	"bytes"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// Marker prefixes a UTF-16LE payload inside EXIF comment-style tags.
const Marker = "UNICODE\x00"

// Candidate labels, one per decode attempt.
const (
	LabelStandard = "exif-standard"
	LabelUTF16LE  = "utf-16le"
	LabelUTF8     = "utf-8"
	LabelLatin1   = "latin-1"
	LabelGBK      = "gbk"
)

// TagKind identifies where a blob was found inside its container.
type TagKind int

const (
	// KindTextField is a container-native text field such as the PNG
	// "parameters" chunk.
	KindTextField TagKind = iota
	// KindUserComment is the EXIF UserComment slot (0x9286).
	KindUserComment
	// KindImageDescription is the EXIF ImageDescription slot (0x010E).
	KindImageDescription
)

func (k TagKind) String() string {
	switch k {
	case KindTextField:
		return "text-field"
	case KindUserComment:
		return "user-comment"
	case KindImageDescription:
		return "image-description"
	default:
		return "unknown"
	}
}

// Blob is a raw metadata payload plus the slot it came from.
type Blob struct {
	Kind TagKind
	Data []byte
}

// Candidate is one decoding of a blob. None is authoritative until validated.
type Candidate struct {
	Label string
	Text  string
}

type markerRule int

const (
	always markerRule = iota
	withMarker
	withoutMarker
)

type attempt struct {
	label string
	enc   encoding.Encoding
	rule  markerRule
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// attempts is read concurrently by every worker and must not be mutated.
var attempts = []attempt{
	{label: LabelStandard, enc: utf16LE, rule: withMarker},
	{label: LabelUTF16LE, enc: utf16LE, rule: withoutMarker},
	{label: LabelUTF8, enc: unicode.UTF8, rule: always},
	{label: LabelLatin1, enc: charmap.ISO8859_1, rule: always},
	{label: LabelGBK, enc: simplifiedchinese.GBK, rule: always},
}

var priority = map[TagKind][]string{
	KindTextField:        {LabelUTF8, LabelLatin1, LabelGBK, LabelUTF16LE},
	KindUserComment:      {LabelStandard, LabelUTF8, LabelLatin1, LabelGBK, LabelUTF16LE},
	KindImageDescription: {LabelUTF8, LabelLatin1, LabelGBK, LabelUTF16LE},
}

// HasMarker reports whether data starts with the UTF-16 marker sequence.
func HasMarker(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Marker))
}

// Decode runs every applicable attempt over the blob and returns one
// candidate per attempt, in table order. Undecodable sequences are replaced
// rather than reported, so the result is never empty.
func Decode(blob Blob) []Candidate {
	marked := HasMarker(blob.Data)
	out := make([]Candidate, 0, len(attempts)-1)
	for _, a := range attempts {
		switch {
		case a.rule == withMarker && !marked:
			continue
		case a.rule == withoutMarker && marked:
			continue
		}
		data := blob.Data
		if a.rule == withMarker {
			data = data[len(Marker):]
		}
		out = append(out, Candidate{Label: a.label, Text: decodeLossy(a.enc, data)})
	}
	return out
}

// DecodeUserComment applies the marker-aware path: strip the marker, decode
// UTF-16LE, drop NUL characters and trim. ok is false when the marker is
// absent.
func DecodeUserComment(data []byte) (text string, ok bool) {
	if !HasMarker(data) {
		return "", false
	}
	raw := decodeLossy(utf16LE, data[len(Marker):])
	return strings.TrimSpace(strings.ReplaceAll(raw, "\x00", "")), true
}

// Priority returns the label preference for blobs of the given kind.
func Priority(kind TagKind) []string {
	order, ok := priority[kind]
	if !ok {
		order = priority[KindTextField]
	}
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Ordered returns the candidates rearranged by the kind's priority. Labels
// not present among the candidates are skipped.
func Ordered(kind TagKind, candidates []Candidate) []Candidate {
	byLabel := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byLabel[c.Label] = c
	}
	order := priority[kind]
	if order == nil {
		order = priority[KindTextField]
	}
	out := make([]Candidate, 0, len(candidates))
	for _, label := range order {
		if c, ok := byLabel[label]; ok {
			out = append(out, c)
		}
	}
	return out
}

func decodeLossy(enc encoding.Encoding, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err == nil {
		return string(decoded)
	}
	if enc == utf16LE {
		return fallbackUTF16LE(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func fallbackUTF16LE(data []byte) string {
	units := make([]uint16, 0, len(data)/2+1)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])|uint16(data[i+1])<<8)
	}
	text := string(utf16.Decode(units))
	if len(data)%2 == 1 {
		text += "\uFFFD"
	}
	return text
}
