package genmeta

import (
	"regexp"
	"strings"
	"unicode"
)

// Sentinel values used when no validated block exists.
const (
	NoInfo        = "no generation info found"
	NoModel       = "model not found"
	EmptyCoreTerm = "core term empty"
)

var (
	illegalChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	blockPattern = regexp.MustCompile(`(?s).*?(?:masterpiece|score_\d|1girl|BREAK|Negative prompt:|Steps:).*$`)
	settingsRule = regexp.MustCompile(`(?s)Steps: \d+, Sampler: [\w\s]+`)
)

// Block is the validated generation text in its raw and flattened forms.
type Block struct {
	Raw       string
	Flattened string
}

// Found reports whether the block passed validation.
func (b Block) Found() bool {
	return b.Raw != NoInfo
}

// Clean removes control characters that are not XML-safe and the plain-text
// "UNICODE" token some readers leave in front of decoded comments.
func Clean(text string) string {
	cleaned := illegalChars.ReplaceAllString(text, "")
	if rest, ok := strings.CutPrefix(cleaned, "UNICODE"); ok {
		cleaned = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return cleaned
}

// Flatten replaces every line break character with a space and trims.
func Flatten(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}

// Extract locates and validates the generation block inside text. The anchor
// match is preceded by a lazy wildcard, so a match always spans from the
// start of the cleaned text to its end.
func Extract(text string) Block {
	none := Block{Raw: NoInfo, Flattened: NoInfo}
	if text == "" {
		return none
	}
	span := blockPattern.FindString(Clean(text))
	if span == "" {
		return none
	}
	span = strings.TrimSpace(span)
	if !settingsRule.MatchString(span) {
		return none
	}
	return Block{Raw: span, Flattened: Flatten(span)}
}
