package genmeta

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	settingsLabel = "Steps:"
	negativeLabel = "Negative prompt:"
)

var modelPattern = regexp.MustCompile(`Model: ([^,]+)`)

// Fields is a flattened block split into its parts.
type Fields struct {
	Positive       string
	Negative       string
	Settings       string
	Model          string
	PositiveLength int
}

// Split decomposes a flattened block left to right: settings from the first
// "Steps:", then the negative prompt label, then whatever precedes it.
func Split(flattened string) Fields {
	remainder := strings.TrimSpace(flattened)
	var settings string
	if idx := strings.Index(flattened, settingsLabel); idx >= 0 {
		settings = strings.TrimSpace(flattened[idx:])
		remainder = strings.TrimSpace(flattened[:idx])
	}

	positive := remainder
	var negative string
	if idx := strings.Index(remainder, negativeLabel); idx >= 0 {
		negative = strings.TrimSpace(remainder[idx+len(negativeLabel):])
		positive = strings.TrimSpace(remainder[:idx])
	}

	return Fields{
		Positive:       positive,
		Negative:       negative,
		Settings:       settings,
		Model:          ModelName(settings),
		PositiveLength: utf8.RuneCountInString(positive),
	}
}

// ModelName returns the value of the "Model:" setting or NoModel.
func ModelName(settings string) string {
	m := modelPattern.FindStringSubmatch(settings)
	if m == nil {
		return NoModel
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return NoModel
	}
	return name
}
