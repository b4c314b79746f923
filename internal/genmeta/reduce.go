package genmeta

import (
	"regexp"
	"strings"
)

// Reducer removes boilerplate fragments from a positive prompt. Fragments
// are literal, matched case-insensitively and applied in list order; the
// order matters when fragments overlap. A Reducer is immutable and safe for
// concurrent use.
type Reducer struct {
	fragments []*regexp.Regexp
}

// NewReducer compiles the stop-list. Empty fragments are ignored.
func NewReducer(stopList []string) *Reducer {
	r := &Reducer{fragments: make([]*regexp.Regexp, 0, len(stopList))}
	for _, fragment := range stopList {
		if fragment == "" {
			continue
		}
		r.fragments = append(r.fragments, regexp.MustCompile("(?i)"+regexp.QuoteMeta(fragment)))
	}
	return r
}

// Len returns the number of active fragments.
func (r *Reducer) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fragments)
}

// Reduce returns the core term of prompt, or EmptyCoreTerm.
func (r *Reducer) Reduce(prompt string) string {
	working := " " + prompt + " "
	if r != nil {
		for _, fragment := range r.fragments {
			working = fragment.ReplaceAllLiteralString(working, " ")
		}
	}
	// Fields splits on any Unicode space, including U+3000 and U+00A0.
	working = strings.Join(strings.Fields(working), " ")
	if working == "" {
		return EmptyCoreTerm
	}
	return working
}

// DefaultStopList returns the boilerplate fragments shipped with the tool.
// Backslashes are literal: prompts escape parentheses that way.
func DefaultStopList() []string {
	return []string{
		`newest, 2025, toosaka_asagi, novel_illustration, torino_aqua, izumi_tsubasu, oyuwari, pottsness, yunsang, hito_komoru, akeyama_kitsune, fi-san, rourou_\(been\), gweda, fuzichoco, shanguier, anmi, missile228, `,
		"2025, toosaka_asagi, novel_illustration, torino_aqua, izumi_tsubasu, oyuwari, pottsness, ",
		"looking_at_viewer, curvy,seductive_smile,glamor,makeup,blush,, lace,ribbon,jewelry,necklace,drop earrings,pendant,, sexually suggestive,",
		"sexy and cute,",
		"dynamic pose, sexy pose,",
		`dynamic angle,, dutch_angle, tinker bell \(pixiv 10956015\),, masterpiece, best quality, amazing quality, very awa,absurdres,newest,very aesthetic,depth of field,`,
		"very awa,absurdres,newest,very aesthetic,depth of field,",
	}
}
