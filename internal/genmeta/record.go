package genmeta

import (
	"sdmeta/internal/textdecode"
)

// Record is the structured decomposition of one generation block.
type Record struct {
	Raw            string `json:"raw"`
	Flattened      string `json:"flattened"`
	Positive       string `json:"positive"`
	Negative       string `json:"negative"`
	Settings       string `json:"settings"`
	Model          string `json:"model"`
	PositiveLength int    `json:"positive_length"`
	CoreTerm       string `json:"core_term"`

	// Source names the slot and decoding that validated, e.g.
	// "user-comment/exif-standard". Empty when nothing validated.
	Source string `json:"source,omitempty"`
}

// Found reports whether the record holds a validated block.
func (r Record) Found() bool {
	return r.Raw != NoInfo && r.Raw != ""
}

// Empty returns the all-sentinel record.
func Empty(reducer *Reducer) Record {
	return Record{
		Raw:       NoInfo,
		Flattened: NoInfo,
		Model:     NoModel,
		CoreTerm:  reducer.Reduce(""),
	}
}

// Parse extracts, validates and splits text into a Record.
func Parse(text string, reducer *Reducer) Record {
	block := Extract(text)
	if !block.Found() {
		return Empty(reducer)
	}
	fields := Split(block.Flattened)
	return Record{
		Raw:            block.Raw,
		Flattened:      block.Flattened,
		Positive:       fields.Positive,
		Negative:       fields.Negative,
		Settings:       fields.Settings,
		Model:          fields.Model,
		PositiveLength: fields.PositiveLength,
		CoreTerm:       reducer.Reduce(fields.Positive),
	}
}

// FromBlobs picks the first candidate that validates. Container text fields
// win over UserComment, which wins over ImageDescription; within a blob the
// kind's decode priority applies.
func FromBlobs(blobs []textdecode.Blob, reducer *Reducer) Record {
	for _, kind := range []textdecode.TagKind{
		textdecode.KindTextField,
		textdecode.KindUserComment,
		textdecode.KindImageDescription,
	} {
		for _, blob := range blobs {
			if blob.Kind != kind {
				continue
			}
			for _, cand := range textdecode.Ordered(kind, textdecode.Decode(blob)) {
				rec := Parse(cand.Text, reducer)
				if rec.Found() {
					rec.Source = kind.String() + "/" + cand.Label
					return rec
				}
			}
		}
	}
	return Empty(reducer)
}
