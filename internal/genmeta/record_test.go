package genmeta

import (
	"testing"
	"unicode/utf16"

	"sdmeta/internal/textdecode"
)

func encodeUTF16LE(s string) []byte {
	out := []byte(textdecode.Marker)
	for _, u := range utf16.Encode([]rune(s)) {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func TestParseScenarioB(t *testing.T) {
	rec := Parse("masterpiece, 1girl, Negative prompt: blurry, Steps: 20, Sampler: Euler a, Model: foo.safetensors", NewReducer(nil))
	if rec.Positive != "masterpiece, 1girl," || rec.Negative != "blurry," {
		t.Fatalf("prompts = %q / %q", rec.Positive, rec.Negative)
	}
	if rec.Settings != "Steps: 20, Sampler: Euler a, Model: foo.safetensors" || rec.Model != "foo.safetensors" {
		t.Fatalf("settings = %q model = %q", rec.Settings, rec.Model)
	}
	if rec.CoreTerm != "masterpiece, 1girl," {
		t.Fatalf("CoreTerm = %q", rec.CoreTerm)
	}
}

func TestParseSentinelRecord(t *testing.T) {
	rec := Parse("nothing here", NewReducer(DefaultStopList()))
	want := Record{Raw: NoInfo, Flattened: NoInfo, Model: NoModel, CoreTerm: EmptyCoreTerm}
	if rec != want {
		t.Fatalf("Parse() = %+v, want %+v", rec, want)
	}
	if rec.Found() {
		t.Fatal("sentinel record reported as found")
	}
}

func TestFromBlobsScenarioA(t *testing.T) {
	blobs := []textdecode.Blob{{Kind: textdecode.KindUserComment, Data: encodeUTF16LE("Steps: 10, Sampler: DDIM")}}
	rec := FromBlobs(blobs, NewReducer(nil))
	if !rec.Found() {
		t.Fatal("expected validated record")
	}
	if rec.Positive != "" || rec.Negative != "" || rec.Settings != "Steps: 10, Sampler: DDIM" || rec.Model != NoModel {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Source != "user-comment/exif-standard" {
		t.Fatalf("Source = %q", rec.Source)
	}
}

func TestFromBlobsPrefersUserComment(t *testing.T) {
	blobs := []textdecode.Blob{
		{Kind: textdecode.KindImageDescription, Data: []byte("Steps: 1, Sampler: A\x00")},
		{Kind: textdecode.KindUserComment, Data: encodeUTF16LE("Steps: 2, Sampler: B")},
	}
	rec := FromBlobs(blobs, nil)
	if rec.Settings != "Steps: 2, Sampler: B" {
		t.Fatalf("Settings = %q", rec.Settings)
	}
}

func TestFromBlobsFallsBackToImageDescription(t *testing.T) {
	blobs := []textdecode.Blob{
		{Kind: textdecode.KindUserComment, Data: []byte("ASCII\x00\x00\x00garbage")},
		{Kind: textdecode.KindImageDescription, Data: []byte("cat, Steps: 3, Sampler: C\x00")},
	}
	rec := FromBlobs(blobs, nil)
	if rec.Source != "image-description/utf-8" || rec.Flattened != "cat, Steps: 3, Sampler: C" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestFromBlobsNothingValid(t *testing.T) {
	rec := FromBlobs(nil, nil)
	if rec.Found() || rec.Flattened != NoInfo || rec.CoreTerm != EmptyCoreTerm {
		t.Fatalf("record = %+v", rec)
	}
}
