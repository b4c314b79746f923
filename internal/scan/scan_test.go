package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sdmeta/internal/exiftag"
	"sdmeta/internal/genmeta"
	"sdmeta/internal/imageconv"
	"sdmeta/internal/testsupport"
)

const params = "masterpiece, 1girl, smile\nNegative prompt: blurry\nSteps: 20, Sampler: Euler a, Model: foo"

func writeJPEG(t *testing.T, path, text string) {
	t.Helper()
	img, err := imageconv.Decode(bytes.NewReader(testsupport.PNGBytes(t, testsupport.PNGSpec{})))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	tags, err := exiftag.Encode(text, exiftag.Options{})
	if err != nil {
		t.Fatalf("encode tags: %v", err)
	}
	data, err := imageconv.Encode(imageconv.Prepare(img, imageconv.FormatJPEG), tags, imageconv.Options{Format: imageconv.FormatJPEG})
	if err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
}

func TestPathsDirectory(t *testing.T) {
	root := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(root, "a.png"), testsupport.PNGSpec{Text: params})
	testsupport.WritePNG(t, filepath.Join(root, "b.png"), testsupport.PNGSpec{})
	writeJPEG(t, filepath.Join(root, "c.jpg"), params)
	testsupport.WriteFile(t, filepath.Join(root, "d.gif"), 16)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 16)
	testsupport.WritePNG(t, filepath.Join(root, ".bf", "hidden.png"), testsupport.PNGSpec{Text: params})

	reducer := genmeta.NewReducer(genmeta.DefaultStopList())
	entries, err := Paths(context.Background(), []string{root}, Options{ExcludeDirs: []string{".bf"}, Reducer: reducer})
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[filepath.Base(e.Path)] = e
	}

	a := byName["a.png"]
	if !a.Record.Found() || a.Record.Model != "foo" || a.Container != "png" {
		t.Fatalf("unexpected a.png entry: %+v", a)
	}
	if a.Folder != root {
		t.Fatalf("folder = %q, want %q", a.Folder, root)
	}
	if _, err := time.Parse("2006-01-02", a.CreatedDate); err != nil {
		t.Fatalf("created date %q: %v", a.CreatedDate, err)
	}

	if b := byName["b.png"]; b.Record.Found() || b.Record.Raw != genmeta.NoInfo || b.Error != "" {
		t.Fatalf("expected sentinel record for b.png, got %+v", b)
	}

	c := byName["c.jpg"]
	if c.Container != "jpeg" || c.Record.Flattened != a.Record.Flattened {
		t.Fatalf("jpeg record mismatch: %+v", c)
	}
	if c.Record.Source == "" {
		t.Fatalf("expected jpeg source label")
	}

	if d := byName["d.gif"]; d.Container != "unknown" || d.Error != "" || d.Record.Found() {
		t.Fatalf("unexpected gif entry: %+v", d)
	}
}

func TestPathsSingleFileAndMissing(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "one.png")
	testsupport.WritePNG(t, path, testsupport.PNGSpec{Text: params, Chunk: "zTXt"})

	entries, err := Paths(context.Background(), []string{path}, Options{})
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(entries) != 1 || !entries[0].Record.Found() {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if _, err := Paths(context.Background(), []string{filepath.Join(root, "missing.png")}, Options{}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestFileMalformedPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	testsupport.WriteTruncatedPNG(t, path, testsupport.PNGSpec{Text: params}, 20)
	entry := File(path, nil)
	if entry.Error == "" {
		t.Fatal("expected error for malformed png")
	}
	if entry.Record.Raw != genmeta.NoInfo {
		t.Fatalf("expected sentinel record, got %+v", entry.Record)
	}
}

func TestPathsCancelled(t *testing.T) {
	root := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(root, "a.png"), testsupport.PNGSpec{Text: params})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Paths(ctx, []string{root}, Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
