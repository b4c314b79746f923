package services_test

import (
	"errors"
	"strings"
	"testing"

	"sdmeta/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrIO, "convert", "write", "dest unwritable", base)
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	if got, want := err.Error(), "io failure: convert: write: dest unwritable: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapDefaults(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTask) {
		t.Fatalf("expected ErrTask default, got %v", err)
	}
	if !strings.Contains(err.Error(), "task failure") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrIO, "convert", "read", "", nil), "io"},
		{services.Wrap(services.ErrEncode, "convert", "exif", "", nil), "encode"},
		{services.Wrap(services.ErrTask, "convert", "", "panic", nil), "task"},
		{errors.New("plain"), "task"},
	}
	for _, tt := range tests {
		if got := services.Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
