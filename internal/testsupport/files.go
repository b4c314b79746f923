package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes of non-image junk to path, creating parent
// directories. Decoders see it as an unknown container. A size <= 0 writes
// a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	writeBytes(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// WriteTruncatedPNG writes the first keep bytes of the PNG described by
// spec. Anything past the signature yields a malformed chunk stream.
func WriteTruncatedPNG(t testing.TB, path string, spec PNGSpec, keep int) {
	t.Helper()

	data := PNGBytes(t, spec)
	if keep < 0 || keep > len(data) {
		t.Fatalf("truncate %s: keep %d outside [0, %d]", path, keep, len(data))
	}
	writeBytes(t, path, data[:keep])
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
