// Package scan builds one generation record per image for listing and
// export. Unlike the conversion pipeline it reads every supported
// container and never writes.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"sdmeta/internal/container"
	"sdmeta/internal/filestamp"
	"sdmeta/internal/genmeta"
	"sdmeta/internal/logging"
	"sdmeta/internal/pipeline"
	"sdmeta/internal/services"
)

// UnknownDate fills Entry.CreatedDate when the file time cannot be read.
const UnknownDate = "unknown"

// Extensions lists the image extensions considered during directory walks.
// GIF and BMP are listed but carry no readable metadata slots.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp"}

// Entry is the scan output for one image.
type Entry struct {
	Folder      string         `json:"folder"`
	Path        string         `json:"path"`
	Container   string         `json:"container"`
	CreatedDate string         `json:"created_date"`
	Record      genmeta.Record `json:"record"`
	Error       string         `json:"error,omitempty"`
}

// Options configures a scan.
type Options struct {
	ExcludeDirs []string
	Reducer     *genmeta.Reducer
	Logger      *slog.Logger
}

// Paths expands each argument (a file or a directory) into image paths and
// scans them in order. Missing arguments are an error; per-image failures
// are reported on the entry.
func Paths(ctx context.Context, args []string, opts Options) ([]Entry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "scan")

	var files []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "scan", "resolve path", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "scan", "stat", abs, err)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		found, err := pipeline.Walk(abs, opts.ExcludeDirs, Extensions...)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "scan", "walk", abs, err)
		}
		files = append(files, found...)
	}

	entries := make([]Entry, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		entry := File(path, opts.Reducer)
		if entry.Error != "" {
			logger.Warn("image scan failed",
				logging.String(logging.FieldSource, path),
				logging.String(logging.FieldEventType, "scan_failed"),
				logging.String(logging.FieldErrorHint, entry.Error),
			)
		}
		entries = append(entries, entry)
	}
	logger.Info("scan complete",
		logging.Int("images", len(entries)),
		logging.String(logging.FieldEventType, "scan_complete"),
	)
	return entries, nil
}

// File scans a single image. The record is all-sentinel when nothing
// validates or the file cannot be read.
func File(path string, reducer *genmeta.Reducer) Entry {
	entry := Entry{
		Folder:      filepath.Dir(path),
		Path:        path,
		Container:   container.KindUnknown.String(),
		CreatedDate: UnknownDate,
		Record:      genmeta.Empty(reducer),
	}
	if created, err := filestamp.Created(path); err == nil {
		entry.CreatedDate = created.Format("2006-01-02")
	}

	kind, blobs, err := container.ReadBlobs(path)
	entry.Container = kind.String()
	if err != nil && !errors.Is(err, container.ErrUnsupported) {
		entry.Error = services.Wrap(services.ErrIO, "scan", "read metadata", "", err).Error()
	}
	// a corrupt EXIF block still leaves any PNG text blob usable
	if len(blobs) > 0 {
		entry.Record = genmeta.FromBlobs(blobs, reducer)
	}
	return entry
}
