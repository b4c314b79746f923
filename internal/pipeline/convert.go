package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sdmeta/internal/container"
	"sdmeta/internal/exiftag"
	"sdmeta/internal/filestamp"
	"sdmeta/internal/fileutil"
	"sdmeta/internal/genmeta"
	"sdmeta/internal/imageconv"
	"sdmeta/internal/logging"
	"sdmeta/internal/pathmap"
	"sdmeta/internal/services"
)

const stage = "convert"

// readBlobs is swapped in tests.
var readBlobs = container.ReadBlobs

// convert runs one task start to finish. It never panics and always
// returns a result for the task's source.
func convert(ctx context.Context, base *slog.Logger, task Task, opts Options) (res Result) {
	started := time.Now()
	ctx = services.WithTask(ctx, task.Index)
	ctx = services.WithSource(ctx, task.SourcePath)
	logger := logging.WithContext(ctx, base)

	res = Result{
		SourcePath:           task.SourcePath,
		OriginalFlattened:    genmeta.Flatten(task.RawText),
		ReextractedFlattened: genmeta.NoInfo,
	}
	// fail leaves Succeeded alone: a panic after the write still has a file.
	fail := func(err error) Result {
		res.Consistent = false
		res.Error = err.Error()
		res.Duration = time.Since(started)
		logging.ErrorWithContext(logger, "conversion failed", "convert_failed",
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
		)
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(services.Wrap(services.ErrTask, stage, "", fmt.Sprintf("panic: %v", r), nil))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(services.Wrap(services.ErrTask, stage, "start", "run cancelled", err))
	}

	dest, err := pathmap.Map(task.SourcePath, task.Root, task.Format, task.Layout)
	if err != nil {
		return fail(services.Wrap(services.ErrIO, stage, "map destination", "", err))
	}
	if task.CollidesWith != "" {
		return fail(services.Wrap(services.ErrIO, stage, "map destination",
			fmt.Sprintf("destination %s collides with %s", dest, task.CollidesWith), nil))
	}
	res.DestPath = dest

	data, err := render(logger, task, opts)
	if err != nil {
		return fail(err)
	}

	if err := pathmap.Ensure(dest); err != nil {
		return fail(services.Wrap(services.ErrIO, stage, "create destination directory", "", err))
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fail(services.Wrap(services.ErrIO, stage, "write destination", dest, err))
	}
	res.Succeeded = true
	res.BytesWritten = int64(len(data))

	if opts.StampFromFilename {
		if _, ok, err := filestamp.FromFilename(dest, filepath.Base(task.SourcePath)); err != nil {
			logging.WarnWithContext(logger, "timestamp from filename not applied", "stamp_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "output keeps its write time"),
			)
		} else if !ok {
			logger.Debug("no timestamp in filename")
		}
	}

	res.ReextractedFlattened = reextract(logger, dest, opts.Reducer)
	res.Consistent = res.OriginalFlattened == res.ReextractedFlattened
	res.Duration = time.Since(started)

	if !res.Consistent && task.RawText != "" {
		logging.WarnWithContext(logger, "metadata round trip mismatch", "metadata_inconsistent",
			logging.String("dest", dest),
			logging.String(logging.FieldImpact, "converted file carries different metadata"),
		)
	}
	logger.Debug("converted",
		logging.String("dest", dest),
		logging.Bool("consistent", res.Consistent),
		logging.Int64("bytes", res.BytesWritten),
		logging.Duration("elapsed", res.Duration),
	)
	return res
}

// render decodes the source and produces the destination bytes. A tag-set
// that cannot be encoded is logged and skipped; the image is still written.
func render(logger *slog.Logger, task Task, opts Options) ([]byte, error) {
	f, err := os.Open(task.SourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stage, "open source", "", err)
	}
	defer f.Close()

	img, err := imageconv.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stage, "decode source", "", err)
	}
	img = imageconv.Prepare(img, task.Format)

	var tags *exiftag.TagSet
	if task.RawText != "" {
		tags, err = exiftag.Encode(task.RawText, exiftag.Options{
			Mode:       opts.EXIFMode,
			MaxPayload: task.Format.MaxEXIFPayload(),
		})
		if err != nil {
			logging.WarnWithContext(logger, "exif encode failed", "exif_encode_failed",
				logging.Error(services.Wrap(services.ErrEncode, stage, "exif", "", err)),
				logging.String(logging.FieldImpact, "image written without metadata"),
			)
			tags = nil
		}
	}

	data, err := imageconv.Encode(img, tags, imageconv.Options{Format: task.Format, JPEGQuality: opts.JPEGQuality})
	if err != nil {
		return nil, services.Wrap(services.ErrTask, stage, "encode image", task.Format.String(), err)
	}
	return data, nil
}

func reextract(logger *slog.Logger, dest string, reducer *genmeta.Reducer) string {
	_, blobs, err := readBlobs(dest)
	if err != nil {
		logging.WarnWithContext(logger, "re-extraction failed", "reextract_failed",
			logging.String("dest", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "round trip marked inconsistent"),
		)
	}
	return genmeta.FromBlobs(blobs, reducer).Flattened
}
