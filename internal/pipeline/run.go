package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sdmeta/internal/container"
	"sdmeta/internal/exiftag"
	"sdmeta/internal/fileutil"
	"sdmeta/internal/genmeta"
	"sdmeta/internal/imageconv"
	"sdmeta/internal/logging"
	"sdmeta/internal/pathmap"
	"sdmeta/internal/services"
)

// ErrLocked reports that another run holds the conversion lock.
var ErrLocked = errors.New("another conversion run is in progress")

// ProgressFunc observes completed results. Calls are serialized.
type ProgressFunc func(done, total int, r Result)

// Options configures Run.
type Options struct {
	Root        string
	Format      imageconv.Format
	Layout      pathmap.Layout
	Workers     int
	ExcludeDirs []string
	JPEGQuality int
	EXIFMode    exiftag.Mode
	Reducer     *genmeta.Reducer

	// StampFromFilename sets output file times from a timestamp embedded in
	// the source filename.
	StampFromFilename bool
	// LockPath, when set, is held with an exclusive file lock for the run.
	LockPath string
	// RunID identifies the run in logs and reports; generated when empty.
	RunID string

	Logger   *slog.Logger
	Progress ProgressFunc
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Run converts every PNG under opts.Root. The returned error covers
// run-level failures only (bad root, lock held); per-file failures are in
// the ledger.
func Run(ctx context.Context, opts Options) (*Ledger, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Reducer == nil {
		opts.Reducer = genmeta.NewReducer(genmeta.DefaultStopList())
	}
	if opts.ExcludeDirs == nil {
		opts.ExcludeDirs = DefaultExcludeDirs
	}
	ctx = services.WithRunID(ctx, opts.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "pipeline"))

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "convert", "resolve root", opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "convert", "stat root", root, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrIO, "convert", "stat root", root+" is not a directory", nil)
	}
	if opts.Layout == pathmap.LayoutMirror {
		if _, err := pathmap.MirrorRoot(root, opts.Format); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "convert", "mirror root", "", err)
		}
	}

	if opts.LockPath != "" {
		if err := fileutil.EnsureDir(filepath.Dir(opts.LockPath)); err != nil {
			return nil, services.Wrap(services.ErrIO, "convert", "lock", "", err)
		}
		lock := flock.New(opts.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "convert", "lock", opts.LockPath, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w (lock %s)", ErrLocked, opts.LockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("release run lock", logging.Error(err))
			}
		}()
	}

	ledger := &Ledger{
		RunID:   opts.RunID,
		Root:    root,
		Format:  opts.Format,
		Layout:  opts.Layout,
		Started: time.Now(),
	}

	files, err := Discover(root, opts.ExcludeDirs)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "convert", "discover", "", err)
	}
	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("root", root),
		logging.Int("files", len(files)),
		logging.String("format", opts.Format.String()),
		logging.String("layout", opts.Layout.String()),
		logging.Int("workers", opts.workers()),
	)

	tasks := prepareTasks(logger, files, root, opts)
	execute(ctx, logger, tasks, ledger, opts)

	ledger.Finished = time.Now()
	summary := ledger.Summary()
	logger.Info("conversion finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("inconsistent", summary.Inconsistent),
		logging.Int64("bytes_written", summary.BytesWritten),
		logging.Duration("elapsed", ledger.Finished.Sub(ledger.Started)),
	)
	return ledger, nil
}

// prepareTasks reads each source's metadata text once, before any worker
// starts.
func prepareTasks(logger *slog.Logger, files []string, root string, opts Options) []Task {
	tasks := make([]Task, 0, len(files))
	// keyed case-insensitively so a.png and a.PNG collide on every filesystem
	claimed := make(map[string]string, len(files))
	for i, path := range files {
		text, err := container.ReadText(path)
		if err != nil {
			logging.WarnWithContext(logger, "metadata pre-extraction failed",
				"metadata_read_failed",
				logging.String(logging.FieldSource, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file converted without metadata"),
			)
			text = ""
		}
		task := Task{
			Index:      i + 1,
			SourcePath: path,
			RawText:    text,
			Root:       root,
			Format:     opts.Format,
			Layout:     opts.Layout,
		}
		if dest, err := pathmap.Map(path, root, opts.Format, opts.Layout); err == nil {
			key := strings.ToLower(dest)
			if first, taken := claimed[key]; taken {
				task.CollidesWith = first
				logging.WarnWithContext(logger, "destination collision", "destination_collision",
					logging.String(logging.FieldSource, path),
					logging.String("dest", dest),
					logging.String("claimed_by", first),
					logging.String(logging.FieldImpact, "file not converted"),
				)
			} else {
				claimed[key] = path
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func execute(ctx context.Context, logger *slog.Logger, tasks []Task, ledger *Ledger, opts Options) {
	total := len(tasks)
	var progressMu sync.Mutex
	sampler := logging.NewProgressSampler(10)
	record := func(r Result) {
		progressMu.Lock()
		defer progressMu.Unlock()
		done := ledger.Append(r)
		if opts.Progress != nil {
			opts.Progress(done, total, r)
		}
		if sampler.ShouldLog(done, total) {
			logger.Info("conversion progress", logging.Int("done", done), logging.Int("total", total))
		}
	}

	jobs := make(chan Task)
	var wg sync.WaitGroup
	for w := 0; w < opts.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				record(convert(ctx, logger, task, opts))
			}
		}()
	}

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			for _, rest := range tasks[i:] {
				record(cancelled(rest, ctx.Err()))
			}
			close(jobs)
			wg.Wait()
			return
		case jobs <- task:
		}
	}
	close(jobs)
	wg.Wait()
}

func cancelled(task Task, cause error) Result {
	err := services.Wrap(services.ErrTask, "convert", "dispatch", "run cancelled before task started", cause)
	return Result{
		SourcePath:           task.SourcePath,
		OriginalFlattened:    genmeta.Flatten(task.RawText),
		ReextractedFlattened: genmeta.NoInfo,
		Error:                err.Error(),
	}
}
