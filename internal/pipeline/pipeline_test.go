package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"sdmeta/internal/container"
	"sdmeta/internal/exiftag"
	"sdmeta/internal/fileutil"
	"sdmeta/internal/imageconv"
	"sdmeta/internal/pathmap"
	"sdmeta/internal/testsupport"
	"sdmeta/internal/textdecode"
)

const (
	paramsA = "masterpiece, 1girl, smile\nNegative prompt: blurry\nSteps: 20, Sampler: Euler a, CFG scale: 7, Model: foo.safetensors"
	paramsB = "score_9, 1girl, 杰作\nNegative prompt: lowres\nSteps: 30, Sampler: DPM++ 2M Karras, Model: bar"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "shots")
	testsupport.WritePNG(t, filepath.Join(root, "a.png"), testsupport.PNGSpec{Text: paramsA})
	testsupport.WritePNG(t, filepath.Join(root, "day1", "b.png"), testsupport.PNGSpec{Text: paramsB, Chunk: "iTXt", Alpha: true})
	testsupport.WritePNG(t, filepath.Join(root, "day1", "c.PNG"), testsupport.PNGSpec{})
	return root
}

func byName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[filepath.Base(r.SourcePath)] = r
	}
	return out
}

func TestRunMirrorJPEG(t *testing.T) {
	root := writeTree(t)

	ledger, err := Run(context.Background(), Options{
		Root:   root,
		Format: imageconv.FormatJPEG,
		Layout: pathmap.LayoutMirror,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ledger.RunID)

	results := byName(ledger.Results())
	require.Len(t, results, 3)

	destRoot := root + "_jpg"
	require.Equal(t, filepath.Join(destRoot, "a.jpg"), results["a.png"].DestPath)
	require.Equal(t, filepath.Join(destRoot, "day1", "b.jpg"), results["b.png"].DestPath)
	require.Equal(t, filepath.Join(destRoot, "day1", "c.jpg"), results["c.PNG"].DestPath)

	for name, r := range results {
		require.True(t, r.Succeeded, "%s: %s", name, r.Error)
		require.FileExists(t, r.DestPath)
		require.Positive(t, r.BytesWritten)
	}

	require.True(t, results["a.png"].Consistent)
	require.True(t, results["b.png"].Consistent)
	require.False(t, results["c.PNG"].Consistent)
	require.Equal(t, "", results["c.PNG"].OriginalFlattened)

	summary := ledger.Summary()
	require.Equal(t, Summary{Total: 3, Succeeded: 3, Inconsistent: 1, BytesWritten: summary.BytesWritten}, summary)

	_, blobs, err := container.ReadBlobs(results["a.png"].DestPath)
	require.NoError(t, err)
	require.Equal(t, textdecode.KindUserComment, blobs[0].Kind)
	text, ok := textdecode.DecodeUserComment(blobs[0].Data)
	require.True(t, ok)
	require.Equal(t, paramsA, text)
}

func TestRunSubfolderWebP(t *testing.T) {
	root := writeTree(t)

	ledger, err := Run(context.Background(), Options{
		Root:    root,
		Format:  imageconv.FormatWebP,
		Layout:  pathmap.LayoutSubfolder,
		Workers: 2,
	})
	require.NoError(t, err)

	results := byName(ledger.Results())
	require.Equal(t, filepath.Join(root, "png_to_WEBP", "a.webp"), results["a.png"].DestPath)
	require.Equal(t, filepath.Join(root, "day1", "png_to_WEBP", "b.webp"), results["b.png"].DestPath)
	require.True(t, results["a.png"].Consistent)
	require.True(t, results["b.png"].Consistent)

	data, err := os.ReadFile(results["b.png"].DestPath)
	require.NoError(t, err)
	require.Equal(t, container.KindWebP, container.Sniff(data))
}

func TestRunLegacyEXIFStillConsistent(t *testing.T) {
	root := writeTree(t)
	ledger, err := Run(context.Background(), Options{
		Root:     root,
		Format:   imageconv.FormatJPEG,
		Layout:   pathmap.LayoutMirror,
		EXIFMode: exiftag.ModeLegacy,
	})
	require.NoError(t, err)
	results := byName(ledger.Results())
	require.True(t, results["a.png"].Consistent)
	require.True(t, results["b.png"].Consistent)
}

func TestRunIsIdempotent(t *testing.T) {
	root := writeTree(t)
	opts := Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror}

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)
	hashes := map[string]string{}
	for _, r := range first.Results() {
		sum, err := fileutil.HashFile(r.DestPath)
		require.NoError(t, err)
		hashes[r.DestPath] = sum
	}

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, first.Summary().Total, second.Summary().Total)
	for _, r := range second.Results() {
		sum, err := fileutil.HashFile(r.DestPath)
		require.NoError(t, err)
		require.Equal(t, hashes[r.DestPath], sum, r.DestPath)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	root := writeTree(t)
	testsupport.WriteFile(t, filepath.Join(root, "broken.png"), 128)

	ledger, err := Run(context.Background(), Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror})
	require.NoError(t, err)

	results := byName(ledger.Results())
	require.Len(t, results, 4)
	broken := results["broken.png"]
	require.False(t, broken.Succeeded)
	require.False(t, broken.Consistent)
	require.Contains(t, broken.Error, "io failure")
	require.NoFileExists(t, broken.DestPath)
	require.True(t, results["a.png"].Succeeded)

	summary := ledger.Summary()
	require.Equal(t, 4, summary.Total)
	require.Equal(t, 3, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
}

func TestRunSkipsExcludedDirs(t *testing.T) {
	root := writeTree(t)
	testsupport.WritePNG(t, filepath.Join(root, ".bf", "hidden.png"), testsupport.PNGSpec{Text: paramsA})
	testsupport.WritePNG(t, filepath.Join(root, "day1", ".bf", "deep.png"), testsupport.PNGSpec{})

	ledger, err := Run(context.Background(), Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutSubfolder})
	require.NoError(t, err)
	require.Equal(t, 3, ledger.Len())
	require.NoDirExists(t, filepath.Join(root, ".bf", "png_to_JPG"))
}

func TestRunCancelledYieldsResultPerFile(t *testing.T) {
	root := writeTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger, err := Run(ctx, Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror, Workers: 1})
	require.NoError(t, err)
	require.Equal(t, 3, ledger.Len())
	for _, r := range ledger.Results() {
		require.False(t, r.Succeeded)
		require.Contains(t, r.Error, "cancel")
	}
}

func TestRunLockHeld(t *testing.T) {
	root := writeTree(t)
	lockPath := filepath.Join(t.TempDir(), "state", "convert.lock")
	require.NoError(t, fileutil.EnsureDir(filepath.Dir(lockPath)))

	held := flock.New(lockPath)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = Run(context.Background(), Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror, LockPath: lockPath})
	require.ErrorIs(t, err, ErrLocked)
}

func TestRunRejectsMissingRoot(t *testing.T) {
	_, err := Run(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing"), Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror})
	require.Error(t, err)
}

func TestRunStampsFromFilename(t *testing.T) {
	root := filepath.Join(t.TempDir(), "shots")
	testsupport.WritePNG(t, filepath.Join(root, "img_20230405_060708.png"), testsupport.PNGSpec{Text: paramsA})

	ledger, err := Run(context.Background(), Options{
		Root:              root,
		Format:            imageconv.FormatJPEG,
		Layout:            pathmap.LayoutMirror,
		StampFromFilename: true,
	})
	require.NoError(t, err)
	results := ledger.Results()
	require.Len(t, results, 1)

	info, err := os.Stat(results[0].DestPath)
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(time.Date(2023, 4, 5, 6, 7, 8, 0, time.Local)), info.ModTime().String())
}

func TestRunReportsProgress(t *testing.T) {
	root := writeTree(t)
	var (
		mu     sync.Mutex
		dones  []int
		totals []int
	)
	_, err := Run(context.Background(), Options{
		Root:    root,
		Format:  imageconv.FormatJPEG,
		Layout:  pathmap.LayoutMirror,
		Workers: 3,
		Progress: func(done, total int, _ Result) {
			mu.Lock()
			defer mu.Unlock()
			dones = append(dones, done)
			totals = append(totals, total)
		},
	})
	require.NoError(t, err)
	sort.Ints(dones)
	require.Equal(t, []int{1, 2, 3}, dones)
	require.Equal(t, []int{3, 3, 3}, totals)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.png", "a.PNG", "sub/c.png", "notes.txt", "skip/d.png", ".bf/e.png"} {
		testsupport.WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), 4)
	}
	files, err := Discover(root, []string{".bf", "skip"})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.png"),
		filepath.Join(root, "sub", "c.png"),
	}, files)
}

func TestLedgerConcurrentAppend(t *testing.T) {
	var ledger Ledger
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ledger.Append(Result{Succeeded: i%2 == 0, Consistent: i%4 == 0, BytesWritten: 1})
		}(i)
	}
	wg.Wait()
	summary := ledger.Summary()
	require.Equal(t, 50, summary.Total)
	require.Equal(t, 25, summary.Succeeded)
	require.Equal(t, 25, summary.Failed)
	require.Equal(t, 12, summary.Inconsistent)
	require.Equal(t, int64(50), summary.BytesWritten)
}

func TestRunFailsLaterSourceOnDestinationCollision(t *testing.T) {
	root := filepath.Join(t.TempDir(), "shots")
	testsupport.WritePNG(t, filepath.Join(root, "a.png"), testsupport.PNGSpec{Text: paramsA})
	testsupport.WritePNG(t, filepath.Join(root, "a.PNG"), testsupport.PNGSpec{Width: 40, Height: 40})
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	if len(entries) != 2 {
		t.Skip("filesystem is case-insensitive")
	}

	for _, layout := range []pathmap.Layout{pathmap.LayoutMirror, pathmap.LayoutSubfolder} {
		t.Run(layout.String(), func(t *testing.T) {
			opts := Options{Root: root, Format: imageconv.FormatJPEG, Layout: layout, Workers: 2}
			var firstHash string
			for i := 0; i < 5; i++ {
				ledger, err := Run(context.Background(), opts)
				require.NoError(t, err)

				results := byName(ledger.Results())
				require.Len(t, results, 2)
				winner, loser := results["a.PNG"], results["a.png"]
				require.True(t, winner.Succeeded)
				require.False(t, loser.Succeeded)
				require.Empty(t, loser.DestPath)
				require.Contains(t, loser.Error, "io failure")
				require.Contains(t, loser.Error, "collides with "+filepath.Join(root, "a.PNG"))

				sum, err := fileutil.HashFile(winner.DestPath)
				require.NoError(t, err)
				if firstHash == "" {
					firstHash = sum
				}
				require.Equal(t, firstHash, sum)
				require.Equal(t, 1, ledger.Summary().Failed)
			}
		})
	}
}

func TestConvertPanicAfterWriteKeepsSucceeded(t *testing.T) {
	root := filepath.Join(t.TempDir(), "shots")
	testsupport.WritePNG(t, filepath.Join(root, "a.png"), testsupport.PNGSpec{Text: paramsA})

	orig := readBlobs
	readBlobs = func(string) (container.Kind, []textdecode.Blob, error) {
		panic("reader exploded")
	}
	t.Cleanup(func() { readBlobs = orig })

	ledger, err := Run(context.Background(), Options{Root: root, Format: imageconv.FormatJPEG, Layout: pathmap.LayoutMirror, Workers: 1})
	require.NoError(t, err)

	res := byName(ledger.Results())["a.png"]
	require.True(t, res.Succeeded)
	require.False(t, res.Consistent)
	require.Contains(t, res.Error, "panic: reader exploded")
	require.FileExists(t, res.DestPath)

	summary := ledger.Summary()
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Inconsistent)
}
