package pipeline

import (
	"sync"
	"time"

	"sdmeta/internal/imageconv"
	"sdmeta/internal/pathmap"
)

// Task is one unit of conversion work. Tasks are immutable once built.
type Task struct {
	Index      int
	SourcePath string
	RawText    string
	Root       string
	Format     imageconv.Format
	Layout     pathmap.Layout

	// CollidesWith names the earlier source (in sorted order) that maps to
	// the same destination. Such a task fails without writing.
	CollidesWith string
}

// Result records the outcome of one Task.
type Result struct {
	SourcePath           string        `json:"source_path"`
	DestPath             string        `json:"dest_path,omitempty"`
	OriginalFlattened    string        `json:"original_flattened"`
	ReextractedFlattened string        `json:"reextracted_flattened"`
	Consistent           bool          `json:"consistent"`
	Succeeded            bool          `json:"succeeded"`
	Error                string        `json:"error,omitempty"`
	BytesWritten         int64         `json:"bytes_written"`
	Duration             time.Duration `json:"duration_ns"`
}

// Summary holds end-of-run totals.
type Summary struct {
	Total        int   `json:"total"`
	Succeeded    int   `json:"succeeded"`
	Failed       int   `json:"failed"`
	Inconsistent int   `json:"inconsistent"`
	BytesWritten int64 `json:"bytes_written"`
}

// Ledger is the append-only record of a run.
type Ledger struct {
	RunID    string
	Root     string
	Format   imageconv.Format
	Layout   pathmap.Layout
	Started  time.Time
	Finished time.Time

	mu      sync.Mutex
	results []Result
}

// Append adds r and returns the number of results recorded so far.
func (l *Ledger) Append(r Result) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
	return len(l.results)
}

// Results returns a copy of the recorded results in completion order.
func (l *Ledger) Results() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Result, len(l.results))
	copy(out, l.results)
	return out
}

// Len returns the number of recorded results.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

// Summary computes totals over the recorded results. Inconsistent counts
// written files whose metadata did not round-trip; failures are counted
// only under Failed.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s Summary
	for _, r := range l.results {
		s.Total++
		if r.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Succeeded && !r.Consistent {
			s.Inconsistent++
		}
		s.BytesWritten += r.BytesWritten
	}
	return s
}
