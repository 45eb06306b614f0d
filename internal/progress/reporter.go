package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Prefix starts every progress line.
const Prefix = "[webinardump]"

const (
	verbGot     = "Got"
	verbSkipped = "Skipped"
	verbFailed  = "Failed"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of segments scheduled for this run.
	Total int

	// Workers is the number of parallel workers (for display).
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	finished   int
	skipped    int
	failed     int
	bytes      atomic.Int64
	inProgress atomic.Int32
	startTime  time.Time
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	return &Reporter{
		opts: opts,
	}
}

// Start prints the header and starts the clock.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = time.Now()
	fmt.Fprintf(r.opts.Output, "%s Downloading %d segments | Workers: %d\n", Prefix, r.opts.Total, r.opts.Workers)
}

// Stop prints the final status. Calling it twice is a no-op.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	r.printFinalStatus()
}

// SegmentStarted marks a segment as in progress.
func (r *Reporter) SegmentStarted() {
	r.inProgress.Add(1)
}

// SegmentCompleted marks a segment as downloaded.
func (r *Reporter) SegmentCompleted(name string, size int64) {
	r.bytes.Add(size)
	r.inProgress.Add(-1)
	r.finish(verbGot, name)
}

// SegmentSkipped marks a segment as already present on disk.
func (r *Reporter) SegmentSkipped(name string) {
	r.inProgress.Add(-1)
	r.finish(verbSkipped, name)
}

// SegmentFailed marks a segment as failed.
func (r *Reporter) SegmentFailed(name string) {
	r.inProgress.Add(-1)
	r.finish(verbFailed, name)
}

// Finished returns the number of segments that reached a final state.
func (r *Reporter) Finished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Bytes returns the number of bytes downloaded so far.
func (r *Reporter) Bytes() int64 {
	return r.bytes.Load()
}

func (r *Reporter) finish(verb, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished++
	switch verb {
	case verbSkipped:
		r.skipped++
	case verbFailed:
		r.failed++
	}

	var percent float64
	if r.opts.Total > 0 {
		percent = float64(r.finished) * 100 / float64(r.opts.Total)
	}

	fmt.Fprintf(r.opts.Output, "%s %s %d/%d (%s) [%.1f%%]\n", Prefix, verb, r.finished, r.opts.Total, name, percent)
}

// printFinalStatus outputs the final status. Must be called with r.mu held.
func (r *Reporter) printFinalStatus() {
	completed := r.bytes.Load()
	duration := time.Since(r.startTime)
	var avgSpeed float64
	if secs := duration.Seconds(); secs > 0 {
		avgSpeed = float64(completed) / secs
	}

	fmt.Fprintf(r.opts.Output, "%s Done: %d/%d segments (%d skipped, %d failed) | %s | Total time: %s | Average speed: %s/s\n",
		Prefix,
		r.finished,
		r.opts.Total,
		r.skipped,
		r.failed,
		formatBytes(completed),
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
