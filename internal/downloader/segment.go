package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/idlesign/webinardump/internal/ledger"
	"github.com/idlesign/webinardump/internal/observability"
	"github.com/idlesign/webinardump/internal/playlist"
)

// Getter streams the body of a GET request.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) (io.ReadCloser, error)
}

// Job is the download of one segment.
type Job struct {
	Segment    playlist.Segment
	URL        string
	TargetPath string
	Referer    string
}

// Status is the outcome of a successful job.
type Status string

const (
	// StatusDownloaded means the segment was fetched and written.
	StatusDownloaded Status = "downloaded"
	// StatusSkipped means the ledger already held the segment.
	StatusSkipped Status = "skipped"
)

// Result describes a finished job.
type Result struct {
	Status   Status
	Bytes    int64
	Duration time.Duration
}

// FetchError is returned when a segment cannot be fetched or stored.
type FetchError struct {
	Segment string
	URL     string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("segment %s: %v", e.Segment, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Pacer delays a worker after a successful download.
type Pacer interface {
	Pause(ctx context.Context) error
}

// DefaultDelays are the pauses a considerate dump picks from.
var DefaultDelays = []time.Duration{
	time.Second,
	500 * time.Millisecond,
	700 * time.Millisecond,
	600 * time.Millisecond,
}

// Jitter pauses for a random pick of Delays.
type Jitter struct {
	Delays []time.Duration
}

// Pause sleeps for a random delay or until ctx is done.
func (j Jitter) Pause(ctx context.Context) error {
	if len(j.Delays) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(j.Delays[rand.IntN(len(j.Delays))]):
		return nil
	}
}

// SegmentDownloader runs single segment jobs.
type SegmentDownloader struct {
	client  Getter
	ledger  *ledger.Ledger
	pacer   Pacer
	log     *slog.Logger
	metrics *observability.Metrics
}

// NewSegmentDownloader creates a segment downloader. pacer and metrics may
// be nil.
func NewSegmentDownloader(client Getter, l *ledger.Ledger, pacer Pacer, log *slog.Logger, metrics *observability.Metrics) *SegmentDownloader {
	if log == nil {
		log = slog.Default()
	}
	return &SegmentDownloader{
		client:  client,
		ledger:  l,
		pacer:   pacer,
		log:     log,
		metrics: metrics,
	}
}

// Download runs job. Segments already in the ledger are skipped without
// any request.
func (d *SegmentDownloader) Download(ctx context.Context, job Job) (Result, error) {
	name := job.Segment.Name

	if d.ledger.Contains(name) {
		d.log.DebugContext(ctx, "segment already downloaded, skipping", slog.String("segment", name))
		d.metrics.SegmentSkipped()
		return Result{Status: StatusSkipped}, nil
	}

	start := time.Now()
	d.metrics.SegmentStarted()

	n, err := d.fetch(ctx, job)
	if err == nil {
		if markErr := d.ledger.MarkDone(ctx, name); markErr != nil {
			err = &FetchError{Segment: name, URL: job.URL, Err: markErr}
		}
	}

	took := time.Since(start)
	d.metrics.SegmentDone(n, took, err)
	if err != nil {
		return Result{}, err
	}

	d.log.DebugContext(ctx, "segment downloaded",
		slog.String("segment", name),
		slog.Int64("bytes", n),
		slog.Duration("took", took),
	)

	// The segment is already recorded; a canceled pause surfaces through
	// ctx when the next job starts.
	if d.pacer != nil {
		_ = d.pacer.Pause(ctx)
	}

	return Result{Status: StatusDownloaded, Bytes: n, Duration: took}, nil
}

// fetch streams the segment into a temporary file and renames it into place.
// A partial file never carries the segment name.
func (d *SegmentDownloader) fetch(ctx context.Context, job Job) (int64, error) {
	var header http.Header
	if job.Referer != "" {
		header = http.Header{"Referer": {job.Referer}}
	}

	body, err := d.client.Get(ctx, job.URL, header)
	if err != nil {
		return 0, &FetchError{Segment: job.Segment.Name, URL: job.URL, Err: err}
	}
	defer body.Close()

	partPath := job.TargetPath + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return 0, &FetchError{Segment: job.Segment.Name, URL: job.URL, Err: fmt.Errorf("create file: %w", err)}
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return n, &FetchError{Segment: job.Segment.Name, URL: job.URL, Err: fmt.Errorf("copy body: %w", err)}
	}

	if err := os.Rename(partPath, job.TargetPath); err != nil {
		os.Remove(partPath)
		return n, &FetchError{Segment: job.Segment.Name, URL: job.URL, Err: fmt.Errorf("rename file: %w", err)}
	}

	return n, nil
}
