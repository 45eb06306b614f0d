package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/idlesign/webinardump/internal/ledger"
	"github.com/idlesign/webinardump/internal/observability"
	"github.com/idlesign/webinardump/internal/playlist"
	"github.com/idlesign/webinardump/internal/progress"
)

// DefaultConcurrency is the number of parallel segment downloads.
const DefaultConcurrency = 10

// ErrStartNotFound is returned when the start-from marker names no segment
// of the playlist.
var ErrStartNotFound = errors.New("downloader: start segment not found in playlist")

// ErrNameCollision is returned when two distinct segments would be stored
// under the same file name.
var ErrNameCollision = errors.New("downloader: segment file name collision")

// Options configures the coordinator.
type Options struct {
	// Concurrency bounds the number of in-flight downloads.
	// Default: 10
	Concurrency int

	// StartFrom names the first segment to consider (entry or name).
	// Earlier segments are never fetched, even if absent from the ledger.
	StartFrom string

	// Referer is sent with every segment request.
	Referer string

	// Pacer optionally delays workers after each download.
	Pacer Pacer

	// Progress receives running progress lines.
	// Default: os.Stderr
	Progress io.Writer
}

// Summary describes a finished run.
type Summary struct {
	Scheduled  int
	Downloaded int
	Skipped    int
	Bytes      int64
}

// Coordinator downloads the segments of a playlist with bounded concurrency.
type Coordinator struct {
	client  Getter
	ledger  *ledger.Ledger
	opts    Options
	log     *slog.Logger
	metrics *observability.Metrics
}

// NewCoordinator creates a coordinator. metrics may be nil.
func NewCoordinator(client Getter, l *ledger.Ledger, opts Options, log *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if log == nil {
		log = slog.Default()
	}

	return &Coordinator{
		client:  client,
		ledger:  l,
		opts:    opts,
		log:     log,
		metrics: metrics,
	}
}

// Jobs builds one job per segment at or after the start-from marker.
// Entries sharing a name are scheduled once; distinct names that would
// share a file are an error.
func (c *Coordinator) Jobs(pl *playlist.Playlist, dumpDir string) ([]Job, error) {
	start := 0
	if c.opts.StartFrom != "" {
		start = pl.Index(c.opts.StartFrom)
		if start < 0 {
			return nil, fmt.Errorf("%w: %s", ErrStartNotFound, c.opts.StartFrom)
		}
	}

	seen := make(map[string]struct{}, len(pl.Segments)-start)
	files := make(map[string]string, len(pl.Segments)-start)
	jobs := make([]Job, 0, len(pl.Segments)-start)
	for _, seg := range pl.Segments[start:] {
		if _, ok := seen[seg.Name]; ok {
			c.log.Debug("repeated segment in playlist, scheduled once", slog.String("segment", seg.Entry))
			continue
		}
		seen[seg.Name] = struct{}{}

		file := seg.FileName()
		if other, ok := files[file]; ok {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrNameCollision, other, seg.Name, file)
		}
		files[file] = seg.Name

		jobs = append(jobs, Job{
			Segment:    seg,
			URL:        pl.SegmentURL(seg),
			TargetPath: filepath.Join(dumpDir, file),
			Referer:    c.opts.Referer,
		})
	}

	return jobs, nil
}

// Run downloads the playlist into dumpDir and returns the first failure, if
// any, after all started downloads have finished.
func (c *Coordinator) Run(ctx context.Context, pl *playlist.Playlist, dumpDir string) (Summary, error) {
	if err := os.MkdirAll(dumpDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("create dump dir: %w", err)
	}

	jobs, err := c.Jobs(pl, dumpDir)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scheduled: len(jobs)}
	if len(jobs) == 0 {
		return summary, nil
	}

	segments := NewSegmentDownloader(c.client, c.ledger, c.opts.Pacer, c.log, c.metrics)

	reporter := progress.NewReporter(progress.Options{
		Total:   len(jobs),
		Workers: c.opts.Concurrency,
		Output:  c.opts.Progress,
	})
	reporter.Start()
	defer reporter.Stop()

	c.log.InfoContext(ctx, "downloading segments",
		slog.Int("total", len(jobs)),
		slog.Int("concurrency", c.opts.Concurrency),
		slog.Int("already_done", c.ledger.Len()),
	)

	var (
		g      errgroup.Group
		failed atomic.Bool
		mu     sync.Mutex
	)
	g.SetLimit(c.opts.Concurrency)

	for _, job := range jobs {
		if failed.Load() || ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// A slot may free up only after another job failed.
			if failed.Load() || ctx.Err() != nil {
				return nil
			}

			reporter.SegmentStarted()
			res, err := segments.Download(ctx, job)
			if err != nil {
				if !failed.Swap(true) {
					c.log.ErrorContext(ctx, "segment failed, not starting further segments",
						slog.String("segment", job.Segment.Name),
						slog.String("url", job.URL),
						slog.Any("error", err),
					)
				}
				reporter.SegmentFailed(job.Segment.Name)
				return err
			}

			mu.Lock()
			switch res.Status {
			case StatusSkipped:
				summary.Skipped++
			case StatusDownloaded:
				summary.Downloaded++
				summary.Bytes += res.Bytes
			}
			mu.Unlock()

			if res.Status == StatusSkipped {
				reporter.SegmentSkipped(job.Segment.Name)
			} else {
				reporter.SegmentCompleted(job.Segment.Name, res.Bytes)
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return summary, err
}
