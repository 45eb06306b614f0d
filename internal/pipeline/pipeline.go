package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idlesign/webinardump/internal/archive"
	"github.com/idlesign/webinardump/internal/downloader"
	whttp "github.com/idlesign/webinardump/internal/http"
	"github.com/idlesign/webinardump/internal/ledger"
	"github.com/idlesign/webinardump/internal/observability"
	"github.com/idlesign/webinardump/internal/playlist"
	"github.com/idlesign/webinardump/internal/remux"
	"github.com/idlesign/webinardump/internal/resolver"
)

// Stage is a step of a dump.
type Stage string

const (
	StageResolving   Stage = "resolving"
	StageListing     Stage = "listing"
	StageDownloading Stage = "downloading"
	StageRemuxing    Stage = "remuxing"
	StagePublishing  Stage = "publishing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// ErrPublish is wrapped by failures to move the artifact into place.
var ErrPublish = errors.New("pipeline: publish failed")

// StageError records the stage a dump failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures a pipeline.
type Options struct {
	// TargetDir holds dump directories and published files.
	TargetDir string

	// Concurrency bounds parallel segment downloads.
	// Default: 10
	Concurrency int

	// StartFrom names the first segment to download.
	StartFrom string

	// Pacer optionally delays workers between segments.
	Pacer downloader.Pacer

	// Progress receives progress lines.
	// Default: os.Stderr
	Progress io.Writer

	// Archive is an optional bucket URL the published file is copied to.
	Archive string

	// OnStage is called on every stage entry.
	OnStage func(Stage)
}

// Result describes a published dump.
type Result struct {
	SessionID string
	Title     string
	Path      string
	Summary   downloader.Summary

	// Archived is set when the archive copy succeeded; ArchiveErr when it
	// failed. Neither affects the local file.
	Archived   *archive.Result
	ArchiveErr error
}

// Pipeline runs dumps with a shared HTTP client.
type Pipeline struct {
	client  *whttp.Client
	remuxer remux.Remuxer
	opts    Options
	log     *slog.Logger
	metrics *observability.Metrics
}

// New creates a pipeline. metrics may be nil.
func New(client *whttp.Client, remuxer remux.Remuxer, opts Options, log *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.TargetDir == "" {
		opts.TargetDir = "."
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		client:  client,
		remuxer: remuxer,
		opts:    opts,
		log:     log,
		metrics: metrics,
	}
}

// session is the state of one dump.
type session struct {
	*Pipeline

	id     string
	log    *slog.Logger
	client *whttp.Client
	stage  Stage
}

func (s *session) enter(ctx context.Context, stage Stage) {
	s.stage = stage
	s.metrics.Stage(string(stage))
	if s.opts.OnStage != nil {
		s.opts.OnStage(stage)
	}
	s.log.InfoContext(ctx, "stage", slog.String("stage", string(stage)))
}

func (s *session) fail(ctx context.Context, err error) error {
	failed := s.stage
	s.enter(ctx, StageFailed)
	s.log.ErrorContext(ctx, "dump failed",
		slog.String("failed_stage", string(failed)),
		slog.Any("error", err),
	)
	return &StageError{Stage: failed, Err: err}
}

// Run resolves params with r and dumps the video. It returns the published
// file path in the result.
func (p *Pipeline) Run(ctx context.Context, r resolver.Resolver, params map[string]string) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, r, params)
	p.metrics.DumpFinished(time.Since(start), err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, r resolver.Resolver, params map[string]string) (*Result, error) {
	id := uuid.NewString()
	s := &session{
		Pipeline: p,
		id:       id,
		log:      p.log.With(slog.String("session_id", id), slog.String("resolver", r.Name())),
		client:   p.client.WithHeaders(r.Headers()),
	}

	s.enter(ctx, StageResolving)
	resolution, err := r.Resolve(ctx, s.client, params)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	title, err := SanitizeTitle(resolution.Title)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("%w: %w", resolver.ErrResolution, err))
	}
	s.log = s.log.With(slog.String("title", title))
	s.log.InfoContext(ctx, "resolved", slog.String("playlist", resolution.PlaylistURL))

	s.enter(ctx, StageListing)
	pl, err := s.list(ctx, resolution)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.enter(ctx, StageDownloading)
	dumpDir := DumpDir(p.opts.TargetDir, title)
	summary, err := s.download(ctx, pl, dumpDir, resolution.Referer)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.enter(ctx, StageRemuxing)
	artifact, err := p.remuxer.Remux(ctx, dumpDir)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.enter(ctx, StagePublishing)
	published, err := s.publish(ctx, artifact, dumpDir, title)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	result := &Result{
		SessionID: id,
		Title:     title,
		Path:      published,
		Summary:   summary,
	}

	if p.opts.Archive != "" {
		result.Archived, result.ArchiveErr = archive.Upload(ctx, p.opts.Archive, published)
		if result.ArchiveErr != nil {
			s.log.WarnContext(ctx, "archive upload failed", slog.Any("error", result.ArchiveErr))
		} else {
			s.log.InfoContext(ctx, "archived",
				slog.String("key", result.Archived.Key),
				slog.String("sha256", result.Archived.SHA256),
			)
		}
	}

	s.enter(ctx, StageDone)
	s.log.InfoContext(ctx, "video is ready", slog.String("path", published))
	return result, nil
}

func (s *session) list(ctx context.Context, resolution resolver.Resolution) (*playlist.Playlist, error) {
	if err := playlist.CheckURL(resolution.PlaylistURL); err != nil {
		return nil, err
	}

	var header http.Header
	if resolution.Referer != "" {
		header = http.Header{"Referer": {resolution.Referer}}
	}

	text, err := s.client.GetText(ctx, resolution.PlaylistURL, header)
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	pl, err := playlist.New(resolution.PlaylistURL, text)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "playlist parsed", slog.Int("segments", len(pl.Segments)))
	return pl, nil
}

func (s *session) download(ctx context.Context, pl *playlist.Playlist, dumpDir, referer string) (downloader.Summary, error) {
	if err := os.MkdirAll(dumpDir, 0755); err != nil {
		return downloader.Summary{}, fmt.Errorf("create dump dir: %w", err)
	}

	l, err := ledger.OpenDir(ctx, dumpDir, s.log)
	if err != nil {
		return downloader.Summary{}, err
	}
	defer l.Close()

	c := downloader.NewCoordinator(s.client, l, downloader.Options{
		Concurrency: s.opts.Concurrency,
		StartFrom:   s.opts.StartFrom,
		Referer:     referer,
		Pacer:       s.opts.Pacer,
		Progress:    s.opts.Progress,
	}, s.log, s.metrics)

	return c.Run(ctx, pl, dumpDir)
}

// publish renames the artifact next to the dump directory and removes the
// directory. A leftover directory is only logged.
func (s *session) publish(ctx context.Context, artifact, dumpDir, title string) (string, error) {
	target, err := filepath.Abs(PublishedPath(s.opts.TargetDir, title))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublish, err)
	}

	if err := os.Rename(artifact, target); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublish, err)
	}

	if err := os.RemoveAll(dumpDir); err != nil {
		s.log.WarnContext(ctx, "failed to remove dump dir", slog.String("dir", dumpDir), slog.Any("error", err))
	}
	return target, nil
}

// SanitizeTitle makes title usable as a single path element.
func SanitizeTitle(title string) (string, error) {
	t := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))

	if t == "" || t == "." || t == ".." {
		return "", fmt.Errorf("unusable title %q", title)
	}
	return t, nil
}

// DumpDir is where the segments of title are kept while downloading.
func DumpDir(targetDir, title string) string {
	return filepath.Join(targetDir, title)
}

// PublishedPath is where the finished video of title is placed.
func PublishedPath(targetDir, title string) string {
	return filepath.Join(targetDir, title+".mp4")
}
