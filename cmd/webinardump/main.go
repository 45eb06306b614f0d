package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idlesign/webinardump/internal/downloader"
	"github.com/idlesign/webinardump/internal/pipeline"
	"github.com/idlesign/webinardump/internal/playlist"
	"github.com/idlesign/webinardump/internal/remux"
	"github.com/idlesign/webinardump/internal/resolver"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitResolutionError = 3
	ExitEmptyPlaylist   = 4
	ExitDownloadError   = 5
	ExitRemuxError      = 6
	ExitPublishError    = 7
)

// usageError marks errors caused by bad command-line input.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// execute runs the CLI with explicit streams and returns the exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	root := app.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "[webinardump] Interrupted, run the same dump again to resume")
		return ExitGeneralError
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var (
		usage    usageError
		stageErr *pipeline.StageError
	)

	switch {
	case errors.As(err, &usage),
		errors.Is(err, resolver.ErrUnknown),
		errors.Is(err, downloader.ErrStartNotFound),
		strings.HasPrefix(err.Error(), "unknown command"):
		return ExitInvalidArgs
	case errors.Is(err, resolver.ErrResolution):
		return ExitResolutionError
	case errors.Is(err, playlist.ErrEmptyPlaylist), errors.Is(err, playlist.ErrNotPlaylistURL):
		return ExitEmptyPlaylist
	case errors.Is(err, remux.ErrRemux):
		return ExitRemuxError
	case errors.Is(err, pipeline.ErrPublish):
		return ExitPublishError
	case errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageDownloading:
		return ExitDownloadError
	default:
		return ExitGeneralError
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "webinardump",
		Short: "Dump webinar recordings published as HLS playlists",
		Long: `webinardump downloads the segments of an HLS recording concurrently,
resumes interrupted dumps and joins the segments into one video file.

Examples:
  webinardump dump webinarru --param url_video=https://events.webinar.ru/x/y/record-new/1/2 \
      --param url_playlist=https://cdn.example.com/chunklist.m3u8
  webinardump dump yadisk --param url_video=https://disk.yandex.ru/i/abc -t ./videos
  webinardump status "Lecture 1"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Help()
			return usageError{errors.New("a command is required")}
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML configuration file")
	f.StringVarP(&a.flags.TargetDir, "target", "t", "", "Directory to dump to (default \".\")")
	f.DurationVar(&a.flags.Timeout, "timeout", 0, "Request timeout (default 3s)")
	f.IntVarP(&a.flags.Concurrency, "rmax", "c", 0, "Max concurrent requests number (default 10)")
	f.BoolVar(&a.debug, "debug", false, "Show debug information")
	f.StringVar(&a.flags.Log.Format, "log-format", "", "Log format: text or json")
	f.StringVar(&a.flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.StringVar(&a.flags.Archive, "archive", "", "Bucket URL to copy finished videos to (s3://, gs://, file://)")
	f.StringVar(&a.flags.FFmpeg, "ffmpeg", "", "ffmpeg binary (default \"ffmpeg\")")
	f.Float64Var(&a.flags.RateLimit, "rate-limit", 0, "Max requests per second, 0 for unlimited")

	root.AddCommand(
		a.dumpCommand(),
		a.resolversCommand(),
		a.statusCommand(),
		a.cleanCommand(),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
