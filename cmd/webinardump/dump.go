package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/idlesign/webinardump/internal/downloader"
	"github.com/idlesign/webinardump/internal/observability"
	"github.com/idlesign/webinardump/internal/pipeline"
	"github.com/idlesign/webinardump/internal/remux"
	"github.com/idlesign/webinardump/internal/resolver"
)

func (a *app) dumpCommand() *cobra.Command {
	var (
		params    []string
		startFrom string
		sleepy    bool
		noInput   bool
	)

	cmd := &cobra.Command{
		Use:   "dump <resolver>",
		Short: "Download a video and join it into one file",
		Long: `Resolve a video with the named resolver, download its segments and
remux them into <target>/<title>.mp4.

Interrupted or failed dumps keep <target>/<title>/ and resume from it.
Missing resolver parameters are asked for on the terminal.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := resolver.New(args[0])
			if err != nil {
				return err
			}

			values, err := parseParams(params)
			if err != nil {
				return usageError{err}
			}
			if !noInput {
				if err := a.prompt(r, values); err != nil {
					return usageError{err}
				}
			}
			if err := resolver.CheckParams(r, values); err != nil {
				return usageError{err}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if sleepy {
				cfg.Sleepy = true
			}

			log, err := a.logger(cfg)
			if err != nil {
				return usageError{err}
			}

			ctx := cmd.Context()
			metrics := observability.New()
			if cfg.MetricsAddr != "" {
				metrics.Serve(ctx, log, cfg.MetricsAddr)
			}

			var pacer downloader.Pacer
			if cfg.Sleepy {
				pacer = downloader.Jitter{Delays: downloader.DefaultDelays}
			}

			p := pipeline.New(
				httpClient(cfg, log, metrics),
				remux.NewFFmpeg(cfg.FFmpeg, nil, log),
				pipeline.Options{
					TargetDir:   cfg.TargetDir,
					Concurrency: cfg.Concurrency,
					StartFrom:   startFrom,
					Pacer:       pacer,
					Progress:    a.stderr,
					Archive:     cfg.Archive,
				},
				log,
				metrics,
			)

			res, err := p.Run(ctx, r, values)
			if err != nil {
				return err
			}

			a.printf("Video is ready: %s\n", res.Path)
			if res.Archived != nil {
				a.printf("Archived: %s/%s (sha256 %s)\n", strings.TrimRight(cfg.Archive, "/"), res.Archived.Key, res.Archived.SHA256)
			}
			if res.ArchiveErr != nil {
				fmt.Fprintf(a.stderr, "Warning: archive failed: %v\n", res.ArchiveErr)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&params, "param", "p", nil, "Resolver parameter as key=value (repeatable)")
	f.StringVar(&startFrom, "start-from", "", "Segment to resume from; earlier segments are skipped")
	f.BoolVar(&sleepy, "sleepy", false, "Pause randomly between segment downloads")
	f.BoolVar(&noInput, "no-input", false, "Fail instead of asking for missing parameters")

	return cmd
}

// parseParams turns key=value pairs into a map. Values may contain '='.
func parseParams(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		values[k] = strings.TrimSpace(v)
	}
	return values, nil
}

// prompt asks for every missing required parameter of r.
func (a *app) prompt(r resolver.Resolver, values map[string]string) error {
	var scanner *bufio.Scanner

	for _, p := range r.Params() {
		if !p.Required || values[p.Name] != "" {
			continue
		}
		if scanner == nil {
			scanner = bufio.NewScanner(a.stdin)
			scanner.Buffer(make([]byte, 0, 4096), 1<<20)
		}

		for values[p.Name] == "" {
			fmt.Fprintf(a.stderr, "%s: ", p.Hint)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && err != io.EOF {
					return fmt.Errorf("read %s: %w", p.Name, err)
				}
				return fmt.Errorf("missing parameter %s", p.Name)
			}
			values[p.Name] = strings.TrimSpace(scanner.Text())
		}
	}
	return nil
}
