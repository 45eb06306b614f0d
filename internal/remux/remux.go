// Package remux joins downloaded segment files into one container file.
package remux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrRemux is wrapped by every remux failure. The dump directory is left
// untouched so a remux can be retried without downloading again.
var ErrRemux = errors.New("remux: failed")

const (
	// ListName is the concat list written into the dump directory.
	ListName = "all_chunks.txt"
	// ArtifactName is the container produced in the dump directory.
	ArtifactName = "all_chunks.mp4"
)

// Remuxer turns the segments of a dump directory into one artifact.
type Remuxer interface {
	Remux(ctx context.Context, dumpDir string) (string, error)
}

// Runner executes name with args in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}

// FFmpeg remuxes with the ffmpeg concat demuxer without re-encoding.
type FFmpeg struct {
	binary string
	run    Runner
	log    *slog.Logger
}

// NewFFmpeg creates an ffmpeg remuxer. An empty binary means "ffmpeg" from
// PATH; a nil run executes the real binary.
func NewFFmpeg(binary string, run Runner, log *slog.Logger) *FFmpeg {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	if run == nil {
		run = execRunner
	}
	if log == nil {
		log = slog.Default()
	}
	return &FFmpeg{binary: bin, run: run, log: log}
}

// Args returns the ffmpeg arguments used for a remux.
func Args() []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", ListName,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-y",
		ArtifactName,
	}
}

// Remux writes the concat list and runs ffmpeg in dumpDir. It returns the
// artifact path.
func (f *FFmpeg) Remux(ctx context.Context, dumpDir string) (string, error) {
	names, err := Segments(dumpDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRemux, err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no segments in %s", ErrRemux, dumpDir)
	}

	artifact := filepath.Join(dumpDir, ArtifactName)
	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: remove stale artifact: %w", ErrRemux, err)
	}

	if err := os.WriteFile(filepath.Join(dumpDir, ListName), ConcatList(names), 0644); err != nil {
		return "", fmt.Errorf("%w: write concat list: %w", ErrRemux, err)
	}

	f.log.InfoContext(ctx, "concatenating video", slog.Int("segments", len(names)), slog.String("dir", dumpDir))

	out, err := f.run(ctx, dumpDir, f.binary, Args()...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("%w: %s: %w", ErrRemux, f.binary, err)
		}
		return "", fmt.Errorf("%w: %s: %w: %s", ErrRemux, f.binary, err, lastLine(msg))
	}

	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("%w: artifact missing: %w", ErrRemux, err)
	}

	return artifact, nil
}

// Segments lists the .ts files of dir in natural order.
func Segments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".ts") {
			names = append(names, e.Name())
		}
	}

	SortNatural(names)
	return names, nil
}

// ConcatList renders names in the ffmpeg concat demuxer format.
func ConcatList(names []string) []byte {
	var b bytes.Buffer
	for _, name := range names {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(name, "'", `'\''`))
	}
	return b.Bytes()
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
