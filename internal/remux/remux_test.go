package remux

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

type call struct {
	dir  string
	name string
	args []string
	list string
}

// fakeRunner records calls and writes the artifact like ffmpeg would.
func fakeRunner(calls *[]call, out []byte, err error) Runner {
	return func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		list, _ := os.ReadFile(filepath.Join(dir, ListName))
		*calls = append(*calls, call{dir: dir, name: name, args: args, list: string(list)})
		if err != nil {
			return out, err
		}
		return out, os.WriteFile(filepath.Join(dir, ArtifactName), []byte("mp4"), 0644)
	}
}

func TestFFmpeg_Remux(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "10.ts", "2.ts", "1.ts", "files.txt", "3.ts.part")

	var calls []call
	f := NewFFmpeg("", fakeRunner(&calls, nil, nil), discardLogger())

	artifact, err := f.Remux(context.Background(), dir)
	if err != nil {
		t.Fatalf("Remux() error = %v", err)
	}

	if want := filepath.Join(dir, ArtifactName); artifact != want {
		t.Errorf("artifact = %q, want %q", artifact, want)
	}
	if len(calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(calls))
	}

	c := calls[0]
	if c.dir != dir || c.name != "ffmpeg" {
		t.Errorf("ran %q in %q, want ffmpeg in %q", c.name, c.dir, dir)
	}
	if !slices.Equal(c.args, Args()) {
		t.Errorf("args = %v, want %v", c.args, Args())
	}

	wantList := "file '1.ts'\nfile '2.ts'\nfile '10.ts'\n"
	if c.list != wantList {
		t.Errorf("concat list = %q, want %q", c.list, wantList)
	}
}

func TestFFmpeg_RemuxReplacesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "1.ts", ListName, ArtifactName)

	var calls []call
	f := NewFFmpeg("/opt/bin/ffmpeg", fakeRunner(&calls, nil, nil), discardLogger())

	if _, err := f.Remux(context.Background(), dir); err != nil {
		t.Fatalf("Remux() error = %v", err)
	}
	if calls[0].list != "file '1.ts'\n" {
		t.Errorf("concat list = %q, want stale content replaced", calls[0].list)
	}
	if calls[0].name != "/opt/bin/ffmpeg" {
		t.Errorf("binary = %q, want /opt/bin/ffmpeg", calls[0].name)
	}
}

func TestFFmpeg_RemuxFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "1.ts", "2.ts")

	var calls []call
	runErr := errors.New("exit status 1")
	f := NewFFmpeg("", fakeRunner(&calls, []byte("frame=0\nInvalid data found"), runErr), discardLogger())

	_, err := f.Remux(context.Background(), dir)
	if !errors.Is(err, ErrRemux) {
		t.Fatalf("Remux() error = %v, want ErrRemux", err)
	}
	if !errors.Is(err, runErr) {
		t.Errorf("Remux() error = %v, want wrapped runner error", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("Remux() error = %v, want ffmpeg output", err)
	}

	// Segments stay in place for a retry.
	names, _ := Segments(dir)
	if !slices.Equal(names, []string{"1.ts", "2.ts"}) {
		t.Errorf("segments after failure = %v", names)
	}
}

func TestFFmpeg_RemuxNoSegments(t *testing.T) {
	var calls []call
	f := NewFFmpeg("", fakeRunner(&calls, nil, nil), discardLogger())

	_, err := f.Remux(context.Background(), t.TempDir())
	if !errors.Is(err, ErrRemux) {
		t.Fatalf("Remux() error = %v, want ErrRemux", err)
	}
	if len(calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(calls))
	}
}

func TestFFmpeg_RemuxMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "1.ts")

	run := func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		return nil, nil
	}
	f := NewFFmpeg("", run, discardLogger())

	if _, err := f.Remux(context.Background(), dir); !errors.Is(err, ErrRemux) {
		t.Fatalf("Remux() error = %v, want ErrRemux", err)
	}
}

func TestConcatList(t *testing.T) {
	got := string(ConcatList([]string{"1.ts", "it's.ts"}))
	want := "file '1.ts'\nfile 'it'\\''s.ts'\n"
	if got != want {
		t.Errorf("ConcatList() = %q, want %q", got, want)
	}
}
