package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestReporterLines(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(Options{
		Total:   4,
		Workers: 2,
		Output:  &buf,
	})

	reporter.Start()

	reporter.SegmentStarted()
	reporter.SegmentCompleted("1.ts", 256)
	reporter.SegmentStarted()
	reporter.SegmentSkipped("2.ts")
	reporter.SegmentStarted()
	reporter.SegmentFailed("3.ts")

	reporter.Stop()
	reporter.Stop()

	out := buf.String()
	for _, want := range []string{
		"[webinardump] Downloading 4 segments | Workers: 2",
		"[webinardump] Got 1/4 (1.ts) [25.0%]",
		"[webinardump] Skipped 2/4 (2.ts) [50.0%]",
		"[webinardump] Failed 3/4 (3.ts) [75.0%]",
		"Done: 3/4 segments (1 skipped, 1 failed)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Done:") != 1 {
		t.Errorf("expected exactly one final status line:\n%s", out)
	}

	if reporter.Finished() != 3 {
		t.Errorf("expected 3 finished, got %d", reporter.Finished())
	}
	if reporter.Bytes() != 256 {
		t.Errorf("expected 256 bytes, got %d", reporter.Bytes())
	}
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress, got %d", reporter.inProgress.Load())
	}
}

func TestReporterConcurrent(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(Options{Total: 100, Output: &buf})
	reporter.Start()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reporter.SegmentStarted()
			reporter.SegmentCompleted("x.ts", 10)
		}()
	}
	wg.Wait()
	reporter.Stop()

	if reporter.Finished() != 100 {
		t.Errorf("expected 100 finished, got %d", reporter.Finished())
	}
	if !strings.Contains(buf.String(), "Got 100/100 (x.ts) [100.0%]") {
		t.Error("expected final running line at 100%")
	}
}
