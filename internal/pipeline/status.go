package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/idlesign/webinardump/internal/ledger"
	"github.com/idlesign/webinardump/internal/remux"
)

// ErrNoDump is returned when no dump directory exists for a title.
var ErrNoDump = errors.New("pipeline: no dump in progress")

// Status describes an unfinished dump.
type Status struct {
	Dir        string
	InProgress bool
	Recorded   int
	Segments   int
	Published  bool
}

// Inspect reports the state of the dump of title in targetDir.
func Inspect(ctx context.Context, targetDir, title string, log *slog.Logger) (*Status, error) {
	title, err := SanitizeTitle(title)
	if err != nil {
		return nil, err
	}

	st := &Status{Dir: DumpDir(targetDir, title)}
	if _, err := os.Stat(PublishedPath(targetDir, title)); err == nil {
		st.Published = true
	}

	info, err := os.Stat(st.Dir)
	if err != nil || !info.IsDir() {
		if st.Published {
			return st, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoDump, st.Dir)
	}

	st.InProgress = true

	l, err := ledger.OpenDir(ctx, st.Dir, log)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	st.Recorded = l.Len()

	names, err := remux.Segments(st.Dir)
	if err != nil {
		return nil, err
	}
	st.Segments = len(names)

	return st, nil
}

// Clean removes the dump directory of title. The published file is kept.
func Clean(targetDir, title string) (string, error) {
	title, err := SanitizeTitle(title)
	if err != nil {
		return "", err
	}

	dir := DumpDir(targetDir, title)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoDump, dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove dump dir: %w", err)
	}
	return dir, nil
}
