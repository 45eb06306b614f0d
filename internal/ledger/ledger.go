// Package ledger records which segments of a dump have been durably written.
//
// The ledger is a flat text object, one segment name per line, stored in a
// gocloud.dev/blob bucket. A local dump uses a fileblob bucket rooted at the
// dump directory, so the object is the file <dump_dir>/files.txt.
//
// Every MarkDone rewrites the whole object before returning, under a single
// lock shared by all writers. Membership therefore implies the segment file
// was complete when the name was recorded.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

// DefaultKey is the object name of the progress file inside a dump directory.
const DefaultKey = "files.txt"

// ErrCorrupt is logged when the progress file cannot be read or decoded.
// The ledger then starts empty, favoring re-download over refusing to run.
var ErrCorrupt = errors.New("ledger: progress file unreadable")

// Ledger is the set of segment names confirmed written for one dump.
type Ledger struct {
	bucket     *blob.Bucket
	key        string
	ownsBucket bool
	log        *slog.Logger

	mu    sync.Mutex
	names []string
	done  map[string]struct{}
}

// Open loads the ledger stored under key in bucket. A missing object yields
// an empty ledger. An unreadable one is logged and also yields an empty
// ledger.
func Open(ctx context.Context, bucket *blob.Bucket, key string, log *slog.Logger) (*Ledger, error) {
	if bucket == nil {
		return nil, errors.New("ledger: bucket is required")
	}
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = slog.Default()
	}

	l := &Ledger{
		bucket: bucket,
		key:    key,
		log:    log,
		done:   make(map[string]struct{}),
	}

	if err := l.load(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WarnContext(ctx, "progress file ignored, starting from scratch",
			slog.String("key", key),
			slog.Any("error", err),
		)
		l.names = nil
		l.done = make(map[string]struct{})
	}

	return l, nil
}

// OpenDir opens the ledger kept in dir/files.txt, creating dir if needed.
// Close releases the underlying bucket.
func OpenDir(ctx context.Context, dir string, log *slog.Logger) (*Ledger, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: open dir %s: %w", dir, err)
	}

	l, err := Open(ctx, bucket, DefaultKey, log)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	l.ownsBucket = true
	return l, nil
}

func (l *Ledger) load(ctx context.Context) error {
	data, err := l.bucket.ReadAll(ctx, l.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if !utf8.Valid(data) {
		return fmt.Errorf("%w: not valid utf-8", ErrCorrupt)
	}

	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if _, ok := l.done[name]; ok {
			continue
		}
		l.done[name] = struct{}{}
		l.names = append(l.names, name)
	}

	return nil
}

// Contains reports whether name has been recorded as written.
func (l *Ledger) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[name]
	return ok
}

// MarkDone records name and persists the full set before returning.
// Marking a name twice is a no-op. If persisting fails the name is not
// recorded.
func (l *Ledger) MarkDone(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("ledger: empty segment name")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done[name]; ok {
		return nil
	}

	l.done[name] = struct{}{}
	l.names = append(l.names, name)

	data := []byte(strings.Join(l.names, "\n"))
	if err := l.bucket.WriteAll(ctx, l.key, data, &blob.WriterOptions{ContentType: "text/plain; charset=utf-8"}); err != nil {
		delete(l.done, name)
		l.names = l.names[:len(l.names)-1]
		return fmt.Errorf("ledger: persist %s: %w", name, err)
	}

	return nil
}

// Snapshot returns the recorded names in the order they were recorded.
func (l *Ledger) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

// Len returns the number of recorded names.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.names)
}

// Close releases the bucket if the ledger opened it.
func (l *Ledger) Close() error {
	if l.ownsBucket {
		return l.bucket.Close()
	}
	return nil
}
