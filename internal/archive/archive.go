// Package archive copies published videos into object storage.
//
// Buckets are addressed by gocloud.dev URLs (s3://, gs://, file://, mem://);
// the caller links the drivers it needs.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
)

// Result describes an archived object.
type Result struct {
	Key    string
	Size   int64
	SHA256 string
}

// Key returns the object key for a published file.
func Key(localPath string) string {
	return filepath.Base(localPath)
}

// Upload copies the file at localPath to bucketURL under its base name.
func Upload(ctx context.Context, bucketURL, localPath string) (*Result, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("archive: open bucket: %w", err)
	}
	defer bucket.Close()

	return UploadToBucket(ctx, bucket, Key(localPath), localPath)
}

// UploadToBucket copies the file at localPath to key in bucket. A partial
// object is removed.
func UploadToBucket(ctx context.Context, bucket *blob.Bucket, key, localPath string) (*Result, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("archive: stat file: %w", err)
	}

	// A cancelled context aborts the write instead of committing it.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer, err := bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: "video/mp4"})
	if err != nil {
		return nil, fmt.Errorf("archive: create writer: %w", err)
	}

	hash := sha256.New()
	written, err := io.Copy(writer, io.TeeReader(f, hash))
	if err != nil {
		cancel()
		writer.Close()
		return nil, fmt.Errorf("archive: write: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("archive: close writer: %w", err)
	}

	if written != info.Size() {
		bucket.Delete(ctx, key)
		return nil, fmt.Errorf("archive: size mismatch: expected %d, got %d", info.Size(), written)
	}

	return &Result{
		Key:    key,
		Size:   written,
		SHA256: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}
