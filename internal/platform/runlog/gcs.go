package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"cloud.google.com/go/storage"
)

// GCSMirror copies run log files to a Cloud Storage bucket.
type GCSMirror struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Mirror = (*GCSMirror)(nil)

// NewGCSMirror creates a GCSMirror using Application Default Credentials.
func NewGCSMirror(ctx context.Context, bucket, prefix string) (*GCSMirror, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSMirror{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the storage client.
func (m *GCSMirror) Close() error {
	return m.client.Close()
}

// Put uploads data to gs://<bucket>/<prefix>/<run>/<name>.
func (m *GCSMirror) Put(ctx context.Context, run, name string, data []byte) error {
	key := ObjectKey(m.prefix, run, name)
	w := m.client.Bucket(m.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"

	if _, err := w.Write(data); err != nil {
		if cerr := w.Close(); cerr != nil {
			slog.Warn("failed to close gcs writer", "object", key, "error", cerr)
		}
		return err
	}
	return w.Close()
}

// ObjectKey joins the object path, skipping an empty prefix.
func ObjectKey(prefix, run, name string) string {
	return path.Join(prefix, run, name)
}
