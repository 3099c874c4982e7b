//go:build gcp

package auditsink

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSSink mirrors issued envelopes to a GCS bucket, one object per
// fingerprint. Only built with `-tags gcp`, matching the teacher's GCS
// artifact store build gating.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSSinkConfig configures a GCSSink.
type GCSSinkConfig struct {
	Bucket string
	Prefix string
}

// NewGCSSink builds a GCSSink using application default credentials.
func NewGCSSink(ctx context.Context, cfg GCSSinkConfig) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("auditsink: new gcs client: %w", err)
	}
	return &GCSSink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Export uploads rec's data under a key derived from its fingerprint.
func (s *GCSSink) Export(ctx context.Context, rec Record) error {
	obj := s.client.Bucket(s.bucket).Object(s.prefix + rec.Fingerprint + ".cbor")
	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := io.Copy(w, bytes.NewReader(rec.Data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("auditsink: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("auditsink: gcs close: %w", err)
	}
	return nil
}
