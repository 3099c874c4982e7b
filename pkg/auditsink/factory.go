package auditsink

import (
	"context"
	"fmt"

	"github.com/trustmesh/node/pkg/config"
)

// NewFromConfig builds the Sink cfg selects: S3 when AuditS3Bucket is
// set, GCS when AuditGCSBucket is set (requires a `gcp` build), or
// NoopSink when neither is configured. cfg.Validate rejects configuring
// both, so this never has to arbitrate between them.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Sink, error) {
	switch {
	case cfg.AuditS3Bucket != "":
		return NewS3Sink(ctx, S3SinkConfig{
			Bucket:   cfg.AuditS3Bucket,
			Region:   cfg.AuditS3Region,
			Endpoint: cfg.AuditS3Endpoint,
			Prefix:   cfg.AuditPrefix,
		})
	case cfg.AuditGCSBucket != "":
		sink, err := NewGCSSink(ctx, GCSSinkConfig{
			Bucket: cfg.AuditGCSBucket,
			Prefix: cfg.AuditPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("auditsink: %w", err)
		}
		return sink, nil
	default:
		return NoopSink{}, nil
	}
}
