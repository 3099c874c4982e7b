//go:build !gcp

package auditsink

import (
	"context"
	"fmt"
)

// NewGCSSink reports that GCS export was not compiled in. Build with
// `-tags gcp` to link the real cloud.google.com/go/storage-backed sink.
func NewGCSSink(ctx context.Context, cfg GCSSinkConfig) (Sink, error) {
	return nil, fmt.Errorf("auditsink: GCS export not enabled in this build (use -tags gcp)")
}

// GCSSinkConfig configures a GCS sink; mirrored here so callers compile
// either way regardless of the gcp build tag.
type GCSSinkConfig struct {
	Bucket string
	Prefix string
}
