package snapshot

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider archives page snapshots to a Google Cloud Storage bucket under
// a fixed prefix. Authentication uses Application Default Credentials.
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSProvider initializes the GCS client and verifies bucket access, so a
// misconfigured bucket fails at startup instead of mid-run.
func NewGCSProvider(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCSProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}

	return &GCSProvider{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// SavePage uploads the rendered HTML as one GCS object.
func (g *GCSProvider) SavePage(ctx context.Context, pageURL string, html []byte) error {
	object := objectName(pageURL, time.Now())
	if g.prefix != "" {
		object = g.prefix + "/" + object
	}

	wc := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	wc.ContentType = "text/html; charset=utf-8"
	if _, err := wc.Write(html); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			g.logger.Warn("close gcs writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write gcs object %s: %w", object, err)
	}
	// Close finalizes the upload.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close gcs writer for object %s: %w", object, err)
	}
	return nil
}

// Close releases the GCS client.
func (g *GCSProvider) Close() error {
	return g.client.Close()
}
