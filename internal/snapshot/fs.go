package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FSProvider archives page snapshots as files under a local directory.
type FSProvider struct {
	root string
}

// NewFSProvider creates the snapshot directory if needed.
func NewFSProvider(root string) (*FSProvider, error) {
	if root == "" {
		return nil, fmt.Errorf("snapshot dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FSProvider{root: root}, nil
}

// SavePage writes the rendered HTML with a temp-then-rename so readers never
// observe partial files.
func (f *FSProvider) SavePage(_ context.Context, pageURL string, html []byte) error {
	path := filepath.Join(f.root, objectName(pageURL, time.Now()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, html, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot %s: %w", path, err)
	}
	return nil
}

// Close is a no-op for the filesystem provider.
func (f *FSProvider) Close() error { return nil }
