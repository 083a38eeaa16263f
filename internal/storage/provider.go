package storage

import (
	"context"
	"io"
)

// Provider defines where exported result artifacts are written.
type Provider interface {
	// StreamToFile returns a WriteCloser. Data written to it is streamed
	// to the storage destination under key. The returned channel receives
	// a single error (or nil) when the storage operation completes.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens the stored artifact for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a viewable/downloadable URL for the artifact.
	GetDownloadURL(key string) string
}
