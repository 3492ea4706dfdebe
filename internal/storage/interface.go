// Package storage stores the documents that belong to tracks but live
// outside of the audio files: metadata sidecars and cover images.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for handling file storage operations
// related to track sidecar documents and cover images. Names are slash
// separated and relative to the root of the storage.
type Storage interface {
	GetReader(ctx context.Context, name string) (io.ReadCloser, error)

	GetWriter(ctx context.Context, name string) (io.WriteCloser, error)

	FileExists(ctx context.Context, name string) bool

	ListFiles(ctx context.Context, dir string, pattern string) ([]string, error)

	Remove(ctx context.Context, name string) error

	Close() error
}

// ReadFile reads a whole document.
func ReadFile(ctx context.Context, s Storage, name string) ([]byte, error) {
	r, err := s.GetReader(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteFile replaces a whole document. The document is only complete after
// the writer has been closed successfully.
func WriteFile(ctx context.Context, s Storage, name string, data []byte) error {
	w, err := s.GetWriter(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
