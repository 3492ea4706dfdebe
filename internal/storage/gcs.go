package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage implements the Storage interface for Google Cloud Storage
type GCSStorage struct {
	client       *storage.Client
	bucket       string
	objectPrefix string
}

// NewGCSStorage creates a new GCSStorage instance
func NewGCSStorage(ctx context.Context, bucketName, objectPrefix, credentialsFile string) (*GCSStorage, error) {
	var client *storage.Client
	var err error

	// Create a client
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client:       client,
		bucket:       bucketName,
		objectPrefix: strings.Trim(objectPrefix, "/"),
	}, nil
}

func (s *GCSStorage) objectName(name string) (string, error) {
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	objectName := strings.TrimPrefix(cleaned, "/")
	if s.objectPrefix != "" {
		objectName = s.objectPrefix + "/" + objectName
	}
	return objectName, nil
}

// GetReader returns a reader for an object
func (s *GCSStorage) GetReader(ctx context.Context, name string) (io.ReadCloser, error) {
	objectName, err := s.objectName(name)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %s: %w", objectName, err)
	}
	return r, nil
}

// GetWriter returns a writer for an object. The object is created when the
// writer is closed.
func (s *GCSStorage) GetWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	objectName, err := s.objectName(name)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx), nil
}

// FileExists checks if an object exists
func (s *GCSStorage) FileExists(ctx context.Context, name string) bool {
	objectName, err := s.objectName(name)
	if err != nil {
		return false
	}
	_, err = s.client.Bucket(s.bucket).Object(objectName).Attrs(ctx)
	return err == nil
}

// ListFiles lists objects in a directory matching a pattern
func (s *GCSStorage) ListFiles(ctx context.Context, dir string, pattern string) ([]string, error) {
	prefix := strings.Trim(dir, "/")
	if prefix != "" {
		prefix += "/"
	}
	if s.objectPrefix != "" {
		prefix = s.objectPrefix + "/" + prefix
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		// Skip directories (prefixes and objects ending with /)
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		// Get the base filename
		fileName := path.Base(attrs.Name)

		// Match pattern (simple prefix for now)
		if pattern != "" && !strings.HasPrefix(fileName, pattern) {
			continue
		}

		results = append(results, pathJoin(dir, fileName))
	}

	return results, nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *GCSStorage) Remove(ctx context.Context, name string) error {
	objectName, err := s.objectName(name)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %s: %w", objectName, err)
	}
	return nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
