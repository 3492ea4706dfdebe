package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStorage implements the Storage interface for local filesystem
type LocalFileStorage struct {
	rootDir string
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(rootDir string) (*LocalFileStorage, error) {
	// Ensure the root directory exists
	if err := os.MkdirAll(rootDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", rootDir, err)
	}

	return &LocalFileStorage{rootDir: rootDir}, nil
}

// resolve maps a storage name onto a path below the root directory.
func (s *LocalFileStorage) resolve(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(name, "/")))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.rootDir, cleaned), nil
}

// GetReader returns a reader for the specified file
func (s *LocalFileStorage) GetReader(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

// GetWriter returns a writer for the specified file. The content replaces
// the file when the writer is closed.
func (s *LocalFileStorage) GetWriter(_ context.Context, name string) (io.WriteCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &renameOnClose{File: f, target: path}, nil
}

type renameOnClose struct {
	*os.File
	target string
}

func (w *renameOnClose) Close() error {
	if err := w.File.Close(); err != nil {
		os.Remove(w.File.Name())
		return err
	}
	if err := os.Rename(w.File.Name(), w.target); err != nil {
		os.Remove(w.File.Name())
		return fmt.Errorf("failed to replace %s: %w", w.target, err)
	}
	return nil
}

// FileExists checks if a file exists
func (s *LocalFileStorage) FileExists(_ context.Context, name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// ListFiles lists files in a directory matching a pattern
func (s *LocalFileStorage) ListFiles(_ context.Context, dir string, pattern string) ([]string, error) {
	listDir := s.rootDir
	if dir != "" {
		resolved, err := s.resolve(dir)
		if err != nil {
			return nil, err
		}
		listDir = resolved
	}

	files, err := os.ReadDir(listDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []string
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}

		// Match pattern (simple prefix for now)
		if pattern != "" && !strings.HasPrefix(file.Name(), pattern) {
			continue
		}

		results = append(results, pathJoin(dir, file.Name()))
	}

	return results, nil
}

// Remove deletes a file. Missing files are not an error.
func (s *LocalFileStorage) Remove(_ context.Context, name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func (s *LocalFileStorage) Close() error {
	return nil
}

func pathJoin(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
