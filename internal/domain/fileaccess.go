package domain

import (
	"os"
	"path/filepath"
)

// FileAccess locates the audio file of a track.
type FileAccess struct {
	Location string `json:"location" yaml:"location"`
}

// NewFileAccess returns the access handle for a cleaned absolute path. If
// the path cannot be made absolute it is only cleaned.
func NewFileAccess(path string) FileAccess {
	if path == "" {
		return FileAccess{}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return FileAccess{Location: filepath.Clean(path)}
}

// IsEmpty reports whether no location is set.
func (f FileAccess) IsEmpty() bool {
	return f.Location == ""
}

// FileName returns the base name of the file.
func (f FileAccess) FileName() string {
	if f.Location == "" {
		return ""
	}
	return filepath.Base(f.Location)
}

// Directory returns the directory containing the file.
func (f FileAccess) Directory() string {
	if f.Location == "" {
		return ""
	}
	return filepath.Dir(f.Location)
}

// Exists reports whether the file is present.
func (f FileAccess) Exists() bool {
	if f.Location == "" {
		return false
	}
	info, err := os.Stat(f.Location)
	return err == nil && !info.IsDir()
}
