package domain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jaki95/djtrack/internal/color"
)

// CoverSource tells who chose the cover image.
type CoverSource int

const (
	CoverSourceUnknown CoverSource = iota
	CoverSourceGuessed
	CoverSourceUserSelected
)

// CoverType tells where the cover image is stored.
type CoverType int

const (
	CoverTypeNone CoverType = iota
	// CoverTypeMetadata covers are embedded in the file tags.
	CoverTypeMetadata
	// CoverTypeFile covers are stored in a separate image file.
	CoverTypeFile
)

// CoverInfo references the cover image of a track. Location is relative to
// the directory of the track file and only used for CoverTypeFile.
type CoverInfo struct {
	Source      CoverSource    `json:"source,omitempty" yaml:"source,omitempty"`
	Type        CoverType      `json:"type,omitempty" yaml:"type,omitempty"`
	Location    string         `json:"location,omitempty" yaml:"location,omitempty"`
	Color       color.Optional `json:"color" yaml:"color,omitempty"`
	ImageDigest string         `json:"image_digest,omitempty" yaml:"image_digest,omitempty"`
}

// IsConsistent checks the relations between the fields.
func (c CoverInfo) IsConsistent() bool {
	if c.Type == CoverTypeMetadata && c.Location != "" {
		return false
	}
	return c.Source != CoverSourceUnknown || c.Type == CoverTypeNone
}

// ImageDigest returns the digest that identifies the given image data.
func ImageDigest(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:16])
}

// RefreshImageDigest updates the digest from the loaded image data. It
// returns false if no image is available.
func (c *CoverInfo) RefreshImageDigest(image []byte) bool {
	if len(image) == 0 {
		return false
	}
	c.ImageDigest = ImageDigest(image)
	return true
}
