package library

import (
	"time"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/track"
)

// TrackRow is the stored form of a track. The record is kept as a JSON
// document; the columns that are searched are duplicated.
type TrackRow struct {
	ID        int64  `gorm:"primaryKey"`
	Location  string `gorm:"uniqueIndex;not null"`
	Artist    string `gorm:"index"`
	Title     string `gorm:"index"`
	Bpm       float64
	Record    []byte `gorm:"type:blob"`
	Beats     []byte `gorm:"type:blob"`
	Cues      []CueRow `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TrackRow) TableName() string {
	return "tracks"
}

// CueRow is the stored form of a cue. Invalid positions are NULL.
type CueRow struct {
	ID          int64  `gorm:"primaryKey"`
	TrackID     int64  `gorm:"index;not null"`
	Type        string `gorm:"type:varchar(20)"`
	HotCueIndex int
	Start       *float64
	End         *float64
	Label       string
	Color       string `gorm:"type:varchar(7)"`
}

func (CueRow) TableName() string {
	return "cues"
}

func framesOrNil(pos audio.FramePos) *float64 {
	if !pos.IsValid() {
		return nil
	}
	v := pos.Value()
	return &v
}

func framePos(v *float64) audio.FramePos {
	if v == nil {
		return audio.InvalidFramePos
	}
	return audio.NewFramePos(*v)
}

func newCueRow(trackID domain.TrackID, c *track.Cue) CueRow {
	row := CueRow{
		ID:          int64(c.ID()),
		TrackID:     int64(trackID),
		Type:        c.Type().String(),
		HotCueIndex: c.HotCueIndex(),
		Start:       framesOrNil(c.Position()),
		End:         framesOrNil(c.EndPosition()),
		Label:       c.Label(),
	}
	if rgb, ok := c.Color().Get(); ok {
		row.Color = rgb.String()
	}
	return row
}

func (r CueRow) load() *track.Cue {
	rgb := color.None
	if r.Color != "" {
		if parsed, err := color.ParseRGB(r.Color); err == nil {
			rgb = color.Some(parsed)
		}
	}
	return track.LoadCue(domain.CueID(r.ID), cue.ParseType(r.Type), r.HotCueIndex,
		framePos(r.Start), framePos(r.End), r.Label, rgb)
}

func (r TrackRow) grid() (*beats.Beats, error) {
	return beats.Unmarshal(r.Beats)
}
