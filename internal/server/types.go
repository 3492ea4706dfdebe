package server

import (
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/track"
)

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JobResponse acknowledges a submitted job.
type JobResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

// ResultResponse reports the outcome of a synchronous import or export.
type ResultResponse struct {
	Result string `json:"result"`
}

// AddTrackRequest adds an audio file to the library.
type AddTrackRequest struct {
	Location string `json:"location" binding:"required"`
}

// CueResponse is a cue of a track. Positions are frames.
type CueResponse struct {
	ID          domain.CueID   `json:"id,omitempty"`
	Type        cue.Type       `json:"type"`
	HotCueIndex int            `json:"hotCueIndex"`
	Start       audio.FramePos `json:"start"`
	End         audio.FramePos `json:"end"`
	Label       string         `json:"label,omitempty"`
	Color       color.Optional `json:"color"`
}

// TrackResponse is a track with its record and cues.
type TrackResponse struct {
	ID       domain.TrackID     `json:"id"`
	Location string             `json:"location"`
	Info     string             `json:"info"`
	Bpm      float64            `json:"bpm"`
	Key      string             `json:"key,omitempty"`
	Duration string             `json:"duration"`
	Dirty    bool               `json:"dirty"`
	Record   domain.TrackRecord `json:"record"`
	Cues     []CueResponse      `json:"cues"`
}

func newTrackResponse(tr *track.Track) TrackResponse {
	record, dirty := tr.Record()
	response := TrackResponse{
		ID:       tr.ID(),
		Location: tr.Location(),
		Info:     tr.Info(),
		Key:      tr.KeyText(),
		Duration: tr.DurationText(audio.PrecisionSeconds),
		Dirty:    dirty,
		Record:   record,
		Cues:     []CueResponse{},
	}
	if bpm := tr.Bpm(); bpm.IsValid() {
		response.Bpm = bpm.Value()
	}
	for _, c := range tr.CuePoints() {
		response.Cues = append(response.Cues, CueResponse{
			ID:          c.ID(),
			Type:        c.Type(),
			HotCueIndex: c.HotCueIndex(),
			Start:       c.Position(),
			End:         c.EndPosition(),
			Label:       c.Label(),
			Color:       c.Color(),
		})
	}
	return response
}

// TrackPatch changes single fields of a track. Absent fields are kept, an
// empty color clears the color.
type TrackPatch struct {
	Artist      *string  `json:"artist"`
	Title       *string  `json:"title"`
	Album       *string  `json:"album"`
	AlbumArtist *string  `json:"albumArtist"`
	Genre       *string  `json:"genre"`
	Composer    *string  `json:"composer"`
	Grouping    *string  `json:"grouping"`
	Year        *string  `json:"year"`
	TrackNumber *string  `json:"trackNumber"`
	TrackTotal  *string  `json:"trackTotal"`
	Comment     *string  `json:"comment"`
	Mood        *string  `json:"mood"`
	Key         *string  `json:"key"`
	Color       *string  `json:"color"`
	Rating      *int     `json:"rating"`
	Bpm         *float64 `json:"bpm"`
	BpmLocked   *bool    `json:"bpmLocked"`

	// MainCue is a frame position, negative values remove the main cue.
	MainCue *float64 `json:"mainCue"`
}
