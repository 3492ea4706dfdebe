package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/color"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/track"
)

const maxRating = 5

func (s *Server) listTracks(c *gin.Context) {
	tracks, err := s.lib.Tracks(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracks)
}

func (s *Server) addTrack(c *gin.Context) {
	var req AddTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	tr, err := s.lib.AddTrack(c.Request.Context(), req.Location)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTrackResponse(tr))
}

// loadTrack resolves the track of the id path parameter and writes the
// error response on failure.
func (s *Server) loadTrack(c *gin.Context) (*track.Track, bool) {
	id, err := trackIDParam(c)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	tr, err := s.lib.LoadTrack(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return tr, true
}

func (s *Server) getTrack(c *gin.Context) {
	tr, ok := s.loadTrack(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newTrackResponse(tr))
}

func (s *Server) updateTrack(c *gin.Context) {
	var patch TrackPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if err := patch.validate(); err != nil {
		s.respondError(c, err)
		return
	}
	tr, ok := s.loadTrack(c)
	if !ok {
		return
	}
	applyErr := patch.apply(tr)
	// Saving even after a rejected BPM keeps the other fields
	if err := s.lib.SaveTrack(c.Request.Context(), tr); err != nil {
		s.respondError(c, err)
		return
	}
	if applyErr != nil {
		s.respondError(c, applyErr)
		return
	}
	c.JSON(http.StatusOK, newTrackResponse(tr))
}

func (s *Server) purgeTrack(c *gin.Context) {
	id, err := trackIDParam(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.lib.PurgeTrack(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Track removed"})
}

func (s *Server) importTrack(c *gin.Context) {
	id, err := trackIDParam(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	result, err := s.exporter.ImportTrack(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Result: result.String()})
}

func (s *Server) analyzeTrack(c *gin.Context) {
	tr, ok := s.loadTrack(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.lib.AnalyzeTrack(ctx, tr); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.lib.SaveTrack(ctx, tr); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTrackResponse(tr))
}

func (p *TrackPatch) validate() error {
	if p.Color != nil && *p.Color != "" {
		if _, err := color.ParseRGB(*p.Color); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
	}
	if p.Key != nil && *p.Key != "" {
		if _, err := domain.ParseKey(*p.Key); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > maxRating) {
		return fmt.Errorf("%w: rating must be between 0 and %d", ErrInvalidField, maxRating)
	}
	if p.Bpm != nil && (*p.Bpm < 0 || beats.Bpm(*p.Bpm) > beats.BpmMax) {
		return fmt.Errorf("%w: bpm must be between 0 and %v", ErrInvalidField, beats.BpmMax.Value())
	}
	return nil
}

func (p *TrackPatch) apply(tr *track.Track) error {
	setters := []struct {
		value *string
		set   func(string)
	}{
		{p.Artist, tr.SetArtist},
		{p.Title, tr.SetTitle},
		{p.Album, tr.SetAlbum},
		{p.AlbumArtist, tr.SetAlbumArtist},
		{p.Composer, tr.SetComposer},
		{p.Grouping, tr.SetGrouping},
		{p.Year, tr.SetYear},
		{p.TrackNumber, tr.SetTrackNumber},
		{p.TrackTotal, tr.SetTrackTotal},
		{p.Comment, tr.SetComment},
		{p.Genre, func(genre string) { tr.UpdateGenre(genre) }},
		{p.Mood, func(mood string) { tr.UpdateMood(mood) }},
	}
	for _, setter := range setters {
		if setter.value != nil {
			setter.set(*setter.value)
		}
	}

	if p.Key != nil {
		if *p.Key == "" {
			tr.ResetKeys()
		} else {
			// Validated before
			key, _ := domain.ParseKey(*p.Key)
			tr.SetKey(key, domain.KeySourceUser)
		}
	}
	if p.Color != nil {
		if *p.Color == "" {
			tr.SetColor(color.Optional{})
		} else {
			rgb, _ := color.ParseRGB(*p.Color)
			tr.SetColor(color.Some(rgb))
		}
	}
	if p.Rating != nil {
		tr.SetRating(*p.Rating)
	}
	if p.MainCue != nil {
		if *p.MainCue < 0 {
			tr.SetMainCuePosition(audio.InvalidFramePos)
		} else {
			tr.SetMainCuePosition(audio.NewFramePos(*p.MainCue))
		}
	}

	// Unlock before and lock after changing the BPM
	if p.BpmLocked != nil && !*p.BpmLocked {
		tr.SetBpmLocked(false)
	}
	var err error
	if p.Bpm != nil {
		bpm := beats.Bpm(*p.Bpm)
		if !tr.TrySetBpm(bpm) && !tr.Bpm().Equal(bpm, beats.ComparisonExact) {
			if tr.IsBpmLocked() {
				err = ErrBpmLocked
			} else {
				err = ErrNoSampleRate
			}
		}
	}
	if p.BpmLocked != nil && *p.BpmLocked {
		tr.SetBpmLocked(true)
	}
	return err
}
