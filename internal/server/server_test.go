package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/config"
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/job"
	"github.com/jaki95/djtrack/internal/library"
	"github.com/jaki95/djtrack/internal/metadata"
	"github.com/jaki95/djtrack/internal/metrics"
	"github.com/jaki95/djtrack/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	assert.SetStrict(true)
	goleak.VerifyTestMain(m)
}

type testServer struct {
	*Server
	store storage.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Metadata.Source = metadata.SourceSidecar

	registry := prometheus.NewRegistry()
	m, err := metrics.NewTrackMetrics(registry)
	require.NoError(t, err)

	lib, err := library.Open(":memory:", library.Options{CleanupInterval: -1, Metrics: m})
	require.NoError(t, err)
	store, err := storage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	exporter := library.NewExporter(lib, store, cfg.Metadata.Source)
	runner := job.NewRunner(job.NewManager(), exporter, m)
	t.Cleanup(func() {
		runner.Wait()
		lib.Close()
		store.Close()
	})

	return &testServer{
		Server: New(cfg, Deps{Library: lib, Exporter: exporter, Runner: runner, Registry: registry}),
		store:  store,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *testServer) addTrack(t *testing.T, location string) TrackResponse {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/tracks", AddTrackRequest{Location: location})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[TrackResponse](t, rr)
}

func writeTestWAV(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           make([]int, 2*44100),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	testifyassert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodOptions, "/api/tracks", nil)
	testifyassert.Equal(t, http.StatusNoContent, rr.Code)
	testifyassert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.addTrack(t, "/music/track.flac")

	rr := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	testifyassert.Contains(t, rr.Body.String(), "djtrack_live_tracks 1")
}

func TestAddAndGetTrack(t *testing.T) {
	s := newTestServer(t)
	added := s.addTrack(t, "/music/track.flac")
	testifyassert.True(t, added.ID.IsValid())
	testifyassert.Equal(t, "/music/track.flac", added.Location)
	testifyassert.Empty(t, added.Cues)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "existing", method: http.MethodGet, path: "/api/tracks/" + added.ID.String(), status: http.StatusOK},
		{name: "missing", method: http.MethodGet, path: "/api/tracks/999", status: http.StatusNotFound},
		{name: "invalid id", method: http.MethodGet, path: "/api/tracks/abc", status: http.StatusBadRequest},
		{name: "duplicate", method: http.MethodPost, path: "/api/tracks", body: AddTrackRequest{Location: "/music/track.flac"}, status: http.StatusConflict},
		{name: "no location", method: http.MethodPost, path: "/api/tracks", body: map[string]string{}, status: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, path: "/api/tracks", body: "invalid json", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.body)
			testifyassert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	rr := s.do(t, http.MethodGet, "/api/tracks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summaries := decode[[]library.Summary](t, rr)
	require.Len(t, summaries, 1)
	testifyassert.Equal(t, added.ID, summaries[0].ID)
}

func TestUpdateTrack(t *testing.T) {
	s := newTestServer(t)
	added := s.addTrack(t, "/music/track.flac")
	path := "/api/tracks/" + added.ID.String()

	rr := s.do(t, http.MethodPatch, path, map[string]any{
		"artist": "Artist",
		"title":  "Title",
		"genre":  "House",
		"color":  "#ff0000",
		"rating": 4,
		"key":    "8A",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[TrackResponse](t, rr)
	testifyassert.Equal(t, "Artist - Title", updated.Info)
	testifyassert.Equal(t, "House", updated.Record.Metadata.TrackInfo.Genre)
	testifyassert.Equal(t, 4, updated.Record.Rating)
	testifyassert.True(t, updated.Record.Color.IsSet())
	testifyassert.NotEmpty(t, updated.Key)
	testifyassert.False(t, updated.Dirty, "patched tracks are saved")

	// Without stream info there is no grid to derive a BPM from
	rr = s.do(t, http.MethodPatch, path, map[string]any{"bpm": 124, "comment": "kept"})
	testifyassert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = s.do(t, http.MethodGet, path, nil)
	testifyassert.Equal(t, "kept", decode[TrackResponse](t, rr).Record.Metadata.TrackInfo.Comment)

	rr = s.do(t, http.MethodPatch, path, map[string]any{"color": ""})
	require.Equal(t, http.StatusOK, rr.Code)
	testifyassert.False(t, decode[TrackResponse](t, rr).Record.Color.IsSet())

	invalid := []map[string]any{
		{"color": "red"},
		{"rating": 6},
		{"bpm": -1},
		{"key": "H#"},
	}
	for _, patch := range invalid {
		rr := s.do(t, http.MethodPatch, path, patch)
		testifyassert.Equal(t, http.StatusBadRequest, rr.Code, "%v", patch)
	}
	testifyassert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/tracks/999", map[string]any{"title": "x"}).Code)
}

func TestAnalyzeAndLockBpm(t *testing.T) {
	s := newTestServer(t)
	location := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, location)
	added := s.addTrack(t, location)
	path := "/api/tracks/" + added.ID.String()

	rr := s.do(t, http.MethodPost, path+"/analyze", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testifyassert.Equal(t, "0:01", decode[TrackResponse](t, rr).Duration)

	rr = s.do(t, http.MethodPatch, path, map[string]any{"bpm": 124, "bpmLocked": true, "mainCue": 22050})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	locked := decode[TrackResponse](t, rr)
	testifyassert.Equal(t, 124.0, locked.Bpm)
	testifyassert.True(t, locked.Record.BpmLocked)
	require.Len(t, locked.Cues, 1)
	testifyassert.Equal(t, 22050.0, locked.Cues[0].Start.Value())

	rr = s.do(t, http.MethodPatch, path, map[string]any{"bpm": 128})
	testifyassert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPatch, path, map[string]any{"bpm": 128, "bpmLocked": false})
	require.Equal(t, http.StatusOK, rr.Code)
	testifyassert.Equal(t, 128.0, decode[TrackResponse](t, rr).Bpm)

	mp3 := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte("not audio"), 0644))
	other := s.addTrack(t, mp3)
	rr = s.do(t, http.MethodPost, "/api/tracks/"+other.ID.String()+"/analyze", nil)
	testifyassert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestPurgeTrack(t *testing.T) {
	s := newTestServer(t)
	added := s.addTrack(t, "/music/track.flac")
	path := "/api/tracks/" + added.ID.String()

	testifyassert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, nil).Code)
	testifyassert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil).Code)
	testifyassert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil).Code)
}

func TestExportJob(t *testing.T) {
	s := newTestServer(t)
	added := s.addTrack(t, "/music/track.flac")
	rr := s.do(t, http.MethodPatch, "/api/tracks/"+added.ID.String(), map[string]any{"title": "Title"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/jobs/export", map[string]any{
		"track_ids": []int64{int64(added.ID)},
		"force":     true,
	})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	submitted := decode[JobResponse](t, rr)
	s.runner.Wait()

	rr = s.do(t, http.MethodGet, "/api/jobs/"+submitted.JobID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[job.Status](t, rr)
	testifyassert.Equal(t, job.StatusCompleted, status.Status)
	testifyassert.Equal(t, []job.TrackResult{{TrackID: added.ID, Result: job.ResultSucceeded}}, status.Results)
	testifyassert.True(t, s.store.FileExists(context.Background(), metadata.SidecarName(added.Location)))

	rr = s.do(t, http.MethodPost, "/api/tracks/"+added.ID.String()+"/import", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	testifyassert.Equal(t, "succeeded", decode[ResultResponse](t, rr).Result)

	rr = s.do(t, http.MethodGet, "/api/jobs?page=1&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	listing := decode[job.Response](t, rr)
	testifyassert.Equal(t, 1, listing.TotalJobs)
	testifyassert.Equal(t, 5, listing.PageSize)

	rr = s.do(t, http.MethodPost, "/api/jobs/"+submitted.JobID+"/cancel", nil)
	testifyassert.Equal(t, http.StatusBadRequest, rr.Code, "finished jobs cannot be cancelled")
}

func TestExportJobValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "no tracks", body: map[string]any{"track_ids": []int64{}}, status: http.StatusBadRequest},
		{name: "missing field", body: map[string]any{}, status: http.StatusBadRequest},
		{name: "invalid id", body: map[string]any{"track_ids": []int64{0}}, status: http.StatusBadRequest},
		{name: "invalid json", body: "invalid json", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/jobs/export", tt.body)
			testifyassert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	testifyassert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/jobs/missing", nil).Code)
	testifyassert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/jobs/missing/cancel", nil).Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{library.ErrTrackNotFound, http.StatusNotFound},
		{job.ErrNotFound, http.StatusNotFound},
		{library.ErrTrackExists, http.StatusConflict},
		{ErrBpmLocked, http.StatusConflict},
		{job.ErrInvalidState, http.StatusBadRequest},
		{library.ErrClosed, http.StatusServiceUnavailable},
		{os.ErrPermission, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		testifyassert.Equal(t, tt.status, statusForError(tt.err), tt.err.Error())
	}
}
