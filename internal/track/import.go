package track

import (
	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/events"
)

// ImportStatus tells whether imported beats or cues have been applied.
type ImportStatus int

const (
	ImportComplete ImportStatus = iota
	// ImportPending means that the import is deferred until the stream info
	// from the audio source becomes available.
	ImportPending
)

func (s ImportStatus) String() string {
	if s == ImportPending {
		return "pending"
	}
	return "complete"
}

// sourceStreamInfo returns the stream info measured from the audio source.
// The sample rate of the metadata is expected to match.
func (t *Track) sourceStreamInfo(g *guard) audio.StreamInfo {
	g.assertHeld()
	streamInfo := t.record.StreamInfoFromSource
	assert.Debug(streamInfo != nil, "stream info from source is not available")
	if streamInfo == nil {
		return t.record.Metadata.StreamInfo
	}
	assert.Debug(streamInfo.SignalInfo.SampleRate == t.record.Metadata.StreamInfo.SignalInfo.SampleRate,
		"inconsistent sample rate",
		"source", streamInfo.SignalInfo.SampleRate,
		"metadata", t.record.Metadata.StreamInfo.SignalInfo.SampleRate)
	return *streamInfo
}

// importPendingBeats drains the pending importer and installs the grid.
func (t *Track) importPendingBeats(g *guard) bool {
	g.assertHeld()
	importer := t.beatsImporterPending
	if importer == nil {
		return false
	}
	t.beatsImporterPending = nil
	if !assert.Verify(!importer.IsEmpty(), "pending beats importer is empty") {
		return false
	}
	if t.beats != nil && t.record.BpmLocked {
		t.log.Debug("Discarding pending import of beats for BPM-locked track",
			"location", t.fileAccess.Location)
		return false
	}
	grid := importer.ImportBeatsAndApplyTimingOffset(t.fileAccess.Location, t.sourceStreamInfo(g))
	assert.Debug(importer.IsEmpty(), "beats importer has not been drained")
	return t.setBeats(g, grid)
}

// importPendingCueInfos drains the pending importer and replaces the cues.
// Existing cues of types that are not imported are preserved.
func (t *Track) importPendingCueInfos(g *guard) bool {
	g.assertHeld()
	importer := t.cueImporterPending
	if importer == nil {
		return false
	}
	if !assert.Verify(!importer.IsEmpty(), "pending cue importer is empty") {
		t.cueImporterPending = nil
		return false
	}
	streamInfo := t.sourceStreamInfo(g)
	cues := make([]*Cue, 0, importer.Size()+len(t.cues))
	for _, c := range t.cues {
		if !importer.HasCueOfType(c.Type()) {
			cues = append(cues, c)
		}
	}
	for _, info := range importer.ImportCueInfosAndApplyTimingOffset(t.fileAccess.Location, streamInfo.SignalInfo) {
		cues = append(cues, NewCueFromInfo(info, streamInfo.SignalInfo.SampleRate, true))
	}
	assert.Debug(importer.IsEmpty(), "cue importer has not been drained")
	t.cueImporterPending = nil
	return t.setCuePoints(g, cues)
}

// TryImportBeats replaces the beat grid with imported beats. The import is
// deferred until UpdateStreamInfoFromSource if the actual sample rate is not
// known yet; in the meantime the track has no beats. A BPM-locked grid is
// never replaced.
func (t *Track) TryImportBeats(importer beats.Importer, lockBpmAfterSet bool) ImportStatus {
	g := t.lock()
	defer g.unlock()
	if !assert.Verify(importer != nil, "missing beats importer") {
		return ImportComplete
	}
	if !assert.Verify(t.beatsImporterPending == nil || t.beatsImporterPending.IsEmpty(),
		"import of beats is already pending", "location", t.fileAccess.Location) {
		return ImportPending
	}
	if importer.IsEmpty() {
		return ImportComplete
	}
	if t.beats != nil && t.record.BpmLocked {
		t.log.Debug("Track beats are BPM-locked, discarding imported beats",
			"location", t.fileAccess.Location)
		return ImportComplete
	}
	t.beatsImporterPending = importer
	if t.record.HasStreamInfoFromSource() {
		modified := t.importPendingBeats(g)
		if compareAndSet(&t.record.BpmLocked, lockBpmAfterSet) {
			modified = true
		}
		if modified {
			t.afterBeatsAndBpmUpdated(g)
		}
		return ImportComplete
	}
	t.log.Debug("Import of beats is pending until the actual sample rate becomes available",
		"location", t.fileAccess.Location)
	// Existing beats are supposed to be replaced by the imported beats soon.
	t.trySetBeatsMarkDirtyAndUnlock(g, nil, lockBpmAfterSet)
	return ImportPending
}

// BeatsImportStatus reports whether an import of beats is pending.
func (t *Track) BeatsImportStatus() ImportStatus {
	g := t.lock()
	defer g.unlock()
	if t.beatsImporterPending == nil || t.beatsImporterPending.IsEmpty() {
		return ImportComplete
	}
	return ImportPending
}

// ImportCueInfos replaces the cues with imported cues of the same types. The
// import is deferred until UpdateStreamInfoFromSource if the actual sample
// rate is not known yet; in the meantime the track has no cues.
func (t *Track) ImportCueInfos(importer cue.Importer) ImportStatus {
	g := t.lock()
	defer g.unlock()
	if !assert.Verify(importer != nil, "missing cue importer") {
		return ImportComplete
	}
	if !assert.Verify(t.cueImporterPending == nil || t.cueImporterPending.IsEmpty(),
		"import of cues is already pending", "location", t.fileAccess.Location) {
		return ImportPending
	}
	if importer.IsEmpty() {
		// Existing cues are kept.
		return ImportComplete
	}
	t.cueImporterPending = importer
	if t.record.HasStreamInfoFromSource() {
		if t.importPendingCueInfos(g) {
			t.markDirtyAndUnlock(g, t.event(g, events.KindCuesUpdated, nil))
		}
		return ImportComplete
	}
	t.log.Debug("Import of cues is pending until the actual sample rate becomes available",
		"location", t.fileAccess.Location, "count", importer.Size())
	t.setCuePointsMarkDirtyAndUnlock(g, nil)
	return ImportPending
}

// CueImportStatus reports whether an import of cues is pending.
func (t *Track) CueImportStatus() ImportStatus {
	g := t.lock()
	defer g.unlock()
	if t.cueImporterPending == nil || t.cueImporterPending.IsEmpty() {
		return ImportComplete
	}
	return ImportPending
}

// UpdateStreamInfoFromSource stores the stream properties measured after
// opening the audio source and finishes all pending imports.
func (t *Track) UpdateStreamInfoFromSource(streamInfo audio.StreamInfo) {
	g := t.lock()
	defer g.unlock()
	updated := t.record.UpdateStreamInfoFromSource(streamInfo)

	beatsImported := false
	if t.beatsImporterPending != nil && !t.beatsImporterPending.IsEmpty() {
		t.log.Debug("Finishing deferred import of beats",
			"location", t.fileAccess.Location)
		beatsImported = t.importPendingBeats(g)
	}
	cuesImported := false
	if t.cueImporterPending != nil && !t.cueImporterPending.IsEmpty() {
		assert.Debug(len(t.cues) == 0, "cues exist while an import of cues is pending")
		t.log.Debug("Finishing deferred import of cues",
			"location", t.fileAccess.Location, "count", t.cueImporterPending.Size())
		cuesImported = t.importPendingCueInfos(g)
	}
	if !updated && !beatsImported && !cuesImported {
		return
	}

	var published []events.Event
	if updated {
		published = append(published, t.durationEvent(g))
	}
	if beatsImported {
		published = append(published, t.beatsAndBpmEvents(g)...)
	}
	if cuesImported {
		published = append(published, t.event(g, events.KindCuesUpdated, nil))
	}
	t.markDirtyAndUnlock(g, published...)
}

// SetAudioProperties stores the stream properties read from file tags. They
// are overridden by UpdateStreamInfoFromSource later.
func (t *Track) SetAudioProperties(streamInfo audio.StreamInfo) {
	g := t.lock()
	defer g.unlock()
	assert.Debug(!t.record.HasStreamInfoFromSource(),
		"stream info from source is already available", "location", t.fileAccess.Location)
	if compareAndSet(&t.record.Metadata.StreamInfo, streamInfo) {
		t.markDirtyAndUnlock(g, t.durationEvent(g))
	}
}

func (t *Track) durationEvent(g *guard) events.Event {
	return t.event(g, events.KindDurationChanged, t.record.Metadata.StreamInfo.Duration.Seconds())
}
