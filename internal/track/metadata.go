package track

import (
	"slices"
	"time"

	"github.com/jaki95/djtrack/internal/assert"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/events"
)

// allMetadataEvents captures the values of all metadata fields.
func (t *Track) allMetadataEvents(g *guard) []events.Event {
	g.assertHeld()
	info := t.record.Metadata.TrackInfo
	album := t.record.Metadata.AlbumInfo
	return []events.Event{
		t.event(g, events.KindArtistChanged, info.Artist),
		t.event(g, events.KindTitleChanged, info.Title),
		t.event(g, events.KindAlbumChanged, album.Title),
		t.event(g, events.KindAlbumArtistChanged, album.Artist),
		t.event(g, events.KindGenreChanged, info.Genre),
		t.event(g, events.KindComposerChanged, info.Composer),
		t.event(g, events.KindGroupingChanged, info.Grouping),
		t.event(g, events.KindYearChanged, info.Year),
		t.event(g, events.KindTrackNumberChanged, info.TrackNumber),
		t.event(g, events.KindTrackTotalChanged, info.TrackTotal),
		t.event(g, events.KindCommentChanged, info.Comment),
		t.event(g, events.KindBpmChanged, info.Bpm.Value()),
		t.event(g, events.KindTimesPlayedChanged, t.record.PlayCounter.TimesPlayed),
		t.durationEvent(g),
		t.event(g, events.KindInfoChanged, t.info(g)),
		t.event(g, events.KindKeyChanged, t.record.GlobalKeyText()),
	}
}

// ReplaceMetadataFromSource replaces the metadata with tags read from the
// file. The current BPM and key are preserved unless the track has no valid
// beat grid or the imported key is valid. Embedded beats and cues are
// imported afterwards in separate steps.
func (t *Track) ReplaceMetadataFromSource(imported domain.TrackMetadata, syncedAt time.Time) {
	embedded := imported.TrackInfo.EmbeddedTags
	beatsImporter := embedded.ImportBeats()
	cueImporter := embedded.ImportCueInfos()

	importedBpm := imported.TrackInfo.Bpm
	importedKeyText := imported.TrackInfo.Key
	_, keyErr := domain.ParseKey(importedKeyText)

	g := t.lock()
	defer g.unlock()

	// The BPM must always be set together with the beat grid and the key
	// text must be validated.
	imported.TrackInfo.Bpm = t.bpm(g)
	imported.TrackInfo.Key = t.record.Metadata.TrackInfo.Key

	oldReplayGain := t.record.Metadata.TrackInfo.ReplayGain
	modified := t.record.ReplaceMetadataFromSource(imported, syncedAt)
	newReplayGain := t.record.Metadata.TrackInfo.ReplayGain

	// The BPM of file tags might be imprecise, e.g. integer values in ID3v2.
	// It is only used if there is no valid beat grid yet.
	beatsModified := false
	if importedBpm.IsValid() && !t.beats.Bpm().IsValid() {
		beatsModified = t.trySetBpm(g, importedBpm)
	}
	keysModified := false
	if keyErr == nil {
		keysModified = t.record.UpdateGlobalKeyText(importedKeyText, domain.KeySourceFileMetadata) == domain.UpdateUpdated
	}
	colorModified := false
	if embedded.Color.IsSet() {
		colorModified = compareAndSet(&t.record.Color, embedded.Color)
	}
	if !modified && !beatsModified && !keysModified && !colorModified {
		return
	}

	var published []events.Event
	if beatsModified {
		published = append(published, t.beatsAndBpmEvents(g)...)
	}
	if keysModified {
		published = append(published, t.event(g, events.KindKeyChanged, t.record.GlobalKeyText()))
	}
	if oldReplayGain != newReplayGain {
		published = append(published, t.event(g, events.KindReplayGainUpdated, newReplayGain))
	}
	if colorModified {
		published = append(published, t.event(g, events.KindColorUpdated, t.record.Color))
	}
	published = append(published, t.allMetadataEvents(g)...)
	t.markDirtyAndUnlock(g, published...)

	if beatsImporter != nil {
		t.log.Debug("Importing embedded beats", "location", t.Location())
		t.TryImportBeats(beatsImporter, embedded.BpmLocked)
	}
	if cueImporter != nil {
		t.log.Debug("Importing embedded cues", "location", t.Location())
		t.ImportCueInfos(cueImporter)
	}
}

// MergeExtraMetadataFromSource fills tags that are not stored in the library
// yet. It never touches BPM, key or beats.
func (t *Track) MergeExtraMetadataFromSource(imported domain.TrackMetadata) bool {
	g := t.lock()
	defer g.unlock()
	if !t.record.MergeExtraMetadataFromSource(imported) {
		return false
	}
	t.markDirtyAndUnlock(g, t.allMetadataEvents(g)...)
	return true
}

// Metadata returns a copy of the metadata and whether it has been
// synchronized with the file tags.
func (t *Track) Metadata() (domain.TrackMetadata, bool) {
	g := t.lock()
	defer g.unlock()
	return t.record.Metadata.Clone(), t.record.IsSourceSynchronized()
}

// Record returns a copy of the record and the dirty flag, read consistently.
func (t *Track) Record() (domain.TrackRecord, bool) {
	g := t.lock()
	defer g.unlock()
	return t.record.Clone(), t.dirty
}

// SaveSnapshot is a consistent copy of the persistent state of a track.
type SaveSnapshot struct {
	Record   domain.TrackRecord
	Location string
	Beats    *beats.Beats
	Cues     []*Cue
	Dirty    bool
	// Revision identifies the modification state for MarkCleanIfUnchanged.
	Revision uint64
}

// SnapshotForSave captures everything the library stores in a single
// critical section.
func (t *Track) SnapshotForSave() SaveSnapshot {
	g := t.lock()
	defer g.unlock()
	return SaveSnapshot{
		Record:   t.record.Clone(),
		Location: t.fileAccess.Location,
		Beats:    t.beats,
		Cues:     slices.Clone(t.cues),
		Dirty:    t.dirty,
		Revision: t.revision,
	}
}

// ReplaceRecord swaps the whole record, e.g. after loading it from the
// library. The beat grid is either replaced by grid or derived from the BPM
// of the new record. The stored BPM is always taken from the resulting grid.
// The id of the track is kept; use InitID for assigning it.
func (t *Track) ReplaceRecord(newRecord domain.TrackRecord, grid *beats.Beats) bool {
	newRecord = newRecord.Clone()

	g := t.lock()
	defer g.unlock()
	if !assert.Verify(!newRecord.ID.IsValid() || newRecord.ID == t.record.ID,
		"cannot change track id", "from", t.record.ID, "to", newRecord.ID) {
		return false
	}
	newRecord.ID = t.record.ID
	recordUnchanged := t.record.Equal(newRecord)
	if recordUnchanged && grid == nil {
		return false
	}

	oldKey := t.record.GlobalKey()
	oldReplayGain := t.record.Metadata.TrackInfo.ReplayGain
	oldColor := t.record.Color
	oldRecord := t.record

	// The grid is derived with the stream info and main cue of the new
	// record, but the lock of the current grid still applies.
	newBpm := newRecord.Metadata.TrackInfo.Bpm
	t.record = newRecord
	t.record.Metadata.TrackInfo.Bpm = t.beats.Bpm()
	t.record.BpmLocked = oldRecord.BpmLocked

	var bpmUpdated bool
	if grid != nil {
		bpmUpdated = t.trySetBeats(g, grid, newRecord.BpmLocked)
		if recordUnchanged && !bpmUpdated {
			t.record = oldRecord
			return false
		}
	} else {
		bpmUpdated = t.trySetBpm(g, newBpm)
	}
	t.record.BpmLocked = newRecord.BpmLocked
	t.record.Metadata.TrackInfo.Bpm = t.beats.Bpm()

	cuesModified := t.reconcileMainCue(g)

	var published []events.Event
	if bpmUpdated {
		published = append(published, t.beatsAndBpmEvents(g)...)
	}
	if oldKey != t.record.GlobalKey() {
		published = append(published, t.event(g, events.KindKeyChanged, t.record.GlobalKeyText()))
	}
	if oldReplayGain != t.record.Metadata.TrackInfo.ReplayGain {
		published = append(published, t.event(g, events.KindReplayGainUpdated, t.record.Metadata.TrackInfo.ReplayGain))
	}
	if oldColor != t.record.Color {
		published = append(published, t.event(g, events.KindColorUpdated, t.record.Color))
	}
	if cuesModified {
		published = append(published, t.event(g, events.KindCuesUpdated, nil))
	}
	published = append(published, t.allMetadataEvents(g)...)
	t.markDirtyAndUnlock(g, published...)
	return true
}

// reconcileMainCue moves an existing main cue to the main cue position of
// the record. If the record has no valid position it adopts the position of
// the main cue instead.
func (t *Track) reconcileMainCue(g *guard) bool {
	g.assertHeld()
	mainCue := t.findCueByType(g, cue.TypeMainCue)
	if mainCue == nil {
		return false
	}
	if !t.record.MainCuePosition.IsValid() {
		t.record.MainCuePosition = mainCue.Position()
		return false
	}
	return mainCue.setStartPositionSilently(t.record.MainCuePosition)
}
