package track

import (
	"context"
	"reflect"

	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/metadata"
)

// ExportResult is the outcome of ExportMetadata.
type ExportResult int

const (
	ExportSucceeded ExportResult = iota
	ExportSkipped
	ExportFailed
)

func (r ExportResult) String() string {
	switch r {
	case ExportSucceeded:
		return "succeeded"
	case ExportSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ExportOptions control ExportMetadata.
type ExportOptions struct {
	// ExportEmbeddedTags writes color, BPM lock, cues and beat grid into the
	// embedded DJ tags.
	ExportEmbeddedTags bool
}

// ExportMetadata writes the metadata into the file tags of source. Tags that
// have never been imported are only written after MarkForMetadataExport.
// Unmodified tags are not rewritten. The source is accessed without holding
// the lock.
func (t *Track) ExportMetadata(ctx context.Context, source metadata.Source, opts ExportOptions) ExportResult {
	g := t.lock()
	defer g.unlock()
	location := t.fileAccess.Location
	if !t.markedForMetadataExport && !t.record.IsSourceSynchronized() {
		// Existing file tags with completely different information must
		// not be overwritten unless requested explicitly.
		t.log.Info("Skip exporting of unsynchronized track metadata", "location", location)
		return ExportSkipped
	}
	modified := false
	if opts.ExportEmbeddedTags {
		updated, ok := t.updateEmbeddedTags(g)
		if !ok {
			return ExportSkipped
		}
		modified = updated
	}
	g.unlock()

	importResult, imported, _ := source.ImportTrackMetadataAndCoverImage(ctx)

	g = t.lock()
	defer g.unlock()
	var normalized domain.TrackMetadata
	if importResult == metadata.ImportSucceeded {
		// File tags that are not stored in the library yet must not be
		// overwritten. Merging them updates the record.
		if t.record.MergeExtraMetadataFromSource(imported) {
			modified = true
		}
		// Normalizing the original would make the BPM inconsistent with the
		// beat grid.
		normalized = t.record.Metadata.Clone()
		normalized.NormalizeBeforeExport()
		reimported := imported.Clone()
		reimported.NormalizeBeforeExport()
		// Fractional BPM changes are not detected.
		if !t.markedForMetadataExport &&
			!normalized.AnyFileTagsModified(reimported, beats.ComparisonInteger) {
			t.log.Debug("Skip exporting of unmodified track metadata", "location", location)
			t.finishExport(g, modified)
			return ExportSkipped
		}
	} else if t.markedForMetadataExport {
		t.log.Info("Adding or overwriting tags after failure to import tags",
			"location", location, "result", importResult)
		normalized = t.record.Metadata.Clone()
		normalized.NormalizeBeforeExport()
	} else {
		t.log.Warn("Skip exporting of track metadata after failure to import tags",
			"location", location, "result", importResult)
		t.finishExport(g, modified)
		return ExportSkipped
	}
	// Exporting is only tried once.
	t.markedForMetadataExport = false
	t.finishExport(g, modified)

	exportResult, syncedAt := source.ExportTrackMetadata(ctx, normalized)
	switch exportResult {
	case metadata.ExportSucceeded:
		g = t.lock()
		defer g.unlock()
		t.record.UpdateSourceSynchronizedAt(syncedAt)
		t.markDirtyAndUnlock(g)
		t.log.Debug("Exported track metadata", "location", location)
		return ExportSucceeded
	case metadata.ExportUnsupported:
		return ExportSkipped
	default:
		t.log.Warn("Failed to export track metadata", "location", location)
		return ExportFailed
	}
}

func (t *Track) finishExport(g *guard, modified bool) {
	if modified {
		t.markDirtyAndUnlock(g)
		return
	}
	g.unlock()
}

// updateEmbeddedTags copies the DJ properties into the embedded tags. It
// fails if the actual stream properties are unknown.
func (t *Track) updateEmbeddedTags(g *guard) (modified, ok bool) {
	g.assertHeld()
	location := t.fileAccess.Location
	streamInfo := t.record.StreamInfoFromSource
	if streamInfo == nil || !streamInfo.SignalInfo.IsValid() || streamInfo.Duration <= 0 {
		t.log.Warn("Cannot write embedded tags without signal info and duration",
			"location", location)
		return false, false
	}
	embedded := &t.record.Metadata.TrackInfo.EmbeddedTags
	if embedded.Status == domain.ParserStatusFailed {
		t.log.Warn("Refusing to overwrite embedded tags that failed to parse",
			"location", location)
		return false, true
	}
	before := embedded.Clone()

	sampleRate := streamInfo.SignalInfo.SampleRate
	infos := make([]cue.Info, 0, len(t.cues))
	for _, c := range t.cues {
		infos = append(infos, c.Info(sampleRate))
	}
	timingOffset := domain.GuessTimingOffsetMillis(location, streamInfo.SignalInfo)
	embedded.Color = t.record.Color
	embedded.BpmLocked = t.record.BpmLocked
	embedded.SetCueInfos(infos, timingOffset)
	embedded.SetBeats(t.beats, streamInfo.SignalInfo, streamInfo.Duration, timingOffset)
	if embedded.Status == domain.ParserStatusNone {
		embedded.Status = domain.ParserStatusParsed
	}
	return !reflect.DeepEqual(before, *embedded), true
}
