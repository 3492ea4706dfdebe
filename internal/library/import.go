package library

import (
	"context"
	"fmt"
	"time"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/jaki95/djtrack/internal/metadata"
	"github.com/jaki95/djtrack/internal/track"
)

// ImportMetadata reads the file tags of a track from source and replaces
// its metadata. The stream info of the source completes pending imports of
// beats and cues. The kind names the source in metrics.
func (l *Library) ImportMetadata(ctx context.Context, tr *track.Track, source metadata.Source, kind string) metadata.ImportResult {
	result, md, cover := source.ImportTrackMetadataAndCoverImage(ctx)
	if l.metrics != nil {
		l.metrics.RecordImport(kind, result)
	}

	switch result {
	case metadata.ImportSucceeded:
		tr.ReplaceMetadataFromSource(md, time.Now().UTC())
		if len(cover) > 0 && tr.CoverInfo().Source != domain.CoverSourceUserSelected {
			tr.SetCoverInfo(domain.CoverInfo{
				Source:      domain.CoverSourceGuessed,
				Type:        domain.CoverTypeMetadata,
				ImageDigest: domain.ImageDigest(cover),
			})
		}
	case metadata.ImportFailed:
		l.log.Warn("Failed to import track metadata", "id", tr.ID(), "location", tr.Location())
		return result
	}

	if md.StreamInfo.SignalInfo.IsValid() {
		tr.UpdateStreamInfoFromSource(md.StreamInfo)
	}
	return result
}

// AnalyzeTrack measures the audio stream of a track, which completes any
// pending import of beats and cues.
func (l *Library) AnalyzeTrack(ctx context.Context, tr *track.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	streamInfo, err := audio.Probe(tr.Location())
	if err != nil {
		return fmt.Errorf("failed to analyze track %s: %w", tr.ID(), err)
	}
	tr.UpdateStreamInfoFromSource(streamInfo)
	tr.AnalysisFinished()
	return nil
}

// ExportMetadata writes the metadata of a track into source and saves the
// track if the export modified it.
func (l *Library) ExportMetadata(ctx context.Context, tr *track.Track, source metadata.Source, opts track.ExportOptions) (track.ExportResult, error) {
	result := tr.ExportMetadata(ctx, source, opts)
	if l.metrics != nil {
		l.metrics.RecordExport(result)
	}
	if !tr.ID().IsValid() {
		return result, nil
	}
	return result, l.SaveTrack(ctx, tr)
}
