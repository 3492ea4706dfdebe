package metadata

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/beats"
	"github.com/jaki95/djtrack/internal/domain"
)

// Frame ids of text frames that are not covered by the id3v2 convenience
// accessors.
const (
	frameAlbumArtist = "TPE2"
	frameComposer    = "TCOM"
	frameGrouping    = "TIT1"
	frameTrackNumber = "TRCK"
	frameBpm         = "TBPM"
	frameKey         = "TKEY"
	frameConductor   = "TPE3"
	frameRemixer     = "TPE4"
	frameEncoder     = "TENC"
	frameISRC        = "TSRC"
	frameLanguage    = "TLAN"
	frameLyricist    = "TEXT"
	frameMood        = "TMOO"
	frameSubtitle    = "TIT3"
	frameLabel       = "TPUB"
	frameCopyright   = "TCOP"
	frameMovement    = "MVNM"
	frameWork        = "TOAL"
	frameComment     = "COMM"
	frameUserText    = "TXXX"
	framePicture     = "APIC"
)

// Descriptions of user defined text frames.
const (
	userTrackGain      = "REPLAYGAIN_TRACK_GAIN"
	userTrackPeak      = "REPLAYGAIN_TRACK_PEAK"
	userArtistID       = "MusicBrainz Artist Id"
	userRecordingID    = "MusicBrainz Release Track Id"
	userReleaseID      = "MusicBrainz Album Id"
	userEmbeddedDJTags = "DJTRACK_EMBEDDED"
)

var managedUserFrames = []string{
	userTrackGain, userTrackPeak, userArtistID, userRecordingID, userReleaseID, userEmbeddedDJTags,
}

// ID3Source reads and writes the ID3v2 tag of an audio file.
type ID3Source struct {
	path string
	log  *slog.Logger
}

func NewID3Source(path string) *ID3Source {
	return &ID3Source{
		path: path,
		log:  slog.Default().With("component", "id3", "location", path),
	}
}

func (s *ID3Source) ImportTrackMetadataAndCoverImage(ctx context.Context) (ImportResult, domain.TrackMetadata, []byte) {
	if err := ctx.Err(); err != nil {
		return ImportFailed, domain.TrackMetadata{}, nil
	}
	tag, err := id3v2.Open(s.path, id3v2.Options{Parse: true})
	if err != nil {
		s.log.Warn("Failed to open ID3 tag", "error", err)
		return ImportFailed, domain.TrackMetadata{}, nil
	}
	defer tag.Close()

	var md domain.TrackMetadata
	if streamInfo, err := audio.Probe(s.path); err == nil {
		md.StreamInfo = streamInfo
	} else if !errors.Is(err, audio.ErrUnsupportedFormat) {
		s.log.Warn("Failed to probe stream info", "error", err)
	}
	if tag.Count() == 0 {
		return ImportUnavailable, md, nil
	}

	readAlbumInfo(tag, &md.AlbumInfo)
	s.readTrackInfo(tag, &md.TrackInfo)
	return ImportSucceeded, md, coverImage(tag)
}

func readAlbumInfo(tag *id3v2.Tag, info *domain.AlbumInfo) {
	info.Title = tag.Album()
	info.Artist = textFrame(tag, frameAlbumArtist)
	info.RecordLabel = textFrame(tag, frameLabel)
	info.Copyright = textFrame(tag, frameCopyright)
	info.MusicBrainzReleaseID = userDefinedText(tag, userReleaseID)
}

func (s *ID3Source) readTrackInfo(tag *id3v2.Tag, info *domain.TrackInfo) {
	info.Artist = tag.Artist()
	info.Title = tag.Title()
	info.Genre = tag.Genre()
	info.Year = tag.Year()
	info.Composer = textFrame(tag, frameComposer)
	info.Grouping = textFrame(tag, frameGrouping)
	info.TrackNumber, info.TrackTotal = splitTrackNumber(textFrame(tag, frameTrackNumber))
	info.Comment = comment(tag)
	info.Bpm = beats.ParseBpm(textFrame(tag, frameBpm))
	info.Key = textFrame(tag, frameKey)

	info.Conductor = textFrame(tag, frameConductor)
	info.Encoder = textFrame(tag, frameEncoder)
	info.ISRC = textFrame(tag, frameISRC)
	info.Language = textFrame(tag, frameLanguage)
	info.Lyricist = textFrame(tag, frameLyricist)
	info.Mood = textFrame(tag, frameMood)
	info.Movement = textFrame(tag, frameMovement)
	info.Remixer = textFrame(tag, frameRemixer)
	info.Subtitle = textFrame(tag, frameSubtitle)
	info.Work = textFrame(tag, frameWork)
	info.MusicBrainzArtistID = userDefinedText(tag, userArtistID)
	info.MusicBrainzRecordingID = userDefinedText(tag, userRecordingID)

	if text := userDefinedText(tag, userTrackGain); text != "" {
		ratio, err := domain.ParseRatio(text)
		if err != nil {
			s.log.Warn("Ignoring invalid replay gain", "error", err)
		} else {
			info.ReplayGain.Ratio = ratio
		}
	}
	if text := userDefinedText(tag, userTrackPeak); text != "" {
		peak, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			s.log.Warn("Ignoring invalid replay gain peak", "value", text)
		} else {
			info.ReplayGain.Peak = peak
		}
	}

	if text := userDefinedText(tag, userEmbeddedDJTags); text != "" {
		var embedded domain.EmbeddedTags
		if err := json.Unmarshal([]byte(text), &embedded); err != nil {
			s.log.Warn("Failed to parse embedded DJ tags", "error", err)
			info.EmbeddedTags = domain.EmbeddedTags{Status: domain.ParserStatusFailed}
		} else {
			embedded.Status = domain.ParserStatusParsed
			info.EmbeddedTags = embedded
		}
	}
}

func (s *ID3Source) ExportTrackMetadata(ctx context.Context, md domain.TrackMetadata) (ExportResult, time.Time) {
	if err := ctx.Err(); err != nil {
		return ExportFailed, time.Time{}
	}
	tag, err := id3v2.Open(s.path, id3v2.Options{Parse: true})
	if err != nil {
		s.log.Error("Failed to open ID3 tag for writing", "error", err)
		return ExportFailed, time.Time{}
	}
	defer tag.Close()

	writeAlbumInfo(tag, md.AlbumInfo)
	if err := writeTrackInfo(tag, md.TrackInfo, md.AlbumInfo.MusicBrainzReleaseID); err != nil {
		s.log.Error("Failed to encode embedded DJ tags", "error", err)
		return ExportFailed, time.Time{}
	}

	if err := tag.Save(); err != nil {
		s.log.Error("Failed to save ID3 tag", "error", err)
		return ExportFailed, time.Time{}
	}
	s.log.Debug("Exported track metadata")
	return ExportSucceeded, modifiedAt(s.path)
}

func writeAlbumInfo(tag *id3v2.Tag, info domain.AlbumInfo) {
	setTextFrame(tag, "TALB", info.Title)
	setTextFrame(tag, frameAlbumArtist, info.Artist)
	setTextFrame(tag, frameLabel, info.RecordLabel)
	setTextFrame(tag, frameCopyright, info.Copyright)
}

func writeTrackInfo(tag *id3v2.Tag, info domain.TrackInfo, releaseID string) error {
	setTextFrame(tag, "TPE1", info.Artist)
	setTextFrame(tag, "TIT2", info.Title)
	setTextFrame(tag, "TCON", info.Genre)
	setTextFrame(tag, tag.CommonID("Year"), info.Year)
	setTextFrame(tag, frameComposer, info.Composer)
	setTextFrame(tag, frameGrouping, info.Grouping)
	setTextFrame(tag, frameTrackNumber, joinTrackNumber(info.TrackNumber, info.TrackTotal))
	setTextFrame(tag, frameKey, info.Key)
	bpm := ""
	if info.Bpm.IsValid() {
		bpm = info.Bpm.String()
	}
	setTextFrame(tag, frameBpm, bpm)

	setTextFrame(tag, frameConductor, info.Conductor)
	setTextFrame(tag, frameEncoder, info.Encoder)
	setTextFrame(tag, frameISRC, info.ISRC)
	setTextFrame(tag, frameLanguage, info.Language)
	setTextFrame(tag, frameLyricist, info.Lyricist)
	setTextFrame(tag, frameMood, info.Mood)
	setTextFrame(tag, frameMovement, info.Movement)
	setTextFrame(tag, frameRemixer, info.Remixer)
	setTextFrame(tag, frameSubtitle, info.Subtitle)
	setTextFrame(tag, frameWork, info.Work)

	tag.DeleteFrames(frameComment)
	if info.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: tag.DefaultEncoding(),
			Language: "eng",
			Text:     info.Comment,
		})
	}

	user := map[string]string{
		userArtistID:    info.MusicBrainzArtistID,
		userRecordingID: info.MusicBrainzRecordingID,
		userReleaseID:   releaseID,
		userTrackGain:   domain.FormatRatio(info.ReplayGain.Ratio),
	}
	if info.ReplayGain.HasPeak() {
		user[userTrackPeak] = strconv.FormatFloat(info.ReplayGain.Peak, 'f', 6, 64)
	}
	embedded := info.EmbeddedTags
	switch {
	case embedded.Status == domain.ParserStatusFailed:
		// Unparseable tags of other software are kept as they are.
		user[userEmbeddedDJTags] = userDefinedText(tag, userEmbeddedDJTags)
	case !embedded.IsEmpty():
		embedded.Status = domain.ParserStatusNone
		data, err := json.Marshal(embedded)
		if err != nil {
			return err
		}
		user[userEmbeddedDJTags] = string(data)
	}
	replaceUserDefinedTexts(tag, user)
	return nil
}

func textFrame(tag *id3v2.Tag, id string) string {
	return strings.TrimSpace(tag.GetTextFrame(id).Text)
}

func setTextFrame(tag *id3v2.Tag, id, text string) {
	tag.DeleteFrames(id)
	if text != "" {
		tag.AddTextFrame(id, tag.DefaultEncoding(), text)
	}
}

func userDefinedText(tag *id3v2.Tag, description string) string {
	for _, frame := range tag.GetFrames(frameUserText) {
		frame, ok := frame.(id3v2.UserDefinedTextFrame)
		if ok && strings.EqualFold(frame.Description, description) {
			return frame.Value
		}
	}
	return ""
}

// replaceUserDefinedTexts rewrites the managed user defined frames and keeps
// all others.
func replaceUserDefinedTexts(tag *id3v2.Tag, values map[string]string) {
	var kept []id3v2.UserDefinedTextFrame
	for _, frame := range tag.GetFrames(frameUserText) {
		frame, ok := frame.(id3v2.UserDefinedTextFrame)
		if ok && !isManagedUserFrame(frame.Description) {
			kept = append(kept, frame)
		}
	}
	tag.DeleteFrames(frameUserText)
	for _, frame := range kept {
		tag.AddUserDefinedTextFrame(frame)
	}
	for _, description := range managedUserFrames {
		if value := values[description]; value != "" {
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    tag.DefaultEncoding(),
				Description: description,
				Value:       value,
			})
		}
	}
}

func isManagedUserFrame(description string) bool {
	for _, managed := range managedUserFrames {
		if strings.EqualFold(managed, description) {
			return true
		}
	}
	return false
}

func comment(tag *id3v2.Tag) string {
	for _, frame := range tag.GetFrames(frameComment) {
		if frame, ok := frame.(id3v2.CommentFrame); ok && frame.Description == "" {
			return strings.TrimSpace(frame.Text)
		}
	}
	return ""
}

// coverImage returns the front cover or else the first attached picture.
func coverImage(tag *id3v2.Tag) []byte {
	var first []byte
	for _, frame := range tag.GetFrames(framePicture) {
		picture, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		if picture.PictureType == id3v2.PTFrontCover {
			return picture.Picture
		}
		if first == nil {
			first = picture.Picture
		}
	}
	return first
}

func splitTrackNumber(text string) (number, total string) {
	number, total, _ = strings.Cut(text, "/")
	return strings.TrimSpace(number), strings.TrimSpace(total)
}

func joinTrackNumber(number, total string) string {
	if total == "" {
		return number
	}
	return number + "/" + total
}

func modifiedAt(path string) time.Time {
	if stat, err := os.Stat(path); err == nil {
		return stat.ModTime().UTC()
	}
	return time.Now().UTC()
}
