package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// SongTags is the normalized metadata record for one audio file. String
// fields are cleaned and defaulted so downstream code never has to
// special-case absent values; numeric fields stay nil when unknown.
type SongTags struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string

	Composer  string
	Conductor string
	Lyricist  string
	Arranger  string
	Performer string
	Remixer   string
	Engineer  string
	Producer  string

	TrackNumber *int
	TrackTotal  *int
	DiscNumber  *int
	DiscTotal   *int
	Genre       string
	Compilation bool
	ISRC        string

	Year         *int
	ReleaseDate  string
	OriginalDate string

	Duration      float64
	FileSize      int64
	Bitrate       *int
	SampleRate    *int
	Channels      *int
	BitsPerSample *int
	Format        string
	Codec         string

	Lyrics       string
	SyncedLyrics string
	HasLyrics    bool
	Comment      string
	Description  string
	Language     string
	Mood         string

	BPM        *int
	InitialKey string

	ReplaygainTrackGain *float64
	ReplaygainTrackPeak *float64
	ReplaygainAlbumGain *float64
	ReplaygainAlbumPeak *float64

	MediaType string
	Grouping  string
	Subtitle  string
}

// TagReader extracts and normalizes metadata from audio files.
type TagReader struct {
	supported map[string]bool
}

// NewTagReader creates a reader recognizing the given extensions
// (including the leading dot).
func NewTagReader(extensions []string) *TagReader {
	supported := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		supported[strings.ToLower(ext)] = true
	}
	return &TagReader{supported: supported}
}

// CanRead reports whether the path carries a recognized audio extension.
func (tr *TagReader) CanRead(path string) bool {
	return tr.supported[strings.ToLower(filepath.Ext(path))]
}

// ReadTags decodes the file's tag container and produces a normalized
// record. Any decode failure is returned to the caller, which records it
// and moves on; a scan is never aborted by one unreadable file.
func (tr *TagReader) ReadTags(path string) (*SongTags, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	raw := meta.Raw()
	fileName := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	tags := &SongTags{
		FileSize: info.Size(),
		Format:   strings.TrimPrefix(ext, "."),
	}

	// Basic information with defined fallbacks.
	tags.Title = fallback(cleanString(meta.Title()), fileName)
	tags.Artist = fallback(cleanString(meta.Artist()), "Unknown Artist")
	tags.Album = fallback(cleanString(meta.Album()), "Unknown Album")
	tags.AlbumArtist = fallback(cleanString(meta.AlbumArtist()), tags.Artist)

	// People and credits.
	tags.Composer = cleanString(meta.Composer())
	tags.Conductor = rawString(raw, "conductor", "tpe3")
	tags.Lyricist = rawString(raw, "lyricist", "text")
	tags.Arranger = rawString(raw, "arranger")
	tags.Performer = rawString(raw, "performer", "tope")
	tags.Remixer = rawString(raw, "remixer", "tpe4")
	tags.Engineer = rawString(raw, "engineer")
	tags.Producer = rawString(raw, "producer")

	// Organization and cataloging.
	if track, total := meta.Track(); track != 0 {
		tags.TrackNumber = intPtr(track)
		if total != 0 {
			tags.TrackTotal = intPtr(total)
		}
	} else if n := parseLeadingInt(rawString(raw, "tracknumber", "trck")); n != nil {
		tags.TrackNumber = n
	}
	if disc, total := meta.Disc(); disc != 0 {
		tags.DiscNumber = intPtr(disc)
		if total != 0 {
			tags.DiscTotal = intPtr(total)
		}
	} else if n := parseLeadingInt(rawString(raw, "discnumber", "tpos")); n != nil {
		tags.DiscNumber = n
	}
	tags.Genre = cleanString(meta.Genre())
	tags.Compilation = parseLeadingInt(rawString(raw, "compilation", "tcmp", "cpil")) != nil
	tags.ISRC = rawString(raw, "isrc", "tsrc")

	// Dates: year is the leading YYYY of the date tag, the full date is
	// preserved only at day precision.
	dateStr := rawString(raw, "date", "tdrc", "year", "tyer")
	if year := yearOf(dateStr); year != nil {
		tags.Year = year
	} else if y := meta.Year(); y != 0 {
		tags.Year = intPtr(y)
	}
	if len(dateStr) >= 10 {
		tags.ReleaseDate = dateStr
	}
	tags.OriginalDate = rawString(raw, "originaldate", "tdor", "tory")

	// Content and description.
	tags.Lyrics = tr.extractLyrics(meta, raw)
	tags.HasLyrics = tags.Lyrics != ""
	if strings.Contains(tags.Lyrics, "[") && strings.Contains(tags.Lyrics, "]") {
		tags.SyncedLyrics = tags.Lyrics
	}
	tags.Comment = cleanString(meta.Comment())
	tags.Description = rawString(raw, "description", "desc")
	tags.Language = rawString(raw, "language", "tlan")
	tags.Mood = rawString(raw, "mood", "tmoo")

	// Musical information.
	tags.BPM = parseLeadingInt(rawString(raw, "bpm", "tbpm", "tmpo"))
	tags.InitialKey = rawString(raw, "initialkey", "tkey")

	// Replay gain values carry a " dB" suffix in the wild.
	tags.ReplaygainTrackGain = parseGain(rawString(raw, "replaygain_track_gain"))
	tags.ReplaygainTrackPeak = parseGain(rawString(raw, "replaygain_track_peak"))
	tags.ReplaygainAlbumGain = parseGain(rawString(raw, "replaygain_album_gain"))
	tags.ReplaygainAlbumPeak = parseGain(rawString(raw, "replaygain_album_peak"))

	// Media type.
	tags.MediaType = fallback(rawString(raw, "mediatype", "tmed"), "song")
	tags.Grouping = rawString(raw, "grouping", "tit1")
	tags.Subtitle = rawString(raw, "subtitle", "tit3")

	tr.applyStreamInfo(path, string(meta.FileType()), tags)

	return tags, nil
}

// extractLyrics prefers the generic lyrics tag and falls back to the
// format-specific unsynchronized-lyrics frames.
func (tr *TagReader) extractLyrics(meta tag.Metadata, raw map[string]interface{}) string {
	if lyrics := cleanString(meta.Lyrics()); lyrics != "" {
		return lyrics
	}
	return rawString(raw, "uslt", "unsyncedlyrics", "unsynced lyrics", "lyrics", "\xa9lyr")
}

// applyStreamInfo fills the technical fields from ffprobe stream info
// when available. Missing info leaves the zero values, which the data
// model treats as unknown.
func (tr *TagReader) applyStreamInfo(path, fileType string, tags *SongTags) {
	if fileType != "" {
		tags.Codec = strings.ToLower(fileType)
	}
	if !ffprobeReady() {
		return
	}
	info, err := probeStreamInfo(path)
	if err != nil {
		return
	}

	tags.Duration = info.Duration
	if info.Bitrate > 0 {
		tags.Bitrate = intPtr(info.Bitrate)
	}
	if info.SampleRate > 0 {
		tags.SampleRate = intPtr(info.SampleRate)
	}
	if info.Channels > 0 {
		tags.Channels = intPtr(info.Channels)
	}
	if info.BitsPerSample > 0 {
		tags.BitsPerSample = intPtr(info.BitsPerSample)
	}
	if info.Codec != "" {
		tags.Codec = info.Codec
	}
}

// cleanString strips embedded NUL bytes and surrounding whitespace.
func cleanString(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, "\x00", ""))
}

func fallback(value, alt string) string {
	if value == "" {
		return alt
	}
	return value
}

// parseLeadingInt parses a numeric tag defensively, accepting "N/M"
// forms by taking the numerator. Unparseable input yields nil.
func parseLeadingInt(value string) *int {
	value = cleanString(value)
	if value == "" {
		return nil
	}
	if idx := strings.IndexByte(value, '/'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &parsed
}

// yearOf takes the leading YYYY portion of a date tag.
func yearOf(date string) *int {
	date = cleanString(date)
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}

// parseGain parses a replay-gain float after stripping unit suffixes.
func parseGain(value string) *float64 {
	value = cleanString(strings.TrimSuffix(cleanString(value), "dB"))
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

func intPtr(v int) *int {
	return &v
}

// rawString looks a value up in the container's raw tag map. Keys are
// matched case-insensitively, both bare ("date") and frame-qualified
// ("USLT:eng", "TXXX:replaygain_track_gain") forms. Candidates are
// tried in argument order, so listing "date" before "tyer" makes the
// full date win whenever both frames are present.
func rawString(raw map[string]interface{}, candidates ...string) string {
	for _, candidate := range candidates {
		for key, value := range raw {
			lower := strings.ToLower(key)
			if lower == candidate ||
				strings.HasPrefix(lower, candidate+":") ||
				strings.HasSuffix(lower, ":"+candidate) {
				if s := rawValueString(value); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func rawValueString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return cleanString(v)
	case *tag.Comm:
		if v != nil {
			return cleanString(v.Text)
		}
	case tag.Comm:
		return cleanString(v.Text)
	case int:
		return strconv.Itoa(v)
	case []string:
		if len(v) > 0 {
			return cleanString(v[0])
		}
	}
	return ""
}
