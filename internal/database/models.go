package database

import (
	"time"
)

// LibraryPath is a configured root directory to scan.
type LibraryPath struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Path string `gorm:"uniqueIndex;not null" json:"path"`
}

// Album groups songs by a case-insensitive (title, artist) pair. The
// pair identity is enforced by the scanner's album resolver, not by a
// database constraint, so that differently-cased tags collapse into one
// row.
type Album struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Title     string `gorm:"index" json:"title"`
	Artist    string `gorm:"index" json:"artist"`
	CoverPath string `json:"cover_path,omitempty"`

	Year          *int   `json:"year,omitempty"`
	Genre         string `json:"genre,omitempty"`
	TotalTracks   *int   `json:"total_tracks,omitempty"`
	TotalDiscs    *int   `json:"total_discs,omitempty"`
	Compilation   bool   `json:"compilation"`
	Label         string `json:"label,omitempty"`
	Barcode       string `json:"barcode,omitempty"`
	CatalogNumber string `json:"catalog_number,omitempty"`

	Songs []Song `gorm:"foreignKey:AlbumID" json:"songs,omitempty"`
}

// Song is one audio file. Identity is the absolute filesystem path.
type Song struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Basic information
	Title   string `gorm:"index" json:"title"`
	Artist  string `gorm:"index" json:"artist"`
	AlbumID *uint  `gorm:"index" json:"album_id,omitempty"`
	Path    string `gorm:"uniqueIndex;not null" json:"path"`

	// People and credits
	Composer  string `json:"composer,omitempty"`
	Conductor string `json:"conductor,omitempty"`
	Lyricist  string `json:"lyricist,omitempty"`
	Arranger  string `json:"arranger,omitempty"`
	Performer string `json:"performer,omitempty"`
	Remixer   string `json:"remixer,omitempty"`
	Engineer  string `json:"engineer,omitempty"`
	Producer  string `json:"producer,omitempty"`

	// Organization and cataloging
	TrackNumber *int   `json:"track_number,omitempty"`
	DiscNumber  *int   `json:"disc_number,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Compilation bool   `json:"compilation"`
	ISRC        string `json:"isrc,omitempty"`

	// Dates
	Year         *int   `json:"year,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"` // kept only at day precision (YYYY-MM-DD)
	OriginalDate string `json:"original_date,omitempty"`

	// Technical audio info
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"file_size"`
	Bitrate       *int    `json:"bitrate,omitempty"`     // kbps
	SampleRate    *int    `json:"sample_rate,omitempty"` // Hz
	Channels      *int    `json:"channels,omitempty"`
	BitsPerSample *int    `json:"bits_per_sample,omitempty"`
	Format        string  `gorm:"default:mp3" json:"format"`
	Codec         string  `json:"codec,omitempty"`

	// Content and description
	HasLyrics    bool   `json:"has_lyrics"`
	Lyrics       string `json:"lyrics,omitempty"`
	SyncedLyrics string `json:"synced_lyrics,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Description  string `json:"description,omitempty"`
	Language     string `json:"language,omitempty"`
	Mood         string `json:"mood,omitempty"`

	// Musical information
	BPM        *int   `json:"bpm,omitempty"`
	InitialKey string `json:"initial_key,omitempty"`

	// Replay gain
	ReplaygainTrackGain *float64 `json:"replaygain_track_gain,omitempty"`
	ReplaygainTrackPeak *float64 `json:"replaygain_track_peak,omitempty"`
	ReplaygainAlbumGain *float64 `json:"replaygain_album_gain,omitempty"`
	ReplaygainAlbumPeak *float64 `json:"replaygain_album_peak,omitempty"`

	// Media type
	MediaType string `json:"media_type,omitempty"`
	Grouping  string `json:"grouping,omitempty"`
	Subtitle  string `json:"subtitle,omitempty"`

	// User data, local only. The scanner never overwrites these.
	Rating     *int       `json:"rating,omitempty"`
	PlayCount  int        `json:"play_count"`
	LastPlayed *time.Time `json:"last_played,omitempty"`
	DateAdded  *time.Time `json:"date_added,omitempty"`

	Album *Album `gorm:"foreignKey:AlbumID" json:"album,omitempty"`
}

// UserOnlyColumns are the song columns owned by the user, excluded from
// every catalog-derived update.
var UserOnlyColumns = []string{"rating", "play_count", "last_played", "date_added"}

// Playlist is a user-ordered collection of songs.
type Playlist struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Songs []Song `gorm:"many2many:playlist_songs;" json:"songs,omitempty"`
}

// PlaylistSong is the playlist link table carrying the song position.
type PlaylistSong struct {
	PlaylistID uint `gorm:"primaryKey" json:"playlist_id"`
	SongID     uint `gorm:"primaryKey" json:"song_id"`
	Position   int  `gorm:"default:0" json:"position"`
}
