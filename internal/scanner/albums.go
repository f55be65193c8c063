package scanner

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/database"
)

type albumKey struct {
	title  string
	artist string
}

// AlbumResolver deduplicates albums by case-insensitive (title, artist)
// pair for the duration of one scan. The cache is seeded from all
// existing album rows before traversal so repeated scans never create
// duplicates regardless of insertion order across runs.
type AlbumResolver struct {
	db    *gorm.DB
	cache map[albumKey]uint
}

// NewAlbumResolver creates an empty resolver bound to the scan's
// database session.
func NewAlbumResolver(db *gorm.DB) *AlbumResolver {
	return &AlbumResolver{
		db:    db,
		cache: make(map[albumKey]uint),
	}
}

// Seed loads every existing album into the cache.
func (r *AlbumResolver) Seed() error {
	var albums []database.Album
	if err := r.db.Find(&albums).Error; err != nil {
		return fmt.Errorf("load existing albums: %w", err)
	}
	for _, album := range albums {
		r.cache[keyOf(album.Title, album.Artist)] = album.ID
	}
	return nil
}

// Resolve returns the album identity for the (title, artist) pair,
// creating and persisting a new album row on first sight. Album-level
// year and genre come from the triggering song's tags.
func (r *AlbumResolver) Resolve(title, artist string, tags *SongTags) (uint, error) {
	key := keyOf(title, artist)
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	album := database.Album{
		Title:       title,
		Artist:      artist,
		Year:        tags.Year,
		Genre:       tags.Genre,
		TotalTracks: tags.TrackTotal,
		TotalDiscs:  tags.DiscTotal,
		Compilation: tags.Compilation,
	}
	// Persisted immediately so the identity is available for the song
	// insert that triggered the miss.
	if err := r.db.Create(&album).Error; err != nil {
		return 0, fmt.Errorf("create album %q/%q: %w", title, artist, err)
	}

	r.cache[key] = album.ID
	return album.ID, nil
}

func keyOf(title, artist string) albumKey {
	return albumKey{
		title:  strings.ToLower(title),
		artist: strings.ToLower(artist),
	}
}
