package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/chai2010/webp"
	"github.com/dhowden/tag"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/logger"
	"github.com/qtremors/tremors-music/internal/scanner"
)

const lyricsAPIBase = "https://lrclib.net/api"

// defaultCover is a 1x1 transparent PNG served when no embedded art is
// found, so clients render a silent placeholder instead of a 404.
var defaultCover, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// Media serves cover art and lyrics.
type Media struct {
	db        *gorm.DB
	reader    *scanner.TagReader
	client    *http.Client
	lyricsAPI string
}

// NewMedia creates the media handler group. The tag reader honors the
// runtime scanner configuration, not the built-in defaults.
func NewMedia(db *gorm.DB, cfg config.ScannerConfig) *Media {
	return &Media{
		db:        db,
		reader:    scanner.NewTagReader(cfg.AudioExtensions),
		client:    &http.Client{Timeout: 3 * time.Second},
		lyricsAPI: lyricsAPIBase,
	}
}

// RegisterRoutes registers the media routes.
func (h *Media) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/covers/:id", h.albumCover)
	api.GET("/lyrics/:id", h.songLyrics)
}

// albumCover extracts embedded artwork from the first few songs of the
// album, best-effort. Pass format=webp to re-encode the image.
func (h *Media) albumCover(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.Data(http.StatusOK, "image/png", defaultCover)
		return
	}

	var songs []database.Song
	if err := h.db.Where("album_id = ?", uint(id)).Limit(3).Find(&songs).Error; err != nil {
		c.Data(http.StatusOK, "image/png", defaultCover)
		return
	}

	for _, song := range songs {
		picture := extractPicture(song.Path)
		if picture == nil {
			continue
		}

		if c.Query("format") == "webp" {
			if encoded, err := encodeWebP(picture.Data); err == nil {
				c.Data(http.StatusOK, "image/webp", encoded)
				return
			}
		}

		mimeType := picture.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		c.Data(http.StatusOK, mimeType, picture.Data)
		return
	}

	c.Data(http.StatusOK, "image/png", defaultCover)
}

func extractPicture(path string) *tag.Picture {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return nil
	}
	if picture := meta.Picture(); picture != nil && len(picture.Data) > 0 {
		return picture
	}
	return nil
}

func encodeWebP(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type lyricsResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics,omitempty"`
}

// songLyrics serves lyrics from the catalog cache, falling back to
// just-in-time file extraction and finally a best-effort lookup against
// the lrclib API. Whatever is found is cached back onto the song.
func (h *Media) songLyrics(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid song ID"})
		return
	}

	var song database.Song
	if err := h.db.First(&song, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Song not found"})
		return
	}

	if song.Lyrics != "" {
		c.JSON(http.StatusOK, lyricsResponse{
			PlainLyrics:  song.Lyrics,
			SyncedLyrics: song.SyncedLyrics,
		})
		return
	}

	if tags, err := h.reader.ReadTags(song.Path); err == nil && tags.Lyrics != "" {
		h.cacheLyrics(&song, tags.Lyrics, tags.SyncedLyrics)
		c.JSON(http.StatusOK, lyricsResponse{
			PlainLyrics:  tags.Lyrics,
			SyncedLyrics: tags.SyncedLyrics,
		})
		return
	}

	if plain, synced, ok := h.fetchLyrics(&song); ok {
		h.cacheLyrics(&song, plain, synced)
		c.JSON(http.StatusOK, lyricsResponse{PlainLyrics: plain, SyncedLyrics: synced})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "No lyrics found"})
}

func (h *Media) cacheLyrics(song *database.Song, plain, synced string) {
	updates := map[string]interface{}{
		"lyrics":     plain,
		"has_lyrics": plain != "",
	}
	if synced != "" {
		updates["synced_lyrics"] = synced
	}
	if err := h.db.Model(song).Updates(updates).Error; err != nil {
		logger.Warn("failed to cache lyrics", "song_id", song.ID, "error", err)
	}
}

type lrclibMatch struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// fetchLyrics asks lrclib for an exact match first and falls back to a
// free-text search.
func (h *Media) fetchLyrics(song *database.Song) (plain, synced string, ok bool) {
	albumTitle := ""
	if song.AlbumID != nil {
		var album database.Album
		if err := h.db.First(&album, *song.AlbumID).Error; err == nil {
			albumTitle = album.Title
		}
	}

	params := url.Values{
		"track_name":  {song.Title},
		"artist_name": {song.Artist},
		"album_name":  {albumTitle},
		"duration":    {strconv.Itoa(int(song.Duration))},
	}
	var match lrclibMatch
	if h.getJSON(h.lyricsAPI+"/get?"+params.Encode(), &match) &&
		(match.PlainLyrics != "" || match.SyncedLyrics != "") {
		return match.PlainLyrics, match.SyncedLyrics, true
	}

	search := url.Values{"q": {song.Title + " " + song.Artist}}
	var results []lrclibMatch
	if h.getJSON(h.lyricsAPI+"/search?"+search.Encode(), &results) && len(results) > 0 {
		best := results[0]
		if best.PlainLyrics != "" || best.SyncedLyrics != "" {
			return best.PlainLyrics, best.SyncedLyrics, true
		}
	}

	return "", "", false
}

func (h *Media) getJSON(requestURL string, out interface{}) bool {
	resp, err := h.client.Get(requestURL)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}
