// Package handlers contains the gin request handlers for the HTTP API.
package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/scanner"
)

// Library serves path management, scan control, and catalog browsing.
type Library struct {
	db    *gorm.DB
	scans *scanner.Manager
}

// NewLibrary creates the library handler group.
func NewLibrary(db *gorm.DB, scans *scanner.Manager) *Library {
	return &Library{db: db, scans: scans}
}

// RegisterRoutes registers the library routes.
func (h *Library) RegisterRoutes(api *gin.RouterGroup) {
	lib := api.Group("/library")
	{
		lib.GET("/paths", h.listPaths)
		lib.POST("/paths", h.addPath)
		lib.DELETE("/paths/:id", h.removePath)
		lib.DELETE("/reset", h.resetLibrary)

		lib.POST("/scan", h.startScan)
		lib.GET("/scan/status", h.scanStatus)
		lib.POST("/scan/stop", h.stopScan)

		lib.GET("/songs", h.listSongs)
		lib.GET("/search", h.search)
		lib.GET("/albums", h.listAlbums)
		lib.GET("/albums/:id", h.getAlbum)
		lib.GET("/albums/:id/songs", h.albumSongs)
		lib.GET("/artists", h.listArtists)
		lib.GET("/artists/:name/work", h.artistWork)
	}
}

func (h *Library) listPaths(c *gin.Context) {
	var paths []database.LibraryPath
	if err := h.db.Find(&paths).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, paths)
}

func (h *Library) addPath(c *gin.Context) {
	var payload database.LibraryPath
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if info, err := os.Stat(payload.Path); err != nil || !info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Directory does not exist"})
		return
	}

	var existing database.LibraryPath
	err := h.db.Where("path = ?", payload.Path).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Create(&payload).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Library) removePath(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path ID"})
		return
	}

	result := h.db.Delete(&database.LibraryPath{}, uint(id))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Path not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Path removed"})
}

// resetLibrary wipes songs and albums but keeps the configured paths.
func (h *Library) resetLibrary(c *gin.Context) {
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&database.PlaylistSong{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&database.Song{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&database.Album{}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Library reset (paths kept)"})
}

func (h *Library) startScan(c *gin.Context) {
	err := h.scans.ScanLibrary()
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"message": "Scanning started"})
	case errors.Is(err, scanner.ErrScanActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (h *Library) scanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scans.Progress())
}

func (h *Library) stopScan(c *gin.Context) {
	err := h.scans.StopScan()
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Stop requested"})
	case errors.Is(err, scanner.ErrNoScanRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// sortColumns maps the sort_by query values to ORDER BY expressions.
// Sorting on text columns is case-insensitive.
var sortColumns = map[string]string{
	"title":     "LOWER(songs.title)",
	"artist":    "LOWER(songs.artist)",
	"album":     "LOWER(albums.title)",
	"duration":  "songs.duration",
	"file_size": "songs.file_size",
	"id":        "songs.id",
}

func (h *Library) listSongs(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5000"))
	sortBy := c.DefaultQuery("sort_by", "title")
	order := c.DefaultQuery("order", "asc")

	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns["title"]
	}
	direction := "ASC"
	if order == "desc" {
		direction = "DESC"
	}

	query := h.db.Model(&database.Song{})
	if sortBy == "album" {
		query = query.Joins("LEFT JOIN albums ON albums.id = songs.album_id")
	}

	var songs []database.Song
	err := query.Order(column + " " + direction).Offset(offset).Limit(limit).Find(&songs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, songs)
}

// search applies a free-text query across title/artist/album/composer
// plus the structured range filters.
func (h *Library) search(c *gin.Context) {
	query := h.db.Model(&database.Song{}).
		Joins("LEFT JOIN albums ON albums.id = songs.album_id")

	if q := c.Query("q"); q != "" {
		term := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(songs.title) LIKE ? OR LOWER(songs.artist) LIKE ? OR LOWER(albums.title) LIKE ? OR LOWER(songs.composer) LIKE ?",
			term, term, term, term)
	}
	if v, ok := intQuery(c, "year_min"); ok {
		query = query.Where("songs.year >= ?", v)
	}
	if v, ok := intQuery(c, "year_max"); ok {
		query = query.Where("songs.year <= ?", v)
	}
	if v, ok := intQuery(c, "bpm_min"); ok {
		query = query.Where("songs.bpm >= ?", v)
	}
	if v, ok := intQuery(c, "bpm_max"); ok {
		query = query.Where("songs.bpm <= ?", v)
	}
	if v, ok := intQuery(c, "rating_min"); ok {
		query = query.Where("songs.rating >= ?", v)
	}
	if genre := c.Query("genre"); genre != "" {
		query = query.Where("LOWER(songs.genre) LIKE ?", "%"+strings.ToLower(genre)+"%")
	}
	if v, ok := intQuery(c, "duration_min"); ok {
		query = query.Where("songs.duration >= ?", v)
	}
	if v, ok := intQuery(c, "duration_max"); ok {
		query = query.Where("songs.duration <= ?", v)
	}
	if format := c.Query("format"); format != "" {
		query = query.Where("LOWER(songs.format) LIKE ?", "%"+strings.ToLower(format)+"%")
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	var songs []database.Song
	if err := query.Limit(limit).Find(&songs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, songs)
}

func (h *Library) listAlbums(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var albums []database.Album
	if err := h.db.Offset(offset).Limit(limit).Find(&albums).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, albums)
}

func (h *Library) getAlbum(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid album ID"})
		return
	}

	var album database.Album
	if err := h.db.First(&album, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}
	c.JSON(http.StatusOK, album)
}

func (h *Library) albumSongs(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid album ID"})
		return
	}

	var songs []database.Song
	err = h.db.Where("album_id = ?", uint(id)).
		Order("disc_number, track_number, title").
		Find(&songs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, songs)
}

type artistSummary struct {
	Name         string `json:"name"`
	AlbumCount   int    `json:"album_count"`
	CoverExample uint   `json:"cover_example"`
}

// listArtists aggregates artists from the album table.
func (h *Library) listArtists(c *gin.Context) {
	var albums []database.Album
	if err := h.db.Order("artist, title").Find(&albums).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	index := make(map[string]*artistSummary)
	order := make([]string, 0)
	for _, album := range albums {
		summary, ok := index[album.Artist]
		if !ok {
			summary = &artistSummary{Name: album.Artist, CoverExample: album.ID}
			index[album.Artist] = summary
			order = append(order, album.Artist)
		}
		summary.AlbumCount++
	}

	artists := make([]artistSummary, 0, len(order))
	for _, name := range order {
		artists = append(artists, *index[name])
	}
	c.JSON(http.StatusOK, artists)
}

type artistWorkEntry struct {
	Album *database.Album `json:"album"`
	Songs []database.Song `json:"songs"`
}

// artistWork groups an artist's songs by album, matching on either the
// song artist or the album artist.
func (h *Library) artistWork(c *gin.Context) {
	name := strings.ToLower(c.Param("name"))

	var songs []database.Song
	err := h.db.
		Joins("LEFT JOIN albums ON albums.id = songs.album_id").
		Where("LOWER(songs.artist) = ? OR LOWER(albums.artist) = ?", name, name).
		Order("songs.album_id, songs.track_number").
		Find(&songs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	index := make(map[uint]*artistWorkEntry)
	order := make([]uint, 0)
	for _, song := range songs {
		var albumID uint
		if song.AlbumID != nil {
			albumID = *song.AlbumID
		}
		entry, ok := index[albumID]
		if !ok {
			entry = &artistWorkEntry{}
			if albumID != 0 {
				var album database.Album
				if err := h.db.First(&album, albumID).Error; err == nil {
					entry.Album = &album
				}
			}
			index[albumID] = entry
			order = append(order, albumID)
		}
		entry.Songs = append(entry.Songs, song)
	}

	work := make([]artistWorkEntry, 0, len(order))
	for _, id := range order {
		work = append(work, *index[id])
	}
	c.JSON(http.StatusOK, work)
}

func intQuery(c *gin.Context, key string) (int, bool) {
	value := c.Query(key)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
