package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/database"
)

// Playlists serves playlist CRUD and membership management.
type Playlists struct {
	db *gorm.DB
}

// NewPlaylists creates the playlist handler group.
func NewPlaylists(db *gorm.DB) *Playlists {
	return &Playlists{db: db}
}

// RegisterRoutes registers the playlist routes.
func (h *Playlists) RegisterRoutes(api *gin.RouterGroup) {
	pl := api.Group("/playlists")
	{
		pl.GET("", h.list)
		pl.POST("", h.create)
		pl.GET("/:id", h.get)
		pl.PATCH("/:id", h.rename)
		pl.DELETE("/:id", h.remove)
		pl.GET("/:id/songs", h.songs)
		pl.POST("/:id/add", h.addSongs)
	}
}

type playlistCreate struct {
	Name string `json:"name" binding:"required"`
}

type playlistAdd struct {
	SongIDs []uint `json:"song_ids" binding:"required"`
}

func (h *Playlists) list(c *gin.Context) {
	var playlists []database.Playlist
	if err := h.db.Find(&playlists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, playlists)
}

func (h *Playlists) create(c *gin.Context) {
	var payload playlistCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	playlist := database.Playlist{Name: payload.Name}
	if err := h.db.Create(&playlist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func (h *Playlists) get(c *gin.Context) {
	playlist, ok := h.find(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func (h *Playlists) rename(c *gin.Context) {
	playlist, ok := h.find(c)
	if !ok {
		return
	}

	var payload playlistCreate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	playlist.Name = payload.Name
	if err := h.db.Save(playlist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func (h *Playlists) remove(c *gin.Context) {
	playlist, ok := h.find(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlist.ID).Delete(&database.PlaylistSong{}).Error; err != nil {
			return err
		}
		return tx.Delete(playlist).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

// songs returns the playlist's songs in their stored position order.
func (h *Playlists) songs(c *gin.Context) {
	playlist, ok := h.find(c)
	if !ok {
		return
	}

	var songs []database.Song
	err := h.db.
		Joins("JOIN playlist_songs ON playlist_songs.song_id = songs.id").
		Where("playlist_songs.playlist_id = ?", playlist.ID).
		Order("playlist_songs.position").
		Find(&songs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, songs)
}

// addSongs appends songs after the playlist's current last position.
func (h *Playlists) addSongs(c *gin.Context) {
	playlist, ok := h.find(c)
	if !ok {
		return
	}

	var payload playlistAdd
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var count int64
	if err := h.db.Model(&database.PlaylistSong{}).
		Where("playlist_id = ?", playlist.ID).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	links := make([]database.PlaylistSong, 0, len(payload.SongIDs))
	for i, songID := range payload.SongIDs {
		links = append(links, database.PlaylistSong{
			PlaylistID: playlist.ID,
			SongID:     songID,
			Position:   int(count) + i,
		})
	}
	if len(links) > 0 {
		if err := h.db.Create(&links).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Songs added"})
}

func (h *Playlists) find(c *gin.Context) (*database.Playlist, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid playlist ID"})
		return nil, false
	}

	var playlist database.Playlist
	if err := h.db.First(&playlist, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
		return nil, false
	}
	return &playlist, true
}
