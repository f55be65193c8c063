package handlers

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/database"
)

// Stream serves song audio over byte-range requests so players can seek.
type Stream struct {
	db *gorm.DB
}

// NewStream creates the streaming handler group.
func NewStream(db *gorm.DB) *Stream {
	return &Stream{db: db}
}

// RegisterRoutes registers the stream routes.
func (h *Stream) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/stream/:id", h.streamSong)
}

func (h *Stream) streamSong(c *gin.Context) {
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

	file, err := os.Open(song.Path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found on disk"})
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stat file"})
		return
	}
	size := info.Size()

	start, end, partial := parseRange(c.GetHeader("Range"), size)

	c.Header("Content-Type", contentTypeFor(song.Path))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Length", strconv.FormatInt(end-start+1, 10))

	if partial {
		c.Header("Content-Range",
			"bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(size, 10))
		c.Status(http.StatusPartialContent)
	} else {
		c.Status(http.StatusOK)
	}

	if start > 0 {
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			return
		}
	}
	io.CopyN(c.Writer, file, end-start+1)
}

// parseRange interprets a "bytes=<start>-<end>" header against the file
// size. A malformed header or an out-of-bounds start falls back to the
// full file from byte 0.
func parseRange(header string, size int64) (start, end int64, partial bool) {
	start, end = 0, size-1
	if header == "" || !strings.HasPrefix(header, "bytes=") {
		return start, end, false
	}

	parts := strings.SplitN(strings.TrimPrefix(header, "bytes="), "-", 2)
	if len(parts) != 2 {
		return 0, size - 1, false
	}

	parsedStart, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || parsedStart < 0 {
		return 0, size - 1, false
	}
	start = parsedStart

	if endStr := strings.TrimSpace(parts[1]); endStr != "" {
		parsedEnd, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, size - 1, false
		}
		end = parsedEnd
	}

	if end >= size {
		end = size - 1
	}
	if start >= size || start > end {
		return 0, size - 1, false
	}
	return start, end, true
}

// contentTypeFor guesses the MIME type from the file extension,
// defaulting to audio/mpeg.
func contentTypeFor(path string) string {
	if mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mimeType != "" {
		return mimeType
	}
	return "audio/mpeg"
}
