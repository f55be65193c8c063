package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/scanner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(conn))
	return conn
}

// newTestRouter builds a router with every handler group registered
// against a fresh in-memory database.
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	cfg := config.Default()
	scans := scanner.NewManager(db, events.NewBus(), cfg.Scanner)

	r := gin.New()
	api := r.Group("/api")
	NewLibrary(db, scans).RegisterRoutes(api)
	NewPlaylists(db).RegisterRoutes(api)
	NewStream(db).RegisterRoutes(api)
	NewMedia(db, cfg.Scanner).RegisterRoutes(api)
	NewSystem(cfg).RegisterRoutes(api)

	return r, db
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func seedSong(t *testing.T, db *gorm.DB, song database.Song) database.Song {
	t.Helper()
	require.NoError(t, db.Create(&song).Error)
	return song
}

func seedAlbum(t *testing.T, db *gorm.DB, album database.Album) database.Album {
	t.Helper()
	require.NoError(t, db.Create(&album).Error)
	return album
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}
