// Package scanner implements the library synchronization engine: it
// reconciles the song catalog against the filesystem, extracting and
// normalizing tags, deduplicating albums, and pruning entries whose
// backing files disappeared.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/logger"
)

// errScanCancelled stops the directory walk when a stop was requested.
// Cancellation is not a failure: the finalization steps still run.
var errScanCancelled = errors.New("scan cancelled")

// Synchronizer reconciles one root directory against the catalog.
type Synchronizer struct {
	db        *gorm.DB
	reader    *TagReader
	progress  *Progress
	batchSize int
}

// NewSynchronizer creates a reconciliation engine. Pending writes are
// flushed every batchSize processed records so a crash mid-scan loses at
// most one uncommitted batch.
func NewSynchronizer(db *gorm.DB, reader *TagReader, progress *Progress, batchSize int) *Synchronizer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Synchronizer{
		db:        db,
		reader:    reader,
		progress:  progress,
		batchSize: batchSize,
	}
}

// Synchronize walks the root directory and brings the catalog in line
// with it. Idempotent and safe to re-run. Per-file errors accumulate in
// the progress tracker; only a root-level fatal condition aborts
// traversal, and the tracker is finalized on every exit path.
func (s *Synchronizer) Synchronize(ctx context.Context, root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		logger.Warn("scan root does not exist, skipping", "root", root)
		return nil
	}

	s.progress.Reset()

	var syncErr error
	defer func() {
		if syncErr != nil {
			s.progress.Update(Delta{
				Errors: 1,
				Error:  &ErrorDetail{File: root, Message: syncErr.Error()},
			})
		}
		s.progress.Finish()
	}()

	syncErr = s.reconcile(ctx, root)
	return syncErr
}

// reconcile performs the traversal and finalization for one root.
func (s *Synchronizer) reconcile(ctx context.Context, root string) error {
	known, err := s.loadKnownSongs()
	if err != nil {
		return err
	}

	albums := NewAlbumResolver(s.db)
	if err := albums.Seed(); err != nil {
		return err
	}

	found := make(map[string]bool)
	var pendingInserts []*database.Song
	var pendingUpdates []*database.Song

	flushIfFull := func() error {
		if len(pendingInserts)+len(pendingUpdates) < s.batchSize {
			return nil
		}
		if err := s.flush(pendingInserts, pendingUpdates); err != nil {
			return err
		}
		pendingInserts = pendingInserts[:0]
		pendingUpdates = pendingUpdates[:0]
		return nil
	}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, entryErr error) error {
		if s.cancelled(ctx) {
			return errScanCancelled
		}
		if entryErr != nil {
			if path == root {
				return fmt.Errorf("read scan root %s: %w", root, entryErr)
			}
			s.progress.Update(Delta{
				Errors: 1,
				Error:  &ErrorDetail{File: path, Message: entryErr.Error()},
			})
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if !s.reader.CanRead(path) {
			return nil
		}

		found[path] = true
		s.progress.Update(Delta{Files: 1, CurrentFile: entry.Name()})

		existing := known[path]
		if existing != nil {
			info, infoErr := entry.Info()
			if infoErr == nil && !needsRescan(existing, info.Size()) {
				return nil
			}
		}

		tags, tagErr := s.reader.ReadTags(path)
		if tagErr != nil {
			s.progress.Update(Delta{
				Errors: 1,
				Error:  &ErrorDetail{File: path, Message: tagErr.Error()},
			})
			return nil
		}

		albumID, albumErr := albums.Resolve(tags.Album, tags.AlbumArtist, tags)
		if albumErr != nil {
			return albumErr
		}

		if existing != nil {
			applyTags(existing, tags, albumID)
			pendingUpdates = append(pendingUpdates, existing)
			s.progress.Update(Delta{SongsUpdated: 1})
		} else {
			song := newSong(path, tags, albumID)
			pendingInserts = append(pendingInserts, song)
			s.progress.Update(Delta{SongsAdded: 1})
		}

		return flushIfFull()
	})

	// A fatal error aborts before pruning; cancellation does not.
	if walkErr != nil && !errors.Is(walkErr, errScanCancelled) {
		return walkErr
	}

	if err := s.prune(root, known, found); err != nil {
		return err
	}
	if err := s.flush(pendingInserts, pendingUpdates); err != nil {
		return err
	}
	if err := s.removeOrphanAlbums(); err != nil {
		return err
	}

	return nil
}

// cancelled checks both the explicit cancellation token and the
// tracker's scanning flag at each suspension point.
func (s *Synchronizer) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !s.progress.IsScanning()
}

func (s *Synchronizer) loadKnownSongs() (map[string]*database.Song, error) {
	var songs []database.Song
	if err := s.db.Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("load existing songs: %w", err)
	}
	known := make(map[string]*database.Song, len(songs))
	for i := range songs {
		known[songs[i].Path] = &songs[i]
	}
	return known, nil
}

// needsRescan is the change-detection policy. A matching file size with
// extracted lyrics means the stored record is current. Records without
// lyrics predate the lyrics-aware extractor, so they are re-parsed even
// when the size is unchanged; this heals under-extracted rows instead of
// freezing them forever.
func needsRescan(song *database.Song, size int64) bool {
	if song.FileSize != size {
		return true
	}
	return !song.HasLyrics
}

// flush commits the pending writes in one transaction. Updates never
// touch the user-only columns.
func (s *Synchronizer) flush(inserts, updates []*database.Song) error {
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(inserts) > 0 {
			if err := tx.Create(inserts).Error; err != nil {
				return err
			}
		}
		for _, song := range updates {
			if err := tx.Omit(database.UserOnlyColumns...).Save(song).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// prune deletes songs whose backing file was not found in this pass.
// Only paths under the scanned root are considered, so a scan of one
// configured root never prunes songs belonging to another.
func (s *Synchronizer) prune(root string, known map[string]*database.Song, found map[string]bool) error {
	var stale []uint
	for path, song := range known {
		if found[path] {
			continue
		}
		if !underRoot(path, root) {
			continue
		}
		stale = append(stale, song.ID)
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.db.Delete(&database.Song{}, stale).Error; err != nil {
		return fmt.Errorf("prune removed songs: %w", err)
	}
	s.progress.Update(Delta{SongsRemoved: len(stale)})
	logger.Info("pruned songs with missing files", "root", root, "count", len(stale))
	return nil
}

// removeOrphanAlbums deletes every album left with zero songs.
func (s *Synchronizer) removeOrphanAlbums() error {
	result := s.db.
		Where("(SELECT COUNT(*) FROM songs WHERE songs.album_id = albums.id) = 0").
		Delete(&database.Album{})
	if result.Error != nil {
		return fmt.Errorf("remove orphan albums: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.progress.Update(Delta{AlbumsRemoved: int(result.RowsAffected)})
	}
	return nil
}

func underRoot(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// applyTags overwrites all catalog-derived fields in place, leaving the
// user-only fields untouched.
func applyTags(song *database.Song, tags *SongTags, albumID uint) {
	song.Title = tags.Title
	song.Artist = tags.Artist
	song.AlbumID = &albumID

	song.Composer = tags.Composer
	song.Conductor = tags.Conductor
	song.Lyricist = tags.Lyricist
	song.Arranger = tags.Arranger
	song.Performer = tags.Performer
	song.Remixer = tags.Remixer
	song.Engineer = tags.Engineer
	song.Producer = tags.Producer

	song.TrackNumber = tags.TrackNumber
	song.DiscNumber = tags.DiscNumber
	song.Genre = tags.Genre
	song.Compilation = tags.Compilation
	song.ISRC = tags.ISRC

	song.Year = tags.Year
	song.ReleaseDate = tags.ReleaseDate
	song.OriginalDate = tags.OriginalDate

	song.Duration = tags.Duration
	song.FileSize = tags.FileSize
	song.Bitrate = tags.Bitrate
	song.SampleRate = tags.SampleRate
	song.Channels = tags.Channels
	song.BitsPerSample = tags.BitsPerSample
	song.Format = tags.Format
	song.Codec = tags.Codec

	song.HasLyrics = tags.HasLyrics
	song.Lyrics = tags.Lyrics
	song.SyncedLyrics = tags.SyncedLyrics
	song.Comment = tags.Comment
	song.Description = tags.Description
	song.Language = tags.Language
	song.Mood = tags.Mood

	song.BPM = tags.BPM
	song.InitialKey = tags.InitialKey

	song.ReplaygainTrackGain = tags.ReplaygainTrackGain
	song.ReplaygainTrackPeak = tags.ReplaygainTrackPeak
	song.ReplaygainAlbumGain = tags.ReplaygainAlbumGain
	song.ReplaygainAlbumPeak = tags.ReplaygainAlbumPeak

	song.MediaType = tags.MediaType
	song.Grouping = tags.Grouping
	song.Subtitle = tags.Subtitle
}

// newSong constructs a fresh catalog record with a date-added stamp.
func newSong(path string, tags *SongTags, albumID uint) *database.Song {
	now := time.Now()
	song := &database.Song{
		Path:      path,
		DateAdded: &now,
	}
	applyTags(song, tags, albumID)
	return song
}
