package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/database"
	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/logger"
)

var (
	// ErrScanActive is returned when a scan is requested while one is
	// already running. Concurrent scans are not a supported mode.
	ErrScanActive = errors.New("a scan is already in progress")

	// ErrNoScanRunning is returned by StopScan when there is nothing to
	// stop.
	ErrNoScanRunning = errors.New("no scan running")
)

// Manager owns the process-wide scan state: the shared progress tracker
// and the single background synchronization goroutine.
type Manager struct {
	db     *gorm.DB
	bus    *events.Bus
	reader *TagReader
	cfg    config.ScannerConfig
	log    hclog.Logger

	progress *Progress

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a scan manager.
func NewManager(db *gorm.DB, bus *events.Bus, cfg config.ScannerConfig) *Manager {
	return &Manager{
		db:       db,
		bus:      bus,
		reader:   NewTagReader(cfg.AudioExtensions),
		cfg:      cfg,
		log:      logger.Named("scanner"),
		progress: NewProgress(cfg.MaxErrorDetails),
	}
}

// Progress returns a copied snapshot of the tracker, safe to poll at
// high frequency.
func (m *Manager) Progress() Snapshot {
	return m.progress.Snapshot()
}

// StartScan schedules one reconciliation per root, serialized on a
// single background goroutine so the shared tracker and album cache are
// never interleaved. It fails if a scan is already active.
func (m *Manager) StartScan(roots []string) error {
	if len(roots) == 0 {
		return errors.New("no library paths configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrScanActive
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel

	m.publish(events.EventScanStarted, "Library scan started",
		fmt.Sprintf("Scanning %d library path(s)", len(roots)), nil)

	m.wg.Add(1)
	go m.run(ctx, roots)
	return nil
}

// ScanLibrary starts a scan over all configured library paths.
func (m *Manager) ScanLibrary() error {
	var paths []database.LibraryPath
	if err := m.db.Find(&paths).Error; err != nil {
		return fmt.Errorf("load library paths: %w", err)
	}
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, p.Path)
	}
	return m.StartScan(roots)
}

// StopScan requests cooperative cancellation of the active scan.
// In-flight single-file processing is not interrupted; the loops halt at
// their next check.
func (m *Manager) StopScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNoScanRunning
	}

	m.cancel()
	m.progress.RequestStop()
	m.publish(events.EventScanStopped, "Library scan stopping", "Stop requested", nil)
	return nil
}

// Wait blocks until the background scan goroutine exits. Used by tests
// and shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, roots []string) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
	}()

	var failed bool
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		engine := NewSynchronizer(m.db, m.reader, m.progress, m.cfg.BatchSize)
		if err := engine.Synchronize(ctx, root); err != nil {
			failed = true
			m.log.Error("scan failed", "root", root, "error", err)
		}
	}

	summary := m.progress.Snapshot().LastScanResult
	data := map[string]interface{}{"roots": roots}
	if summary != nil {
		data["files_processed"] = summary.FilesProcessed
		data["songs_added"] = summary.SongsAdded
		data["errors"] = summary.Errors
	}

	if failed {
		m.publish(events.EventScanFailed, "Library scan failed",
			"One or more roots could not be scanned", data)
		return
	}
	m.publish(events.EventScanCompleted, "Library scan completed", "", data)
	m.log.Info("scan finished", "roots", len(roots))
}

func (m *Manager) publish(eventType events.EventType, title, message string, data map[string]interface{}) {
	if m.bus == nil {
		return
	}
	event := events.NewSystemEvent(eventType, title, message)
	event.Data = data
	m.bus.Publish(event)
}
