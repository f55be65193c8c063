package scanner

import (
	"sync"
	"time"
)

// ErrorDetail is one recorded extraction failure.
type ErrorDetail struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Delta is one incremental progress update.
type Delta struct {
	Files         int
	SongsAdded    int
	SongsUpdated  int
	SongsRemoved  int
	AlbumsRemoved int
	Errors        int
	CurrentFile   string
	Error         *ErrorDetail
}

// Summary is the retained result of the last completed scan.
type Summary struct {
	FilesProcessed int           `json:"files_processed"`
	SongsAdded     int           `json:"songs_added"`
	SongsUpdated   int           `json:"songs_updated"`
	SongsRemoved   int           `json:"songs_removed"`
	AlbumsRemoved  int           `json:"albums_removed"`
	Errors         int           `json:"errors"`
	ErrorDetails   []ErrorDetail `json:"error_details,omitempty"`
	Duration       float64       `json:"duration"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// Snapshot is a fully-copied read of the tracker state, safe to hand to
// concurrent pollers.
type Snapshot struct {
	IsScanning     bool          `json:"is_scanning"`
	FilesProcessed int           `json:"files_processed"`
	SongsAdded     int           `json:"songs_added"`
	SongsUpdated   int           `json:"songs_updated"`
	SongsRemoved   int           `json:"songs_removed"`
	AlbumsRemoved  int           `json:"albums_removed"`
	Errors         int           `json:"errors"`
	CurrentFile    string        `json:"current_file"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	ErrorDetails   []ErrorDetail `json:"error_details,omitempty"`
	LastScanResult *Summary      `json:"last_scan_result,omitempty"`
}

// Progress tracks the currently running (or just-finished) scan. One
// lock guards every field; it is held only for counter updates and
// snapshot copies, never across file or database I/O.
type Progress struct {
	mu             sync.Mutex
	isScanning     bool
	filesProcessed int
	songsAdded     int
	songsUpdated   int
	songsRemoved   int
	albumsRemoved  int
	errors         int
	currentFile    string
	startTime      time.Time
	errorDetails   []ErrorDetail
	maxErrors      int
	lastResult     *Summary
}

// NewProgress creates a tracker whose error list is capped at maxErrors
// entries.
func NewProgress(maxErrors int) *Progress {
	if maxErrors <= 0 {
		maxErrors = 50
	}
	return &Progress{maxErrors: maxErrors}
}

// Reset transitions the tracker to scanning, zeroing all counters and
// stamping the start time. Called exactly once at the start of a scan.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isScanning = true
	p.filesProcessed = 0
	p.songsAdded = 0
	p.songsUpdated = 0
	p.songsRemoved = 0
	p.albumsRemoved = 0
	p.errors = 0
	p.currentFile = ""
	p.errorDetails = nil
	p.startTime = time.Now()
}

// Update applies one incremental delta under the lock. Error details are
// appended only while the bounded list has capacity.
func (p *Progress) Update(d Delta) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesProcessed += d.Files
	p.songsAdded += d.SongsAdded
	p.songsUpdated += d.SongsUpdated
	p.songsRemoved += d.SongsRemoved
	p.albumsRemoved += d.AlbumsRemoved
	p.errors += d.Errors
	if d.CurrentFile != "" {
		p.currentFile = d.CurrentFile
	}
	if d.Error != nil && len(p.errorDetails) < p.maxErrors {
		p.errorDetails = append(p.errorDetails, *d.Error)
	}
}

// RequestStop flips the scanning flag so the reconciliation loops halt
// at their next check. Counters are left intact for the final summary.
func (p *Progress) RequestStop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isScanning = false
}

// IsScanning reports whether a scan is active. The reconciliation
// engine checks this at every directory and file step.
func (p *Progress) IsScanning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isScanning
}

// Finish transitions to idle and snapshots the summary into the
// last-scan result. Safe to call after RequestStop; the summary is
// written once per Reset.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.startTime.IsZero() {
		p.lastResult = &Summary{
			FilesProcessed: p.filesProcessed,
			SongsAdded:     p.songsAdded,
			SongsUpdated:   p.songsUpdated,
			SongsRemoved:   p.songsRemoved,
			AlbumsRemoved:  p.albumsRemoved,
			Errors:         p.errors,
			ErrorDetails:   append([]ErrorDetail(nil), p.errorDetails...),
			Duration:       time.Since(p.startTime).Seconds(),
			CompletedAt:    time.Now(),
		}
		p.startTime = time.Time{}
	}

	p.isScanning = false
	p.currentFile = ""
}

// Snapshot returns a copy of all fields for concurrent pollers.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		IsScanning:     p.isScanning,
		FilesProcessed: p.filesProcessed,
		SongsAdded:     p.songsAdded,
		SongsUpdated:   p.songsUpdated,
		SongsRemoved:   p.songsRemoved,
		AlbumsRemoved:  p.albumsRemoved,
		Errors:         p.errors,
		CurrentFile:    p.currentFile,
		ErrorDetails:   append([]ErrorDetail(nil), p.errorDetails...),
	}
	if !p.startTime.IsZero() {
		start := p.startTime
		snap.StartTime = &start
	}
	if p.lastResult != nil {
		result := *p.lastResult
		result.ErrorDetails = append([]ErrorDetail(nil), p.lastResult.ErrorDetails...)
		snap.LastScanResult = &result
	}
	return snap
}
