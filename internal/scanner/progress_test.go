package scanner

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressLifecycle(t *testing.T) {
	p := NewProgress(50)

	snap := p.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Nil(t, snap.LastScanResult)

	p.Reset()
	assert.True(t, p.IsScanning())

	p.Update(Delta{Files: 1, SongsAdded: 1, CurrentFile: "a.mp3"})
	p.Update(Delta{Files: 1, SongsUpdated: 1, CurrentFile: "b.mp3"})
	p.Update(Delta{SongsRemoved: 2, AlbumsRemoved: 1})

	snap = p.Snapshot()
	assert.True(t, snap.IsScanning)
	assert.Equal(t, 2, snap.FilesProcessed)
	assert.Equal(t, 1, snap.SongsAdded)
	assert.Equal(t, 1, snap.SongsUpdated)
	assert.Equal(t, 2, snap.SongsRemoved)
	assert.Equal(t, 1, snap.AlbumsRemoved)
	assert.Equal(t, "b.mp3", snap.CurrentFile)
	require.NotNil(t, snap.StartTime)

	p.Finish()
	snap = p.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Empty(t, snap.CurrentFile)
	assert.Nil(t, snap.StartTime)
	require.NotNil(t, snap.LastScanResult)
	assert.Equal(t, 2, snap.LastScanResult.FilesProcessed)
	assert.Equal(t, 1, snap.LastScanResult.SongsAdded)
	assert.False(t, snap.LastScanResult.CompletedAt.IsZero())
}

func TestProgressResetClearsCountersButKeepsLastResult(t *testing.T) {
	p := NewProgress(50)

	p.Reset()
	p.Update(Delta{Files: 5, SongsAdded: 5})
	p.Finish()

	p.Reset()
	snap := p.Snapshot()
	assert.True(t, snap.IsScanning)
	assert.Zero(t, snap.FilesProcessed)
	require.NotNil(t, snap.LastScanResult)
	assert.Equal(t, 5, snap.LastScanResult.FilesProcessed)
}

func TestProgressFinishWritesSummaryOncePerReset(t *testing.T) {
	p := NewProgress(50)

	p.Reset()
	p.Update(Delta{Files: 3})
	p.Finish()

	// A second finish without a reset must not overwrite the summary.
	p.Update(Delta{Files: 100})
	p.Finish()

	snap := p.Snapshot()
	require.NotNil(t, snap.LastScanResult)
	assert.Equal(t, 3, snap.LastScanResult.FilesProcessed)
}

func TestProgressErrorListIsBounded(t *testing.T) {
	p := NewProgress(3)
	p.Reset()

	for i := 0; i < 10; i++ {
		p.Update(Delta{
			Errors: 1,
			Error:  &ErrorDetail{File: fmt.Sprintf("f%d.mp3", i), Message: "bad"},
		})
	}

	snap := p.Snapshot()
	assert.Equal(t, 10, snap.Errors)
	assert.Len(t, snap.ErrorDetails, 3)
}

func TestProgressRequestStop(t *testing.T) {
	p := NewProgress(50)
	p.Reset()
	p.Update(Delta{Files: 4, SongsAdded: 2})

	p.RequestStop()
	assert.False(t, p.IsScanning())

	// Counters survive the stop for the final summary.
	p.Finish()
	snap := p.Snapshot()
	require.NotNil(t, snap.LastScanResult)
	assert.Equal(t, 4, snap.LastScanResult.FilesProcessed)
	assert.Equal(t, 2, snap.LastScanResult.SongsAdded)
}

func TestProgressSnapshotIsIndependentCopy(t *testing.T) {
	p := NewProgress(50)
	p.Reset()
	p.Update(Delta{Errors: 1, Error: &ErrorDetail{File: "a.mp3", Message: "bad"}})

	snap := p.Snapshot()
	snap.ErrorDetails[0].Message = "mutated"

	assert.Equal(t, "bad", p.Snapshot().ErrorDetails[0].Message)
}

func TestProgressConcurrentAccess(t *testing.T) {
	p := NewProgress(50)
	p.Reset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Update(Delta{Files: 1})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = p.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, p.Snapshot().FilesProcessed)
}
