package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	sent := NewSystemEvent(EventScanStarted, "Scan started", "")
	bus.Publish(sent)

	got := <-ch
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, EventScanStarted, got.Type)
	assert.Equal(t, "system", got.Source)
	assert.False(t, got.Timestamp.IsZero())
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	id, _ := bus.Subscribe()
	defer bus.Unsubscribe(id)

	// Overflow the subscriber buffer; publishing must not stall.
	for i := 0; i < 200; i++ {
		bus.Publish(NewSystemEvent(EventScanProgress, "tick", ""))
	}
}

func TestRecentIsBoundedAndCopied(t *testing.T) {
	bus := NewBus()
	for i := 0; i < 150; i++ {
		bus.Publish(NewSystemEvent(EventScanProgress, "tick", ""))
	}

	recent := bus.Recent()
	require.Len(t, recent, 100)

	recent[0].Title = "mutated"
	assert.Equal(t, "tick", bus.Recent()[0].Title)
}

func TestPublishSurvivesSubscriberChurn(t *testing.T) {
	bus := NewBus()

	stop := make(chan struct{})
	var publishers sync.WaitGroup
	for i := 0; i < 8; i++ {
		publishers.Add(1)
		go func() {
			defer publishers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					bus.Publish(NewSystemEvent(EventScanProgress, "tick", ""))
				}
			}
		}()
	}

	// Subscribers constantly joining and leaving while publishes are in
	// flight must never crash a publisher.
	var churn sync.WaitGroup
	for i := 0; i < 8; i++ {
		churn.Add(1)
		go func() {
			defer churn.Done()
			for j := 0; j < 200; j++ {
				id, _ := bus.Subscribe()
				bus.Unsubscribe(id)
			}
		}()
	}

	churn.Wait()
	close(stop)
	publishers.Wait()
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe()
	bus.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe reaches nobody but still succeeds.
	bus.Publish(NewSystemEvent(EventScanCompleted, "done", ""))
}
