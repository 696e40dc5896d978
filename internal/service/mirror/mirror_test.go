package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

type captureSink struct {
	mu     sync.Mutex
	events []models.Event
	fail   bool
}

func (c *captureSink) StoreEvent(_ context.Context, event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) snapshot() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMirrorFansOutToAllSinks(t *testing.T) {
	events := make(chan models.Event, 8)
	first := &captureSink{}
	second := &captureSink{}

	svc := NewService(events, nil)
	svc.AddSink("first", first)
	svc.AddSink("second", second)
	svc.Start()
	defer svc.Stop()

	events <- models.Event{Seq: 1, Name: models.EventBatchCreated, Key: "BATCH-001"}
	events <- models.Event{Seq: 2, Name: models.EventProductRegistered, Key: "QR-1"}

	waitFor(t, func() bool {
		return len(first.snapshot()) == 2 && len(second.snapshot()) == 2
	})

	got := first.snapshot()
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("events should arrive in order, got %+v", got)
	}
}

func TestMirrorSurvivesFailingSink(t *testing.T) {
	events := make(chan models.Event, 8)
	broken := &captureSink{fail: true}
	healthy := &captureSink{}

	svc := NewService(events, nil)
	svc.AddSink("broken", broken)
	svc.AddSink("healthy", healthy)
	svc.Start()
	defer svc.Stop()

	events <- models.Event{Seq: 1, Name: models.EventTransactionRecorded, Key: "QR-1"}

	waitFor(t, func() bool { return len(healthy.snapshot()) == 1 })
}

func TestMirrorStopsOnClosedLog(t *testing.T) {
	events := make(chan models.Event, 8)
	sink := &captureSink{}

	svc := NewService(events, nil)
	svc.AddSink("sink", sink)
	svc.Start()

	events <- models.Event{Seq: 1, Name: models.EventRegistryPaused}
	close(events)

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the event log closed")
	}
}
