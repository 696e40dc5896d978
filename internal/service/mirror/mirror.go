package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// Sink receives mirrored registry events. The MongoDB repository, the sheet
// export and the indexer client all satisfy it.
type Sink interface {
	StoreEvent(ctx context.Context, event models.Event) error
}

const sinkTimeout = 10 * time.Second

// Service drains the registry's notification log into every configured
// sink. Sink failures are logged and skipped: the mirror is an observer of
// the ledger, never a gate on it.
type Service struct {
	events <-chan models.Event
	logger *zap.Logger

	mu    sync.Mutex
	sinks map[string]Sink

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// NewService creates a mirror service reading from the provided event log.
func NewService(events <-chan models.Event, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		events: events,
		logger: logger,
		sinks:  make(map[string]Sink),
	}
}

// AddSink registers a named destination for mirrored events. Must be called
// before Start.
func (s *Service) AddSink(name string, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks[name] = sink
}

// Start launches the drain loop. It runs until Stop is called or the event
// log is closed.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.drain(ctx)
	}()

	s.logger.Info("mirror service started", zap.Int("sinks", len(s.sinks)))
}

// Stop terminates the drain loop and waits for in-flight deliveries.
func (s *Service) Stop() {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
	s.logger.Info("mirror service stopped")
}

func (s *Service) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.events:
			if !ok {
				return
			}
			s.deliver(ctx, event)
		}
	}
}

func (s *Service) deliver(ctx context.Context, event models.Event) {
	s.mu.Lock()
	sinks := make(map[string]Sink, len(s.sinks))
	for name, sink := range s.sinks {
		sinks[name] = sink
	}
	s.mu.Unlock()

	for name, sink := range sinks {
		deliverCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.StoreEvent(deliverCtx, event)
		cancel()

		if err != nil {
			s.logger.Error("failed mirroring event",
				zap.String("sink", name),
				zap.Uint64("seq", event.Seq),
				zap.String("event", string(event.Name)),
				zap.Error(err))
			continue
		}

		s.logger.Debug("event mirrored",
			zap.String("sink", name),
			zap.Uint64("seq", event.Seq))
	}
}
