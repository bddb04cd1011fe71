// Package feed owns the lifecycle of all venue adapters: concurrent start,
// exponential-backoff reconnect, coordinated shutdown, and the single
// ingestion point that routes every observation to the price state store,
// the detector, and subscriber channels.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/pricestore"
	"github.com/alanyoungcy/arbscan/internal/venue"
)

// Observer is an ingestion-path consumer invoked synchronously for every
// observation, after the store write. The detector is wired as the first
// observer so it always reads a store that already reflects the triggering
// observation.
type Observer interface {
	Observe(ctx context.Context, obs domain.PriceObservation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, obs domain.PriceObservation)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, obs domain.PriceObservation) { f(ctx, obs) }

// Config holds supervisor lifecycle parameters.
type Config struct {
	// Backoff is the per-adapter reconnect schedule.
	Backoff venue.Backoff
	// MaxReconnectAttempts is the cumulative retry budget per adapter;
	// exceeding it parks the adapter in a terminal failed state.
	MaxReconnectAttempts int
	// ShutdownTimeout bounds Stop; adapters still running afterwards are
	// abandoned rather than awaited.
	ShutdownTimeout time.Duration
	// SubscriberBuffer is the channel depth handed to Subscribe callers.
	SubscriberBuffer int
}

// adapterRun tracks one adapter's session state for status reporting.
type adapterRun struct {
	adapter venue.Adapter

	mu           sync.Mutex
	state        domain.VenueState
	reconnects   int
	observations int64
	lastMessage  time.Time
	lastErr      error
}

func (r *adapterRun) setState(s domain.VenueState, err error) {
	r.mu.Lock()
	r.state = s
	if err != nil {
		r.lastErr = err
	}
	r.mu.Unlock()
}

func (r *adapterRun) status() domain.VenueStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := domain.VenueStatus{
		Venue:        r.adapter.Name(),
		State:        r.state,
		Reconnects:   r.reconnects,
		Observations: r.observations,
		LastMessage:  r.lastMessage,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// Supervisor runs one goroutine per adapter. A slow or backing-off adapter
// never delays ingestion from the others; a permanently failed adapter only
// reduces detection coverage.
type Supervisor struct {
	cfg       Config
	store     *pricestore.Store
	observers []Observer
	logger    *slog.Logger

	runs []*adapterRun

	subMu sync.RWMutex
	subs  []chan domain.PriceObservation

	dropped atomic.Int64 // fan-out messages dropped on full subscriber buffers

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewSupervisor creates a Supervisor over the given adapters. Observers run
// synchronously in the ingestion path, in order, after the store write.
func NewSupervisor(cfg Config, adapters []venue.Adapter, store *pricestore.Store, observers []Observer, logger *slog.Logger) *Supervisor {
	runs := make([]*adapterRun, 0, len(adapters))
	for _, a := range adapters {
		runs = append(runs, &adapterRun{adapter: a, state: domain.VenueDisconnected})
	}
	return &Supervisor{
		cfg:       cfg,
		store:     store,
		observers: observers,
		logger:    logger.With(slog.String("component", "feed_supervisor")),
		runs:      runs,
		stopped:   make(chan struct{}),
	}
}

// Run starts every adapter concurrently and blocks until all of them
// terminate or the supervisor is stopped. Adapter failures are contained:
// Run only returns ctx.Err() on cancellation, never an adapter error.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	g := new(errgroup.Group)
	for _, run := range s.runs {
		g.Go(func() error {
			s.runAdapter(ctx, run)
			return nil
		})
	}
	_ = g.Wait()

	s.closeSubscribers()
	return ctx.Err()
}

// Stop signals all adapters to disconnect and waits for graceful shutdown,
// bounded by ShutdownTimeout. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		for _, run := range s.runs {
			if err := run.adapter.Close(); err != nil {
				s.logger.Debug("adapter close", slog.String("venue", run.adapter.Name()), slog.String("error", err.Error()))
			}
		}

		deadline := time.After(s.cfg.ShutdownTimeout)
		for _, run := range s.runs {
			for {
				st := run.status()
				if st.State == domain.VenueDisconnected || st.State == domain.VenueFailed {
					break
				}
				select {
				case <-deadline:
					s.logger.Warn("shutdown timeout, abandoning adapters")
					return
				case <-time.After(50 * time.Millisecond):
				}
			}
		}
	})
}

// runAdapter drives one adapter through its reconnect state machine:
// Disconnected -> Connecting -> Subscribed -> Streaming -> (transport error)
// Disconnected, with exponential backoff between attempts and a terminal
// Failed state once the retry budget is exhausted. The attempt counter is
// cumulative for the session; a healthy stretch does not reset it.
func (s *Supervisor) runAdapter(ctx context.Context, run *adapterRun) {
	name := run.adapter.Name()
	attempts := 0

	for {
		if ctx.Err() != nil {
			run.setState(domain.VenueDisconnected, nil)
			return
		}

		err := s.runSession(ctx, run)
		if err == nil || ctx.Err() != nil {
			run.setState(domain.VenueDisconnected, nil)
			return
		}

		attempts++
		run.mu.Lock()
		run.reconnects = attempts
		run.mu.Unlock()

		if attempts >= s.cfg.MaxReconnectAttempts {
			run.setState(domain.VenueFailed, fmt.Errorf("%w after %d attempts: %v", domain.ErrRetriesExhausted, attempts, err))
			s.logger.Error("adapter failed permanently, siblings unaffected",
				slog.String("venue", name),
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()),
			)
			return
		}

		run.setState(domain.VenueDisconnected, err)
		s.logger.Warn("adapter disconnected, reconnecting",
			slog.String("venue", name),
			slog.Int("attempt", attempts),
			slog.Duration("backoff", s.cfg.Backoff.Delay(attempts)),
			slog.String("error", err.Error()),
		)
		if err := s.cfg.Backoff.Sleep(ctx, attempts); err != nil {
			run.setState(domain.VenueDisconnected, nil)
			return
		}
	}
}

// runSession runs one connect/subscribe/stream cycle. Any returned error is
// transport level; per-message parse failures never surface here.
func (s *Supervisor) runSession(ctx context.Context, run *adapterRun) error {
	defer run.adapter.Close()

	run.setState(domain.VenueConnecting, nil)
	if err := run.adapter.Connect(ctx); err != nil {
		return err
	}

	if err := run.adapter.Subscribe(ctx); err != nil {
		return err
	}
	run.setState(domain.VenueSubscribed, nil)

	// Close the socket as soon as ctx dies so the blocking read unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			run.adapter.Close()
		case <-done:
		}
	}()

	run.setState(domain.VenueStreaming, nil)
	s.logger.Info("venue streaming", slog.String("venue", run.adapter.Name()))

	return run.adapter.Stream(ctx, func(obs domain.PriceObservation) {
		run.mu.Lock()
		run.observations++
		run.lastMessage = time.Now()
		run.mu.Unlock()
		s.ingest(ctx, obs)
	})
}

// ingest is the single ingestion point. Order matters: store write first,
// then observers (detector first), then non-blocking fan-out so a stalled
// subscriber can never slow a venue's read loop.
func (s *Supervisor) ingest(ctx context.Context, obs domain.PriceObservation) {
	s.store.Put(obs)
	for _, o := range s.observers {
		o.Observe(ctx, obs)
	}
	s.fanOut(obs)
}

func (s *Supervisor) fanOut(obs domain.PriceObservation) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- obs:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribe registers an external consumer and returns its observation
// channel. The channel is buffered with the configured depth; when the
// consumer falls behind, observations are dropped for that consumer rather
// than blocking ingestion. The channel is closed when the supervisor exits.
func (s *Supervisor) Subscribe() <-chan domain.PriceObservation {
	ch := make(chan domain.PriceObservation, s.cfg.SubscriberBuffer)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Supervisor) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// VenueStatus reports every adapter's current lifecycle state.
func (s *Supervisor) VenueStatus() []domain.VenueStatus {
	out := make([]domain.VenueStatus, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.status())
	}
	return out
}

// Dropped returns how many fan-out messages were discarded on full
// subscriber buffers.
func (s *Supervisor) Dropped() int64 {
	return s.dropped.Load()
}
