package detector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// blockingSink parks inside PublishOpportunity until released, signalling
// entry so tests can synchronize on the blocked state.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingSink) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func profitableCfg() Config {
	return Config{
		MinProfitPct: 0.2,
		MaxAge:       5 * time.Second,
		FeePct:       map[string]float64{"cheap": 0.1, "rich": 0.1},
	}
}

func TestSinkLatencyDoesNotSerializeObserve(t *testing.T) {
	sink := newBlockingSink()
	d, store, _ := newTestDetector(profitableCfg(), sink)

	store.Put(fullObs("cheap", 49990, 50000, time.Second))
	trigger := fullObs("rich", 50500, 50510, time.Second)
	store.Put(trigger)

	done := make(chan struct{})
	go func() {
		d.Observe(context.Background(), trigger)
		close(done)
	}()

	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("sink never invoked")
	}

	// With the first pass parked inside its sink, a tick for another
	// instrument must still complete promptly: sink dispatch happens after
	// the evaluation lock is released.
	other := domain.PriceObservation{
		Venue:      "cheap",
		Instrument: "ETH-USD",
		Price:      3000,
		Timestamp:  testNow.Add(-time.Second),
	}
	store.Put(other)

	start := time.Now()
	d.Observe(context.Background(), other)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	close(sink.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first observe never returned")
	}
}

func TestSinkQueueEnqueueNeverBlocks(t *testing.T) {
	// No worker running: the buffer fills and the overflow is dropped.
	sink := newBlockingSink()
	q := NewSinkQueue([]domain.OpportunitySink{sink}, 2, discardLogger())

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, q.PublishOpportunity(context.Background(), domain.ArbitrageOpportunity{ID: "x"}))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, int64(8), q.Dropped())
}

func TestSinkQueueDispatchesInOrder(t *testing.T) {
	sink := &captureSink{}
	q := NewSinkQueue([]domain.OpportunitySink{sink}, 16, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- q.Run(ctx) }()

	require.NoError(t, q.PublishOpportunity(ctx, domain.ArbitrageOpportunity{ID: "a"}))
	require.NoError(t, q.PublishOpportunity(ctx, domain.ArbitrageOpportunity{ID: "b"}))

	require.Eventually(t, func() bool { return len(sink.opps) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a", sink.opps[0].ID)
	assert.Equal(t, "b", sink.opps[1].ID)

	cancel()
	select {
	case err := <-runDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run never returned after cancel")
	}
}

func TestSinkQueueContainsSlowSink(t *testing.T) {
	sink := newBlockingSink()
	q := NewSinkQueue([]domain.OpportunitySink{sink}, 16, discardLogger())
	d, store, led := newTestDetector(profitableCfg(), q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	store.Put(fullObs("cheap", 49990, 50000, time.Second))
	trigger := fullObs("rich", 50500, 50510, time.Second)
	store.Put(trigger)

	// Park the worker inside the slow sink on the first emission.
	d.Observe(context.Background(), trigger)
	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("worker never reached the sink")
	}

	// Further ticks keep flowing at ingestion speed while the worker is
	// stuck; every emission still lands in the ledger.
	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Observe(context.Background(), trigger)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, 6, led.Total())

	close(sink.release)
}
