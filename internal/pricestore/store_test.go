package pricestore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

func obs(venue, instrument string, price float64) domain.PriceObservation {
	return domain.PriceObservation{
		Venue:      venue,
		Instrument: instrument,
		Price:      price,
		Timestamp:  time.Now().UTC(),
	}
}

func TestPutReplacesPrevious(t *testing.T) {
	s := New()

	s.Put(obs("coinbase", "BTC-USD", 50000))
	s.Put(obs("coinbase", "BTC-USD", 50100))

	got, ok := s.Get("coinbase", "BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 50100.0, got.Price)
	assert.Equal(t, 1, s.Len())
}

func TestGetMissing(t *testing.T) {
	s := New()
	_, ok := s.Get("coinbase", "BTC-USD")
	assert.False(t, ok)
}

func TestSnapshotFiltersByInstrument(t *testing.T) {
	s := New()
	s.Put(obs("coinbase", "BTC-USD", 50000))
	s.Put(obs("binance", "BTC-USD", 50050))
	s.Put(obs("coinbase", "ETH-USD", 3000))

	snap := s.Snapshot("BTC-USD", nil)
	require.Len(t, snap, 2)
	for _, o := range snap {
		assert.Equal(t, "BTC-USD", o.Instrument)
	}

	// Reusing the slice must not allocate a fresh one when capacity holds.
	snap2 := s.Snapshot("BTC-USD", snap[:0])
	assert.Len(t, snap2, 2)
}

func TestLatestByVenue(t *testing.T) {
	s := New()
	s.Put(obs("coinbase", "BTC-USD", 50000))
	s.Put(obs("binance", "BTC-USD", 50050))

	latest := s.LatestByVenue("BTC-USD")
	require.Len(t, latest, 2)
	assert.Equal(t, 50000.0, latest["coinbase"].Price)
	assert.Equal(t, 50050.0, latest["binance"].Price)
}

func TestInstruments(t *testing.T) {
	s := New()
	assert.Empty(t, s.Instruments())

	s.Put(obs("coinbase", "BTC-USD", 50000))
	s.Put(obs("binance", "BTC-USD", 50050))
	s.Put(obs("coinbase", "ETH-USD", 3000))

	assert.ElementsMatch(t, []string{"BTC-USD", "ETH-USD"}, s.Instruments())
}

func TestConcurrentPutGet(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			venue := fmt.Sprintf("venue%d", n)
			for j := 0; j < 1000; j++ {
				s.Put(obs(venue, "BTC-USD", float64(j)))
				s.Get(venue, "BTC-USD")
				s.Snapshot("BTC-USD", nil)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
	for i := 0; i < 8; i++ {
		got, ok := s.Get(fmt.Sprintf("venue%d", i), "BTC-USD")
		require.True(t, ok)
		assert.Equal(t, 999.0, got.Price)
	}
}
