// Package ledger keeps the append-only, detection-time-ordered log of
// arbitrage opportunities and computes derived statistics on demand.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Ledger is an append-only sequence of opportunities ordered by detection
// time. Entries are never removed individually; queries filter by time
// window. With MaxEntries > 0 the ledger becomes a ring buffer and the
// oldest entries are discarded on append, which narrows results for windows
// reaching past the cap. The unbounded default preserves full-session
// query semantics.
type Ledger struct {
	mu         sync.RWMutex
	entries    []domain.ArbitrageOpportunity
	maxEntries int

	total     int            // lifetime count, survives ring eviction
	pairCount map[string]int // PairKey -> lifetime count
	pairOrder []string       // insertion order for stable tie-breaking
}

// New creates a Ledger. maxEntries 0 means unbounded.
func New(maxEntries int) *Ledger {
	return &Ledger{
		maxEntries: maxEntries,
		pairCount:  make(map[string]int),
	}
}

// Append records a detected opportunity and updates per-pair frequency.
func (l *Ledger) Append(opp domain.ArbitrageOpportunity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, opp)
	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		// Shift rather than reslice so the backing array cannot grow
		// without bound under the cap.
		copy(l.entries, l.entries[len(l.entries)-l.maxEntries:])
		l.entries = l.entries[:l.maxEntries]
	}

	l.total++
	key := opp.PairKey()
	if _, seen := l.pairCount[key]; !seen {
		l.pairOrder = append(l.pairOrder, key)
	}
	l.pairCount[key]++
}

// Recent returns all entries with detection time within [now-window, now],
// oldest first. Appends are already time ordered, so this filters without
// re-sorting.
func (l *Ledger) Recent(window time.Duration, now time.Time) []domain.ArbitrageOpportunity {
	cutoff := now.Add(-window)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Entries are sorted by DetectedAt; find the first one inside the window.
	start := sort.Search(len(l.entries), func(i int) bool {
		return !l.entries[i].DetectedAt.Before(cutoff)
	})

	out := make([]domain.ArbitrageOpportunity, 0, len(l.entries)-start)
	for _, opp := range l.entries[start:] {
		if !opp.DetectedAt.After(now) {
			out = append(out, opp)
		}
	}
	return out
}

// Best returns the entry in the window with the highest profit after fees,
// or false when the window is empty.
func (l *Ledger) Best(window time.Duration, now time.Time) (domain.ArbitrageOpportunity, bool) {
	recent := l.Recent(window, now)
	if len(recent) == 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	best := recent[0]
	for _, opp := range recent[1:] {
		if opp.ProfitPct > best.ProfitPct {
			best = opp
		}
	}
	return best, true
}

// Total returns the lifetime opportunity count, including ring-evicted
// entries.
func (l *Ledger) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Stats computes detection statistics for the window: lifetime total, window
// count, mean/max/min profit among windowed entries, and the topN most
// frequent venue pairs (lifetime counts, ties broken by first-seen order).
func (l *Ledger) Stats(window time.Duration, now time.Time, topN int) domain.Statistics {
	recent := l.Recent(window, now)

	stats := domain.Statistics{
		TotalOpportunities: l.Total(),
		RecentCount:        len(recent),
		TopPairs:           l.topPairs(topN),
	}
	if len(recent) == 0 {
		return stats
	}

	sum := 0.0
	stats.MaxProfit = recent[0].ProfitPct
	stats.MinProfit = recent[0].ProfitPct
	for _, opp := range recent {
		sum += opp.ProfitPct
		if opp.ProfitPct > stats.MaxProfit {
			stats.MaxProfit = opp.ProfitPct
		}
		if opp.ProfitPct < stats.MinProfit {
			stats.MinProfit = opp.ProfitPct
		}
	}
	stats.AvgProfit = sum / float64(len(recent))
	return stats
}

// topPairs ranks pair frequencies descending; equal counts keep first-seen
// insertion order.
func (l *Ledger) topPairs(n int) []domain.PairCount {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ranked := make([]domain.PairCount, 0, len(l.pairOrder))
	for _, key := range l.pairOrder {
		ranked = append(ranked, domain.PairCount{Pair: key, Count: l.pairCount[key]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
