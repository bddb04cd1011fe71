// Package pricestore holds the single freshest observation per
// (venue, instrument) pair.
package pricestore

import (
	"hash/fnv"
	"sync"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// shardCount trades memory for write independence between keys. Must be a
// power of two.
const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	entries map[string]domain.PriceObservation
}

// Store is a sharded last-write-wins map keyed by (venue, instrument). A new
// observation for a key fully replaces the previous one; there is no merge.
// Writes to one key are atomic with respect to reads of that key, and writes
// to keys on different shards never contend. Cross-key snapshots may be
// slightly inconsistent, which the detector tolerates.
//
// The store is constructed and passed in explicitly; there is no package
// level instance.
type Store struct {
	shards [shardCount]*shard
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]domain.PriceObservation)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()&(shardCount-1)]
}

// Put upserts the latest observation for (obs.Venue, obs.Instrument).
func (s *Store) Put(obs domain.PriceObservation) {
	key := obs.Key()
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = obs
	sh.mu.Unlock()
}

// Get returns the latest observation for the given venue and instrument.
func (s *Store) Get(venue, instrument string) (domain.PriceObservation, bool) {
	key := venue + "|" + instrument
	sh := s.shardFor(key)
	sh.mu.RLock()
	obs, ok := sh.entries[key]
	sh.mu.RUnlock()
	return obs, ok
}

// Snapshot returns all current observations for one instrument across
// venues, appended to dst. Passing a reused dst[:0] keeps the detector's
// per-tick work allocation free once the slice has grown to venue count.
func (s *Store) Snapshot(instrument string, dst []domain.PriceObservation) []domain.PriceObservation {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, obs := range sh.entries {
			if obs.Instrument == instrument {
				dst = append(dst, obs)
			}
		}
		sh.mu.RUnlock()
	}
	return dst
}

// LatestByVenue returns venue -> latest observation for one instrument.
func (s *Store) LatestByVenue(instrument string) map[string]domain.PriceObservation {
	out := make(map[string]domain.PriceObservation)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, obs := range sh.entries {
			if obs.Instrument == instrument {
				out[obs.Venue] = obs
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Instruments returns the distinct instruments currently present.
func (s *Store) Instruments() []string {
	seen := make(map[string]struct{})
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, obs := range sh.entries {
			seen[obs.Instrument] = struct{}{}
		}
		sh.mu.RUnlock()
	}
	out := make([]string, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	return out
}

// Len returns the number of (venue, instrument) entries.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
