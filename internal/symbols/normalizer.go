// Package symbols maps venue-local instrument identifiers to canonical
// instrument keys shared across all venues.
package symbols

// Normalizer is a static, read-only lookup table built once at startup and
// shared by every venue adapter. It is safe for concurrent use because it is
// never mutated after construction.
type Normalizer struct {
	mapping map[string]string
}

// NewNormalizer builds a Normalizer from a venue-local -> canonical table.
// The table is copied, so later mutation of the argument has no effect.
func NewNormalizer(mapping map[string]string) *Normalizer {
	m := make(map[string]string, len(mapping))
	for local, canonical := range mapping {
		m[local] = canonical
	}
	return &Normalizer{mapping: m}
}

// Normalize returns the canonical instrument key for a venue-local symbol.
// Unknown symbols pass through unchanged: venues introduce instruments
// faster than the mapping table is updated, and an unmapped symbol simply
// never produces cross-venue matches downstream.
func (n *Normalizer) Normalize(symbol string) string {
	if canonical, ok := n.mapping[symbol]; ok {
		return canonical
	}
	return symbol
}

// Known reports whether the symbol has an explicit mapping entry.
func (n *Normalizer) Known(symbol string) bool {
	_, ok := n.mapping[symbol]
	return ok
}
