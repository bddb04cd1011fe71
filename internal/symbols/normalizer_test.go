package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(map[string]string{
		"BTCUSDT": "BTC-USD",
		"btcusd":  "BTC-USD",
		"BTC-USD": "BTC-USD",
	})

	assert.Equal(t, "BTC-USD", n.Normalize("BTCUSDT"))
	assert.Equal(t, "BTC-USD", n.Normalize("btcusd"))
	assert.Equal(t, "BTC-USD", n.Normalize("BTC-USD"))

	// Unknown symbols pass through unchanged.
	assert.Equal(t, "DOGEUSDT", n.Normalize("DOGEUSDT"))
	assert.False(t, n.Known("DOGEUSDT"))
	assert.True(t, n.Known("btcusd"))
}

func TestNormalizerCopiesMapping(t *testing.T) {
	src := map[string]string{"ETHUSDT": "ETH-USD"}
	n := NewNormalizer(src)

	src["ETHUSDT"] = "mutated"
	assert.Equal(t, "ETH-USD", n.Normalize("ETHUSDT"))
}
