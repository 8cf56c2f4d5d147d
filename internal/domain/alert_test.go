package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertKeyString(t *testing.T) {
	key := AlertKey{
		UserID:      "42",
		PairAddress: "0xabc",
		Metric:      MetricMarketCap,
		Direction:   DirectionAbove,
		Threshold:   decimal.NewFromInt(1000000),
	}
	assert.Equal(t, "42:0xabc:market_cap:above:1000000.0", key.String())

	key.Threshold = decimal.RequireFromString("1234.56")
	assert.Equal(t, "42:0xabc:market_cap:above:1234.56", key.String())
}

func TestParseAlertKey(t *testing.T) {
	key, err := ParseAlertKey("42:0xabc:market_cap:below:2500.0")
	require.NoError(t, err)
	assert.Equal(t, "42", key.UserID)
	assert.Equal(t, "0xabc", key.PairAddress)
	assert.Equal(t, MetricMarketCap, key.Metric)
	assert.Equal(t, DirectionBelow, key.Direction)
	assert.True(t, key.Threshold.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "42:0xabc:market_cap:below:2500.0", key.String())

	bad := []string{
		"",
		"42:0xabc:market_cap:below",
		"42:0xabc:volume:below:10",
		"42:0xabc:market_cap:sideways:10",
		"42:0xabc:market_cap:above:-1",
		"42:0xabc:market_cap:above:abc",
		":0xabc:market_cap:above:10",
	}
	for _, raw := range bad {
		_, err := ParseAlertKey(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseMetric(t *testing.T) {
	metric, err := ParseMetric("market_cap")
	require.NoError(t, err)
	assert.Equal(t, MetricMarketCap, metric)

	_, err = ParseMetric("volume")
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestParseThreshold(t *testing.T) {
	value, err := ParseThreshold(" 1.5 ")
	require.NoError(t, err)
	assert.Equal(t, "1.5", value.String())

	for _, raw := range []string{"0", "-3", "ten", "", "1e10000000", "1e309", "1e-10000000", "2e308", "1.23456789012345678901234567890123456789"} {
		_, err := ParseThreshold(raw)
		assert.ErrorIs(t, err, ErrInvalidThreshold, raw)
	}

	for _, raw := range []string{"1e16", "1.5e308", "1e-300", "0.00001"} {
		_, err := ParseThreshold(raw)
		assert.NoError(t, err, raw)
	}
}

func TestFormatThresholdStaysShortForLargeValues(t *testing.T) {
	value, err := ParseThreshold("1.5e308")
	require.NoError(t, err)
	assert.Less(t, len(FormatThreshold(value)), 320)
}

func TestValidateTimeout(t *testing.T) {
	assert.NoError(t, ValidateTimeout(1))
	assert.NoError(t, ValidateTimeout(60))
	assert.ErrorIs(t, ValidateTimeout(0), ErrInvalidTimeout)
	assert.ErrorIs(t, ValidateTimeout(61), ErrInvalidTimeout)
}

func TestCrossed(t *testing.T) {
	above := AlertKey{Direction: DirectionAbove, Threshold: decimal.NewFromInt(100)}
	assert.True(t, above.Crossed(150))
	assert.False(t, above.Crossed(100))
	assert.False(t, above.Crossed(50))

	below := AlertKey{Direction: DirectionBelow, Threshold: decimal.NewFromInt(100)}
	assert.True(t, below.Crossed(99.5))
	assert.False(t, below.Crossed(100))
	assert.False(t, below.Crossed(150))
}
