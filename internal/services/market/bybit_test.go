package market

import (
	"testing"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalDuration(t *testing.T) {
	cases := []struct {
		interval string
		want     time.Duration
	}{
		{"1m", time.Minute},
		{"15m", 15 * time.Minute},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}

	for _, c := range cases {
		t.Run(c.interval, func(t *testing.T) {
			got, err := intervalDuration(c.interval)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	for _, bad := range []string{"", "m", "0m", "1x", "xm"} {
		_, err := intervalDuration(bad)
		assert.Error(t, err, "interval %q", bad)
	}
}

func TestCandleFromKlineCloseTime(t *testing.T) {
	kline := bybit.V5GetKlineItem{
		StartTime: "1700000040000",
		Open:      "100.5",
		High:      "101",
		Low:       "99.9",
		Close:     "100.7",
		Volume:    "12.34",
	}

	candle, err := candleFromKline(kline, time.Minute)
	require.NoError(t, err)

	openTime := time.UnixMilli(1700000040000)
	assert.True(t, candle.OpenTime.Equal(openTime))
	assert.True(t, candle.CloseTime.Equal(openTime.Add(time.Minute)))
	assert.Equal(t, "100.5", candle.Open.String())
	assert.Equal(t, "12.34", candle.Volume.String())
}

func TestCandleFromKlineBadStartTime(t *testing.T) {
	_, err := candleFromKline(bybit.V5GetKlineItem{StartTime: "not-a-time"}, time.Minute)
	assert.Error(t, err)
}

func TestConvertIntervalToBybit(t *testing.T) {
	cases := []struct {
		interval string
		want     string
	}{
		{"1m", "1"},
		{"15m", "15"},
		{"1h", "60"},
		{"4h", "240"},
		{"1d", "D"},
		{"1w", "W"},
	}

	for _, c := range cases {
		got, err := convertIntervalToBybit(c.interval)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := convertIntervalToBybit("1x")
	assert.Error(t, err)
}
