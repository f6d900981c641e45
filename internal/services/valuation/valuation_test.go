package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

func position(asset string, amount string) domain.BalancePosition {
	return domain.BalancePosition{Asset: asset, Amount: decimal.RequireFromString(amount)}
}

func TestValue(t *testing.T) {
	tests := []struct {
		name           string
		positions      []domain.BalancePosition
		quotes         domain.PriceBook
		quote          string
		wantTotal      string
		wantUnresolved []string
	}{
		{
			name: "all assets priced",
			positions: []domain.BalancePosition{
				position("BTC", "2"),
				position("USDT", "500"),
			},
			quotes:    domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
			quote:     "USDT",
			wantTotal: "100500",
		},
		{
			name: "unpriced asset excluded and recorded",
			positions: []domain.BalancePosition{
				position("BTC", "1"),
				position("XYZ", "10"),
			},
			quotes:         domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
			quote:          "USDT",
			wantTotal:      "50000",
			wantUnresolved: []string{"XYZ"},
		},
		{
			name: "zero and negative amounts contribute nothing",
			positions: []domain.BalancePosition{
				position("BTC", "0"),
				position("ETH", "-3"),
				position("USDT", "42"),
			},
			quotes:    domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
			quote:     "USDT",
			wantTotal: "42",
		},
		{
			name: "quote currency needs no lookup",
			positions: []domain.BalancePosition{
				position("USDT", "123.45"),
			},
			quotes:    domain.PriceBook{},
			quote:     "USDT",
			wantTotal: "123.45",
		},
		{
			name: "non-positive price treated as unresolved",
			positions: []domain.BalancePosition{
				position("DUST", "100"),
			},
			quotes:         domain.PriceBook{"DUSTUSDT": decimal.Zero},
			quote:          "USDT",
			wantTotal:      "0",
			wantUnresolved: []string{"DUST"},
		},
		{
			name:      "empty positions",
			positions: nil,
			quotes:    domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
			quote:     "USDT",
			wantTotal: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Value(tt.positions, tt.quotes, tt.quote)
			assert.True(t, result.Total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total = %s, want %s", result.Total, tt.wantTotal)
			assert.Equal(t, tt.wantUnresolved, result.Unresolved)
		})
	}
}

func TestValueTotalIsSumOfIndependentContributions(t *testing.T) {
	quotes := domain.PriceBook{
		"BTCUSDT": decimal.RequireFromString("50000"),
		"ETHUSDT": decimal.RequireFromString("3000"),
	}
	positions := []domain.BalancePosition{
		position("BTC", "0.5"),
		position("ETH", "4"),
		position("USDT", "100"),
	}

	combined := Value(positions, quotes, "USDT")

	sum := decimal.Zero
	for _, p := range positions {
		single := Value([]domain.BalancePosition{p}, quotes, "USDT")
		sum = sum.Add(single.Total)
	}

	assert.True(t, combined.Total.Equal(sum), "combined %s != per-asset sum %s", combined.Total, sum)
}

type fakeSource struct {
	positions   []domain.BalancePosition
	book        domain.PriceBook
	balancesErr error
	pricesErr   error
}

func (f *fakeSource) FetchBalances(ctx context.Context, segment domain.Segment) ([]domain.BalancePosition, error) {
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return f.positions, nil
}

func (f *fakeSource) FetchPrices(ctx context.Context, quoteCurrency string) (domain.PriceBook, error) {
	if f.pricesErr != nil {
		return nil, f.pricesErr
	}
	return f.book, nil
}

func (f *fakeSource) FetchCandles(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.Candle, error) {
	return nil, nil
}

func TestValueSegment(t *testing.T) {
	source := &fakeSource{
		positions: []domain.BalancePosition{position("BTC", "2"), position("USDT", "500")},
		book:      domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
	}
	engine := NewEngine(source, "USDT")

	result, err := engine.ValueSegment(context.Background(), domain.SegmentSpot)
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("100500")))
	assert.Empty(t, result.Unresolved)
}

func TestValueSegmentPropagatesSourceFailure(t *testing.T) {
	sourceErr := errors.Wrap(domain.ErrSourceUnavailable, "connection refused")

	for _, source := range []*fakeSource{
		{balancesErr: sourceErr},
		{positions: []domain.BalancePosition{position("BTC", "1")}, pricesErr: sourceErr},
	} {
		engine := NewEngine(source, "USDT")
		_, err := engine.ValueSegment(context.Background(), domain.SegmentSpot)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
	}
}

func TestValueSegmentWithExtendsBookForMissingAssets(t *testing.T) {
	source := &fakeSource{
		positions: []domain.BalancePosition{position("BTC", "1"), position("HYPE", "10")},
		book:      domain.PriceBook{"BTCUSDT": decimal.RequireFromString("50000")},
	}
	engine := NewEngine(source, "USDT")

	result, err := engine.ValueSegmentWith(context.Background(), domain.SegmentSpot,
		func(ctx context.Context, positions []domain.BalancePosition, quotes domain.PriceBook) {
			quotes.Set(domain.Pair{From: "HYPE", To: "USDT"}, decimal.RequireFromString("25"))
		})
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(decimal.RequireFromString("50250")), "total = %s", result.Total)
	assert.Empty(t, result.Unresolved)
}
