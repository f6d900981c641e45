// Package market provides venue adapters implementing the data source
// boundary consumed by the valuation and alignment services.
package market

import (
	"context"
	"time"

	"folio/internal/domain"
)

// Source supplies current balances, current prices and historical candles
// for one venue. Implementations wrap domain.ErrSourceUnavailable around
// network or credential failures so callers can match on the taxonomy.
type Source interface {
	// FetchBalances returns all non-synthetic asset holdings for one
	// account segment. Zero balances may be included; the valuation
	// engine filters them.
	FetchBalances(ctx context.Context, segment domain.Segment) ([]domain.BalancePosition, error)

	// FetchPrices returns last prices for every tradable pair quoted in
	// quoteCurrency. Fetched once per valuation cycle and reused for all
	// assets in that cycle.
	FetchPrices(ctx context.Context, quoteCurrency string) (domain.PriceBook, error)

	// FetchCandles returns OHLCV bars for a pair, ascending by open time,
	// unique open times within a fetch. A zero since means no lower bound:
	// the newest limit bars are returned.
	FetchCandles(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.Candle, error)
}
