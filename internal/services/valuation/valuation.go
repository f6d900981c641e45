// Package valuation converts a heterogeneous multi-asset balance into a
// single value quoted in one currency using a price book fetched once per
// cycle.
package valuation

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"folio/internal/domain"
	"folio/internal/services/market"
)

// Value converts positions into quoteCurrency using the given price book.
// Positions with amount <= 0 contribute nothing. A position in the quote
// currency itself contributes its amount 1:1 without a lookup. Assets with
// no usable (present, positive) price end up in Unresolved and contribute
// nothing; each contribution is independent of the others.
func Value(positions []domain.BalancePosition, quotes domain.PriceBook, quoteCurrency string) domain.ValuationResult {
	total := decimal.Zero
	var unresolved []string

	for _, position := range positions {
		if !position.Amount.IsPositive() {
			continue
		}

		if position.Asset == quoteCurrency {
			total = total.Add(position.Amount)
			continue
		}

		pair := domain.Pair{From: position.Asset, To: quoteCurrency}
		price, ok := quotes.Price(pair)
		if !ok || !price.IsPositive() {
			unresolved = append(unresolved, position.Asset)
			continue
		}

		total = total.Add(position.Amount.Mul(price))
	}

	sort.Strings(unresolved)

	return domain.ValuationResult{Total: total, Unresolved: unresolved}
}

// Engine values one account segment against a market data source.
type Engine struct {
	source        market.Source
	quoteCurrency string
}

// NewEngine creates a valuation engine bound to one source and quote currency.
func NewEngine(source market.Source, quoteCurrency string) *Engine {
	return &Engine{source: source, quoteCurrency: quoteCurrency}
}

// QuoteCurrency returns the currency all values are quoted in.
func (e *Engine) QuoteCurrency() string {
	return e.quoteCurrency
}

// ValueSegment fetches balances and prices for a segment and values them.
// The fetch either fully succeeds or fails for the whole cycle: a source
// failure propagates and no partial result is produced. Missing prices for
// individual assets are the only source of partial results.
func (e *Engine) ValueSegment(ctx context.Context, segment domain.Segment) (domain.ValuationResult, error) {
	positions, err := e.source.FetchBalances(ctx, segment)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	quotes, err := e.source.FetchPrices(ctx, e.quoteCurrency)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	return Value(positions, quotes, e.quoteCurrency), nil
}

// ValueSegmentWith behaves like ValueSegment but uses a caller-supplied
// price book extension hook: extend may add quotes for assets missing from
// the fetched book before valuation runs. It must not mutate prices already
// present, keeping all in-cycle conversions on one consistent book.
func (e *Engine) ValueSegmentWith(ctx context.Context, segment domain.Segment, extend func(ctx context.Context, positions []domain.BalancePosition, quotes domain.PriceBook)) (domain.ValuationResult, error) {
	positions, err := e.source.FetchBalances(ctx, segment)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	quotes, err := e.source.FetchPrices(ctx, e.quoteCurrency)
	if err != nil {
		return domain.ValuationResult{}, err
	}

	if extend != nil {
		extend(ctx, positions, quotes)
	}

	return Value(positions, quotes, e.quoteCurrency), nil
}
