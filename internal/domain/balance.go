package domain

import "github.com/shopspring/decimal"

// Segment is one logical account view (spot wallet, derivatives wallet, ...)
// valued independently and summed into one snapshot.
type Segment string

const (
	SegmentSpot    Segment = "spot"
	SegmentFutures Segment = "futures"
	SegmentUnified Segment = "unified"
)

// BalancePosition is a single asset holding inside one account segment.
type BalancePosition struct {
	Asset  string
	Amount decimal.Decimal
}

// PriceBook holds last prices for all pairs fetched in one valuation cycle,
// keyed by concatenated symbol (e.g. "BTCUSDT"). All conversions within a
// cycle must use the same book so in-cycle pricing stays consistent.
type PriceBook map[string]decimal.Decimal

// Price looks up the last price for a pair.
func (b PriceBook) Price(pair Pair) (decimal.Decimal, bool) {
	price, ok := b[pair.Symbol()]
	return price, ok
}

// Set records the last price for a pair.
func (b PriceBook) Set(pair Pair, price decimal.Decimal) {
	b[pair.Symbol()] = price
}

// ValuationResult is the outcome of valuing one balance against a price book.
// Unresolved lists assets for which no usable price was found; they are
// excluded from Total, never silently treated as zero.
type ValuationResult struct {
	Total      decimal.Decimal
	Unresolved []string
}

// BalanceSnapshot is the persisted aggregate account value at one collection
// tick. Timestamp is milliseconds since epoch (UTC), captured at tick start.
// Immutable once persisted.
type BalanceSnapshot struct {
	Timestamp  int64           `json:"timestamp"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// BalanceSnapshotRecord bundles a snapshot with the log index it came from.
type BalanceSnapshotRecord struct {
	Index    uint64
	Snapshot BalanceSnapshot
}
