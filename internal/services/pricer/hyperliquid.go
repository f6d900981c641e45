package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"folio/internal/domain"
)

// HyperliquidPricer resolves quotes from the Hyperliquid public Info API.
// Mids are quoted in USD, which the valuation pipeline treats as equivalent
// to its USD-pegged quote currency.
type HyperliquidPricer struct {
	info *hyperliquid.Info
}

func NewHyperliquidPricer(info *hyperliquid.Info) *HyperliquidPricer {
	return &HyperliquidPricer{info: info}
}

// GetPrice returns the current mid price for the pair's base coin. A missing
// or empty mid means Hyperliquid does not list the coin.
func (p *HyperliquidPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if p.info == nil {
		return decimal.Zero, errors.New("hyperliquid info client is nil")
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "fetch hyperliquid mids: %v", err)
	}

	// mids are keyed by base coin, e.g. "BTC"
	mid, ok := mids[pair.From]
	if !ok || mid == "" {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "hyperliquid lists no mid for %s", pair.From)
	}

	price, err := decimal.NewFromString(mid)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "malformed mid %q for %s", mid, pair.From)
	}
	return price, nil
}
