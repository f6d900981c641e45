// Package pricer provides single-pair quote resolvers used to price assets
// the primary venue's ticker feed could not cover.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"folio/internal/domain"
)

type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}
