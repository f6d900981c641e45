package join

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"folio/internal/domain"
	"folio/internal/services/market"
)

// ScoreReader is the slice of the score store the join path reads.
type ScoreReader interface {
	BySymbol(symbol string) ([]domain.ScoreRecord, error)
}

// AlignedSeries fetches candles and scores on demand and merges them.
type AlignedSeries struct {
	source market.Source
	scores ScoreReader
}

// NewAlignedSeries creates the on-demand merged series provider.
func NewAlignedSeries(source market.Source, scores ScoreReader) *AlignedSeries {
	return &AlignedSeries{source: source, scores: scores}
}

// Series returns the merged rows for a pair: candles at the given interval
// starting at since joined with every stored score for the pair's symbol.
// Source failures propagate; an empty score set is a normal outcome.
func (s *AlignedSeries) Series(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.MergedRow, error) {
	candles, err := s.source.FetchCandles(ctx, pair, interval, since, limit)
	if err != nil {
		return nil, err
	}

	scores, err := s.scores.BySymbol(pair.Symbol())
	if err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "load scores for %s: %v", pair.Symbol(), err)
	}

	return Align(candles, scores)
}
