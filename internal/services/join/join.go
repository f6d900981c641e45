// Package join aligns independently-polled series (candles, scores) onto a
// shared minute grid and merges them into one view.
package join

import (
	"github.com/pkg/errors"

	"folio/internal/domain"
)

// Align left-joins scores onto candles by minute key. Candles define the
// canonical row set: one output row per candle, in candle order. A score
// attaches to the candle sharing its minute key; when several scores truncate
// to the same key the later-timestamped one wins. Scores outside the candle
// range are dropped. Both inputs must already be sorted ascending by
// timestamp; they need not share a resolution or range. Pure function:
// identical inputs always produce identical output.
func Align(candles []domain.Candle, scores []domain.ScoreRecord) ([]domain.MergedRow, error) {
	if err := validateSorted(candles, scores); err != nil {
		return nil, err
	}

	// last write per minute wins; ascending input order makes the later
	// timestamp overwrite naturally
	scoreByKey := make(map[domain.AlignmentKey]float64, len(scores))
	for _, score := range scores {
		scoreByKey[domain.AlignToMinute(score.Timestamp)] = score.Score
	}

	rows := make([]domain.MergedRow, 0, len(candles))
	for _, candle := range candles {
		key := domain.AlignTimeToMinute(candle.OpenTime)
		row := domain.MergedRow{Key: key, Candle: candle}
		if score, ok := scoreByKey[key]; ok {
			s := score
			row.Score = &s
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func validateSorted(candles []domain.Candle, scores []domain.ScoreRecord) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime.Before(candles[i-1].OpenTime) {
			return errors.Wrap(domain.ErrInvalidInput, "candles are not sorted ascending by open time")
		}
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Timestamp < scores[i-1].Timestamp {
			return errors.Wrap(domain.ErrInvalidInput, "scores are not sorted ascending by timestamp")
		}
	}
	return nil
}
