package market

import (
	"context"
	"fmt"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"folio/internal/domain"
)

// BybitSource implements Source for Bybit using the V5 API. Segments map to
// Bybit account types: "spot" -> SPOT, "futures" -> CONTRACT, "unified" ->
// UNIFIED.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource creates a Bybit market data source.
func NewBybitSource(client *bybit.Client) *BybitSource {
	return &BybitSource{client: client}
}

func accountTypeForSegment(segment domain.Segment) (bybit.AccountTypeV5, error) {
	switch segment {
	case domain.SegmentSpot:
		return bybit.AccountTypeV5("SPOT"), nil
	case domain.SegmentFutures:
		return bybit.AccountTypeV5("CONTRACT"), nil
	case domain.SegmentUnified:
		return bybit.AccountTypeV5("UNIFIED"), nil
	default:
		return "", errors.Wrapf(domain.ErrInvalidInput, "unknown bybit segment %q", segment)
	}
}

// FetchBalances fetches wallet coin balances for the requested segment.
func (s *BybitSource) FetchBalances(ctx context.Context, segment domain.Segment) ([]domain.BalancePosition, error) {
	accountType, err := accountTypeForSegment(segment)
	if err != nil {
		return nil, err
	}

	res, err := s.client.V5().Account().GetWalletBalance(accountType, nil)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "bybit wallet balance: %v", err)
	}

	var positions []domain.BalancePosition
	for _, account := range res.Result.List {
		for _, coin := range account.Coin {
			amount, err := decimal.NewFromString(coin.WalletBalance)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse wallet balance for %s", coin.Coin)
			}
			positions = append(positions, domain.BalancePosition{
				Asset:  string(coin.Coin),
				Amount: amount,
			})
		}
	}

	return positions, nil
}

// FetchPrices fetches last prices for all spot pairs in one tickers call and
// keeps those quoted in quoteCurrency.
func (s *BybitSource) FetchPrices(ctx context.Context, quoteCurrency string) (domain.PriceBook, error) {
	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
	})
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "bybit tickers: %v", err)
	}

	book := make(domain.PriceBook, len(result.Result.Spot.List))
	for _, ticker := range result.Result.Spot.List {
		symbol := string(ticker.Symbol)
		if len(symbol) <= len(quoteCurrency) || symbol[len(symbol)-len(quoteCurrency):] != quoteCurrency {
			continue
		}
		last, err := decimal.NewFromString(ticker.LastPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse last price for %s", symbol)
		}
		book[symbol] = last
	}

	return book, nil
}

// FetchCandles fetches kline data from Bybit, batching around the per-request
// limit and returning bars ascending by open time.
func (s *BybitSource) FetchCandles(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "invalid interval %s: %v", interval, err)
	}

	barDuration, err := intervalDuration(interval)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "invalid interval %s: %v", interval, err)
	}

	symbol := bybit.SymbolV5(pair.Symbol())

	const maxPerRequest = 200

	var start *int64
	if !since.IsZero() {
		sinceMillis := since.UnixMilli()
		start = &sinceMillis
	}

	// Bybit pages newest first; end walks backwards past each fetched batch
	var allKlines []bybit.V5GetKlineItem
	var end *int64
	remaining := limit

	for remaining > 0 {
		batchSize := remaining
		if batchSize > maxPerRequest {
			batchSize = maxPerRequest
		}

		result, err := s.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   symbol,
			Interval: bybit.Interval(bybitInterval),
			Start:    start,
			End:      end,
			Limit:    &batchSize,
		})
		if err != nil {
			return nil, errors.Wrapf(domain.ErrSourceUnavailable, "bybit klines for %s: %v", pair.String(), err)
		}
		if result == nil {
			return nil, errors.Wrapf(domain.ErrSourceUnavailable, "empty kline result for %s", pair.String())
		}

		klines := result.Result.List
		if len(klines) == 0 {
			break
		}

		allKlines = append(allKlines, klines...)
		if len(klines) < batchSize {
			break
		}
		remaining -= len(klines)

		oldest, err := parseMillisTimestamp(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse batch cursor")
		}
		cursor := oldest.UnixMilli() - 1
		end = &cursor

		// avoid rate limiting between batches
		if remaining > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}

	candles := make([]domain.Candle, len(allKlines))
	for i, k := range allKlines {
		// Bybit returns newest first
		candle, err := candleFromKline(k, barDuration)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
		}
		candles[len(allKlines)-1-i] = candle
	}

	return candles, nil
}

// candleFromKline converts a single Bybit kline row into a candle. The close
// time is derived from the open time and the bar duration because Bybit does
// not return it.
func candleFromKline(k bybit.V5GetKlineItem, barDuration time.Duration) (domain.Candle, error) {
	openTime, err := parseMillisTimestamp(k.StartTime)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse start time")
	}
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse open price")
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse high price")
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse low price")
	}
	close, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse close price")
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse volume")
	}

	return domain.Candle{
		OpenTime:  openTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		CloseTime: openTime.Add(barDuration),
	}, nil
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	switch unit {
	case 'm':
		return numberPart, nil
	case 'h':
		var n int64
		for _, r := range numberPart {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid interval number: %s", interval)
			}
			n = n*10 + int64(r-'0')
		}
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// intervalDuration returns the bar duration for a standard interval string
// such as "1m", "4h", "1d" or "1w".
func intervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	var n int64
	for _, r := range numberPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid interval number: %s", interval)
		}
		n = n*10 + int64(r-'0')
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseMillisTimestamp converts a Bybit timestamp string (milliseconds) to time.Time.
func parseMillisTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	if _, err := fmt.Sscanf(ts, "%d", &msec); err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}
