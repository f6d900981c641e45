package market

import (
	"context"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"folio/internal/domain"
)

// BinanceSource implements Source for Binance. The spot segment reads the
// exchange wallet, the futures segment reads the USD-M derivatives wallet.
// Prices always come from the spot ticker feed in a single fetch.
type BinanceSource struct {
	client        *binance.Client
	futuresClient *futures.Client
}

// NewBinanceSource creates a Binance market data source. futuresClient may
// be nil when the derivatives segment is not collected.
func NewBinanceSource(client *binance.Client, futuresClient *futures.Client) *BinanceSource {
	return &BinanceSource{client: client, futuresClient: futuresClient}
}

// FetchBalances fetches asset holdings for the requested segment.
func (s *BinanceSource) FetchBalances(ctx context.Context, segment domain.Segment) ([]domain.BalancePosition, error) {
	switch segment {
	case domain.SegmentSpot:
		return s.fetchSpotBalances(ctx)
	case domain.SegmentFutures:
		return s.fetchFuturesBalances(ctx)
	default:
		return nil, errors.Wrapf(domain.ErrInvalidInput, "unknown binance segment %q", segment)
	}
}

func (s *BinanceSource) fetchSpotBalances(ctx context.Context) ([]domain.BalancePosition, error) {
	account, err := s.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "binance spot account: %v", err)
	}

	positions := make([]domain.BalancePosition, 0, len(account.Balances))
	for _, balance := range account.Balances {
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse free balance for %s", balance.Asset)
		}
		locked, err := decimal.NewFromString(balance.Locked)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse locked balance for %s", balance.Asset)
		}

		positions = append(positions, domain.BalancePosition{
			Asset:  balance.Asset,
			Amount: free.Add(locked),
		})
	}

	return positions, nil
}

func (s *BinanceSource) fetchFuturesBalances(ctx context.Context) ([]domain.BalancePosition, error) {
	if s.futuresClient == nil {
		return nil, errors.Wrap(domain.ErrInvalidInput, "binance futures client is not configured")
	}

	balances, err := s.futuresClient.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "binance futures account: %v", err)
	}

	positions := make([]domain.BalancePosition, 0, len(balances))
	for _, balance := range balances {
		amount, err := decimal.NewFromString(balance.Balance)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse futures balance for %s", balance.Asset)
		}

		positions = append(positions, domain.BalancePosition{
			Asset:  balance.Asset,
			Amount: amount,
		})
	}

	return positions, nil
}

// FetchPrices fetches last prices for all pairs quoted in quoteCurrency in
// one request, so every conversion of a valuation cycle sees the same book.
func (s *BinanceSource) FetchPrices(ctx context.Context, quoteCurrency string) (domain.PriceBook, error) {
	prices, err := s.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "binance tickers: %v", err)
	}

	book := make(domain.PriceBook, len(prices))
	for _, price := range prices {
		if !strings.HasSuffix(price.Symbol, quoteCurrency) {
			continue
		}
		last, err := decimal.NewFromString(price.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse price for %s", price.Symbol)
		}
		book[price.Symbol] = last
	}

	return book, nil
}

// FetchCandles fetches kline data from Binance.
func (s *BinanceSource) FetchCandles(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.Candle, error) {
	service := s.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit)
	if !since.IsZero() {
		service = service.StartTime(since.UnixMilli())
	}

	klines, err := service.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSourceUnavailable, "binance klines for %s: %v", pair.String(), err)
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		close, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		result[i] = domain.Candle{
			OpenTime:  time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: time.Unix(0, k.CloseTime*int64(time.Millisecond)),
		}
	}

	return result, nil
}
