package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	client := binance.NewClient(apiKey, apiSecret)
	return client
}

// NewBinanceFuturesClient returns a client for the USD-M futures account.
// The derivatives wallet lives behind a separate API surface, so it is a
// distinct client even with the same credentials.
func NewBinanceFuturesClient(apiKey, apiSecret string) *futures.Client {
	return binance.NewFuturesClient(apiKey, apiSecret)
}
