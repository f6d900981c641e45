package clients

import "github.com/hirokisan/bybit/v2"

// NewBybitClient returns an authenticated V5 API client. One client covers
// every account segment on Bybit.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	return bybit.NewClient().WithAuth(apiKey, apiSecret)
}
