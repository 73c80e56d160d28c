package alpaca

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"go.uber.org/zap"
)

// Clock is the subset of the Alpaca trading client used here
type Clock interface {
	GetClock() (*alpaca.Clock, error)
}

var (
	tradingClient Clock
)

// Initialize sets up the Alpaca trading client. Without keys no client is
// created and the market is treated as always open.
func Initialize(apiKey, apiSecret string) error {
	if apiKey == "" || apiSecret == "" {
		zap.S().Info("Alpaca keys not set, market hours are not enforced")
		tradingClient = nil
		return nil
	}

	tradingClient = alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   "https://paper-api.alpaca.markets",
	})
	return nil
}

// SetClock replaces the clock source
func SetClock(c Clock) {
	tradingClient = c
}
