package alpaca

import (
	"fmt"
	"time"
)

// MarketStatus is the exchange session state
type MarketStatus struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
	Enforced  bool
}

// GetMarketStatus reports whether US equity markets are open
func GetMarketStatus() (MarketStatus, error) {
	if tradingClient == nil {
		return MarketStatus{IsOpen: true}, nil
	}

	clock, err := tradingClient.GetClock()
	if err != nil {
		return MarketStatus{}, fmt.Errorf("error getting market clock: %w", err)
	}
	return MarketStatus{
		IsOpen:    clock.IsOpen,
		NextOpen:  clock.NextOpen,
		NextClose: clock.NextClose,
		Enforced:  true,
	}, nil
}
