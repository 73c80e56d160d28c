package schwab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
	"gopkg.in/matryer/try.v1"
)

const (
	accountNumbersAttempts = 5
	positionsAttempts      = 3
)

// securitiesAccount is the part of the accounts payload used here
type securitiesAccount struct {
	AccountNumber string        `json:"accountNumber"`
	Type          string        `json:"type"`
	Positions     []rawPosition `json:"positions"`
}

type rawPosition struct {
	LongQuantity                   decimal.Decimal `json:"longQuantity"`
	ShortQuantity                  decimal.Decimal `json:"shortQuantity"`
	AveragePrice                   decimal.Decimal `json:"averagePrice"`
	MarketValue                    decimal.Decimal `json:"marketValue"`
	LongOpenProfitLoss             decimal.Decimal `json:"longOpenProfitLoss"`
	ShortOpenProfitLoss            decimal.Decimal `json:"shortOpenProfitLoss"`
	CurrentDayProfitLossPercentage decimal.Decimal `json:"currentDayProfitLossPercentage"`
	Instrument                     struct {
		Symbol    string `json:"symbol"`
		AssetType string `json:"assetType"`
	} `json:"instrument"`
}

// Account is a single account as returned by the trader API
type Account struct {
	SecuritiesAccount securitiesAccount `json:"securitiesAccount"`
}

// backoff is 1s, 2s, 4s ... for attempt 1, 2, 3 ...
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// AccountNumbers lists the linked accounts with their hash values. Failures
// are retried with exponential backoff.
func (c *Client) AccountNumbers(ctx context.Context) ([]types.AccountNumber, error) {
	t, err := c.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	var numbers []types.AccountNumber
	err = try.Do(func(attempt int) (bool, error) {
		err := c.getJSON(ctx, t.AccessToken, "/accounts/accountNumbers", &numbers)
		if err == nil {
			return false, nil
		}
		zap.S().Warnf("Account numbers request failed on attempt %d/%d: %v", attempt, accountNumbersAttempts, err)
		if attempt >= accountNumbersAttempts {
			return false, err
		}
		if serr := c.sleep(ctx, backoff(attempt)); serr != nil {
			return false, serr
		}
		return true, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account numbers after %d attempts: %w", accountNumbersAttempts, err)
	}
	return numbers, nil
}

// AccountDetails fetches one account. A 429 is returned as *RateLimitError.
func (c *Client) AccountDetails(ctx context.Context, accountHash, fields string) (*Account, error) {
	t, err := c.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}
	return c.accountDetails(ctx, t.AccessToken, accountHash, fields)
}

func (c *Client) accountDetails(ctx context.Context, accessToken, accountHash, fields string) (*Account, error) {
	path := "/accounts/" + url.PathEscape(accountHash)
	if fields != "" {
		path += "?fields=" + url.QueryEscape(fields)
	}

	var acct Account
	if err := c.getJSON(ctx, accessToken, path, &acct); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			zap.S().Warnf("Rate limit exceeded. Retry after %s", rl.RetryAfter)
		}
		return nil, err
	}
	return &acct, nil
}

// Positions fetches the positions of one account. A 429 waits for the
// Retry-After period; other failures back off exponentially.
func (c *Client) Positions(ctx context.Context, accountHash string) ([]types.Position, error) {
	t, err := c.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	var acct *Account
	err = try.Do(func(attempt int) (bool, error) {
		var err error
		acct, err = c.accountDetails(ctx, t.AccessToken, accountHash, "positions")
		if err == nil {
			return false, nil
		}
		if attempt >= positionsAttempts {
			return false, err
		}

		wait := backoff(attempt)
		var rl *RateLimitError
		if errors.As(err, &rl) {
			wait = rl.RetryAfter
		}
		zap.S().Warnf("Positions request failed on attempt %d/%d, waiting %s: %v", attempt, positionsAttempts, wait, err)
		if serr := c.sleep(ctx, wait); serr != nil {
			return false, serr
		}
		return true, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return formatPositions(acct.SecuritiesAccount.Positions), nil
}

// AllPositions returns the positions of every linked account keyed by
// account number. Accounts without positions are left out.
func (c *Client) AllPositions(ctx context.Context) (types.AccountPositions, error) {
	t, err := c.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []Account
	if err := c.getJSON(ctx, t.AccessToken, "/accounts?fields=positions", &accounts); err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	all := make(types.AccountPositions)
	for _, a := range accounts {
		number := a.SecuritiesAccount.AccountNumber
		if number == "" || len(a.SecuritiesAccount.Positions) == 0 {
			continue
		}
		all[number] = formatPositions(a.SecuritiesAccount.Positions)
	}
	return all, nil
}

func formatPositions(raw []rawPosition) []types.Position {
	positions := make([]types.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, types.Position{
			Symbol:              p.Instrument.Symbol,
			Quantity:            p.LongQuantity.Sub(p.ShortQuantity),
			CostBasis:           p.AveragePrice.Mul(p.LongQuantity),
			MarketValue:         p.MarketValue,
			UnrealizedPL:        p.LongOpenProfitLoss.Add(p.ShortOpenProfitLoss),
			UnrealizedPLPercent: p.CurrentDayProfitLossPercentage,
		})
	}
	return positions
}
