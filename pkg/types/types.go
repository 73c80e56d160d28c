package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Tokens represents a persisted Schwab OAuth token set
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`

	// ExpiresAt is an ISO-8601 timestamp, validated on read
	ExpiresAt       string    `json:"expires_at,omitempty"`
	RefreshIssuedAt time.Time `json:"refresh_issued_at"`
}

// Credentials holds the Schwab application key pair
type Credentials struct {
	AppKey      string
	AppSecret   string
	RedirectURI string
}

type credentialsJSON struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`

	AppKey         string `json:"SCHWAB_APP_KEY"`
	AppSecret      string `json:"SCHWAB_APP_SECRET"`
	AppRedirectURI string `json:"SCHWAB_REDIRECT_URI"`
}

// UnmarshalJSON accepts both the client_id and SCHWAB_APP_KEY secret layouts
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var raw credentialsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.AppKey = firstNonEmpty(raw.ClientID, raw.AppKey)
	c.AppSecret = firstNonEmpty(raw.ClientSecret, raw.AppSecret)
	c.RedirectURI = firstNonEmpty(raw.RedirectURI, raw.AppRedirectURI)
	return nil
}

// MarshalJSON writes the client_id layout
func (c Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(credentialsJSON{
		ClientID:     c.AppKey,
		ClientSecret: c.AppSecret,
		RedirectURI:  c.RedirectURI,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AccountNumber maps a plain account number to the hash used in API paths
type AccountNumber struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// Position is a flattened account position
type Position struct {
	Symbol              string          `json:"symbol"`
	Quantity            decimal.Decimal `json:"quantity"`
	CostBasis           decimal.Decimal `json:"cost_basis"`
	MarketValue         decimal.Decimal `json:"market_value"`
	UnrealizedPL        decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPercent decimal.Decimal `json:"unrealized_pl_percent"`
}

// AccountPositions maps account numbers to their positions
type AccountPositions map[string][]Position

// Snapshot is a point-in-time position stored in DynamoDB. Amounts are kept
// as decimal strings so no precision is lost in the attribute encoding.
type Snapshot struct {
	AccountNumber       string    `dynamodbav:"account_number"`
	Symbol              string    `dynamodbav:"symbol"`
	Quantity            string    `dynamodbav:"quantity"`
	CostBasis           string    `dynamodbav:"cost_basis,omitempty"`
	MarketValue         string    `dynamodbav:"market_value,omitempty"`
	UnrealizedPL        string    `dynamodbav:"unrealized_pl,omitempty"`
	UnrealizedPLPercent string    `dynamodbav:"unrealized_pl_percent,omitempty"`
	CapturedAt          time.Time `dynamodbav:"captured_at"`
}

// SnapshotKey is the primary key of a snapshot item
type SnapshotKey struct {
	AccountNumber string `dynamodbav:"account_number"`
	Symbol        string `dynamodbav:"symbol"`
}

// Key returns the snapshot's primary key
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{AccountNumber: s.AccountNumber, Symbol: s.Symbol}
}

// NewSnapshot builds a snapshot item for a position
func NewSnapshot(accountNumber string, p Position, capturedAt time.Time) Snapshot {
	return Snapshot{
		AccountNumber:       accountNumber,
		Symbol:              p.Symbol,
		Quantity:            p.Quantity.String(),
		CostBasis:           p.CostBasis.String(),
		MarketValue:         p.MarketValue.String(),
		UnrealizedPL:        p.UnrealizedPL.String(),
		UnrealizedPLPercent: p.UnrealizedPLPercent.String(),
		CapturedAt:          capturedAt.UTC(),
	}
}

// Position converts the snapshot back into a position
func (s Snapshot) Position() (Position, error) {
	var (
		p   = Position{Symbol: s.Symbol}
		err error
	)
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{s.Quantity, &p.Quantity},
		{s.CostBasis, &p.CostBasis},
		{s.MarketValue, &p.MarketValue},
		{s.UnrealizedPL, &p.UnrealizedPL},
		{s.UnrealizedPLPercent, &p.UnrealizedPLPercent},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return Position{}, err
		}
	}
	return p, nil
}
