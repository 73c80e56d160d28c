package tokens

import (
	"context"
	"errors"

	"github.com/vignesh-goutham/hermes/pkg/secrets"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// SecretStore keeps tokens in AWS Secrets Manager
type SecretStore struct {
	client *secrets.Client
	name   string
}

// NewSecretStore returns a SecretStore for an environment
func NewSecretStore(client *secrets.Client, environment string) *SecretStore {
	return &SecretStore{client: client, name: secrets.TokensName(environment)}
}

// Load reads the tokens secret
func (s *SecretStore) Load(ctx context.Context) (*types.Tokens, error) {
	var t types.Tokens
	if err := s.client.GetJSON(ctx, s.name, &t); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	zap.S().Debugf("Tokens loaded from %s", s.name)
	return &t, nil
}

// Save writes the tokens secret, creating it on first use
func (s *SecretStore) Save(ctx context.Context, t *types.Tokens) error {
	return s.client.PutJSON(ctx, s.name, t, "Charles Schwab API tokens")
}
