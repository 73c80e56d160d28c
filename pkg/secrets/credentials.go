package secrets

import (
	"context"
	"fmt"

	"github.com/vignesh-goutham/hermes/pkg/types"
)

// CredentialsName is the secret holding the Schwab app key pair
func CredentialsName(environment string) string {
	return fmt.Sprintf("%s/schwab-api/credentials", environment)
}

// TokensName is the secret holding the Schwab OAuth tokens
func TokensName(environment string) string {
	return fmt.Sprintf("%s/schwab-api/tokens", environment)
}

// LoadCredentials reads the Schwab credentials secret for an environment
func (c *Client) LoadCredentials(ctx context.Context, environment string) (types.Credentials, error) {
	var creds types.Credentials
	if err := c.GetJSON(ctx, CredentialsName(environment), &creds); err != nil {
		return types.Credentials{}, err
	}
	if creds.AppKey == "" || creds.AppSecret == "" {
		return types.Credentials{}, fmt.Errorf("secret %s is missing the app key or secret", CredentialsName(environment))
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = "https://127.0.0.1"
	}
	return creds, nil
}
