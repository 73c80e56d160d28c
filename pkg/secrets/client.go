package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a secret does not exist
var ErrNotFound = errors.New("secret not found")

// API is the subset of the Secrets Manager client used here
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// Client reads and writes JSON secrets
type Client struct {
	api API
}

// NewFromConfig returns a Client for the given AWS config
func NewFromConfig(cfg aws.Config) *Client {
	return &Client{api: secretsmanager.NewFromConfig(cfg)}
}

// NewWithAPI returns a Client backed by the given API
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// GetJSON fetches a secret and decodes its string value into v
func (c *Client) GetJSON(ctx context.Context, name string, v interface{}) error {
	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("error getting secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", name)
	}
	if err := json.Unmarshal([]byte(*out.SecretString), v); err != nil {
		return fmt.Errorf("error decoding secret %s: %w", name, err)
	}
	return nil
}

// PutJSON updates a secret with the JSON encoding of v, creating the secret
// when it does not exist yet
func (c *Client) PutJSON(ctx context.Context, name string, v interface{}, description string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding secret %s: %w", name, err)
	}

	_, err = c.api.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(body)),
	})
	if err == nil {
		zap.S().Infof("Secret %s updated", name)
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("error updating secret %s: %w", name, err)
	}

	_, err = c.api.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(body)),
		Description:  aws.String(description),
	})
	if err != nil {
		return fmt.Errorf("error creating secret %s: %w", name, err)
	}
	zap.S().Infof("Secret %s created", name)
	return nil
}

func isNotFound(err error) bool {
	var nf *smtypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
