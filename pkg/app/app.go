package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/vignesh-goutham/hermes/pkg/config"
	"github.com/vignesh-goutham/hermes/pkg/ec2"
	"github.com/vignesh-goutham/hermes/pkg/logger"
	"github.com/vignesh-goutham/hermes/pkg/schwab"
	"github.com/vignesh-goutham/hermes/pkg/secrets"
	"github.com/vignesh-goutham/hermes/pkg/tokens"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// ErrMissingCredentials means no Schwab app key pair could be found
var ErrMissingCredentials = errors.New("SCHWAB_APP_KEY and SCHWAB_APP_SECRET must be set in environment variables")

// Mode selects where tokens live
type Mode int

const (
	// ModeDetect uses Secrets Manager on EC2 and the local file elsewhere
	ModeDetect Mode = iota
	// ModeSecrets always uses Secrets Manager, as in Lambda
	ModeSecrets
)

// App holds the wired components shared by the CLI and the Lambda
type App struct {
	Config   *config.Config
	AWS      aws.Config
	Metadata *ec2.Metadata
	Secrets  *secrets.Client
	OnEC2    bool
	Store    tokens.Store
	Schwab   *schwab.Client
}

// NewAWS loads AWS config and the clients that need no Schwab credentials
func NewAWS(ctx context.Context, cfg *config.Config, mode Mode) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	a := &App{
		Config:   cfg,
		AWS:      awsCfg,
		Metadata: ec2.New(),
		Secrets:  secrets.NewFromConfig(awsCfg),
	}
	if mode == ModeDetect {
		a.OnEC2 = a.Metadata.IsRunningOnEC2(ctx)
	}
	if a.OnEC2 {
		if id, err := a.Metadata.InstanceID(ctx); err == nil {
			zap.S().Infof("Running on EC2 instance %s", id)
		}
	}
	return a, nil
}

// New resolves credentials and builds the Schwab client. On EC2 (or in
// ModeSecrets) missing credentials are read from Secrets Manager.
func New(ctx context.Context, cfg *config.Config, mode Mode) (*App, error) {
	a, err := NewAWS(ctx, cfg, mode)
	if err != nil {
		return nil, err
	}
	useSecrets := a.OnEC2 || mode == ModeSecrets

	if !cfg.HasCredentials() && useSecrets {
		creds, err := a.Secrets.LoadCredentials(ctx, cfg.Environment)
		if err != nil {
			zap.S().Errorf("Error loading secrets from AWS: %v", err)
		} else {
			cfg.AppKey, cfg.AppSecret, cfg.RedirectURI = creds.AppKey, creds.AppSecret, creds.RedirectURI
			zap.S().Info("Successfully loaded secrets from AWS Secrets Manager")
		}
	}
	if !cfg.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	zap.S().Infof("Using Schwab app key %s", logger.Redact(cfg.AppKey))

	a.Store = tokens.NewStore(useSecrets, a.Secrets, cfg.Environment, cfg.TokenFile)
	a.Schwab = schwab.NewClient(types.Credentials{
		AppKey:      cfg.AppKey,
		AppSecret:   cfg.AppSecret,
		RedirectURI: cfg.RedirectURI,
	}, a.Store)
	return a, nil
}

// TokensExist reports whether any tokens are stored
func (a *App) TokensExist(ctx context.Context) bool {
	_, err := a.Store.Load(ctx)
	return err == nil
}
