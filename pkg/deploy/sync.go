package deploy

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vignesh-goutham/hermes/pkg/envfile"
	"github.com/vignesh-goutham/hermes/pkg/logger"
	"github.com/vignesh-goutham/hermes/pkg/service"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
)

// CredentialSource loads the Schwab credentials secret
type CredentialSource interface {
	LoadCredentials(ctx context.Context, environment string) (types.Credentials, error)
}

// Instance exposes the EC2 facts the env file depends on
type Instance interface {
	IsRunningOnEC2(ctx context.Context) bool
	PublicIPv4(ctx context.Context) (string, error)
}

// Syncer keeps the env file and the running service in line with Secrets
// Manager and the instance's current public address
type Syncer struct {
	Secrets   CredentialSource
	Instance  Instance
	Restarter service.Restarter

	Environment string
	Region      string
	EnvFile     string
	ServiceName string
	Port        int
	DryRun      bool
}

// Result reports what a sync did
type Result struct {
	Changed   []string `json:"changed"`
	PublicIP  string   `json:"public_ip,omitempty"`
	Written   bool     `json:"written"`
	Restarted bool     `json:"restarted"`
}

// Sync reads the credentials secret, merges it into the env file and
// restarts the service when anything changed. The env file is left untouched
// when the secret cannot be read.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	var res Result

	creds, err := s.Secrets.LoadCredentials(ctx, s.Environment)
	if err != nil {
		return res, fmt.Errorf("error loading credentials: %w", err)
	}
	zap.S().Infof("Loaded credentials for app key %s", logger.Redact(creds.AppKey))

	updates := map[string]string{
		"SCHWAB_APP_KEY":      creds.AppKey,
		"SCHWAB_APP_SECRET":   creds.AppSecret,
		"SCHWAB_REDIRECT_URI": creds.RedirectURI,
		"AWS_REGION":          s.Region,
		"ENVIRONMENT":         s.Environment,
	}

	if s.Instance != nil && s.Instance.IsRunningOnEC2(ctx) {
		ip, err := s.Instance.PublicIPv4(ctx)
		if err != nil {
			zap.S().Warnf("Could not read public IPv4, keeping the current address: %v", err)
		} else {
			res.PublicIP = ip
			updates["PUBLIC_IP"] = ip
			updates["APP_BASE_URL"] = "http://" + ip + ":" + strconv.Itoa(s.Port)
		}
	}

	current, err := envfile.Read(s.EnvFile)
	if err != nil {
		return res, err
	}
	merged, changed := envfile.Merge(current, updates)
	res.Changed = changed
	if len(changed) == 0 {
		zap.S().Infof("%s already in sync", s.EnvFile)
		return res, nil
	}
	zap.S().Infof("Updating %s: %v", s.EnvFile, changed)

	if s.DryRun {
		return res, nil
	}
	if err := envfile.Write(s.EnvFile, merged); err != nil {
		return res, err
	}
	res.Written = true

	if s.Restarter == nil || s.ServiceName == "" {
		return res, nil
	}
	if err := s.Restarter.Restart(ctx, s.ServiceName); err != nil {
		return res, fmt.Errorf("env file updated but restart failed: %w", err)
	}
	res.Restarted = true
	return res, nil
}
