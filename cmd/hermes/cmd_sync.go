package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/hermes/pkg/app"
	"github.com/vignesh-goutham/hermes/pkg/deploy"
	"github.com/vignesh-goutham/hermes/pkg/secrets"
	"github.com/vignesh-goutham/hermes/pkg/service"
	"github.com/vignesh-goutham/hermes/pkg/tokens"
)

var (
	syncDryRun     bool
	syncNoRestart  bool
	syncPushTokens bool
)

// syncCmd is run after every redeployment, including ones that move the
// service to a new public IP
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the env file with Secrets Manager and restart the service",
	Long: `Sync the deployment with AWS Secrets Manager.

This command:
1. Reads <ENVIRONMENT>/schwab-api/credentials
2. Reads the instance's public IPv4 when running on EC2
3. Merges both into the env file, keeping unrelated keys
4. Restarts the service when anything changed`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report changes without writing")
	syncCmd.Flags().BoolVar(&syncNoRestart, "no-restart", false, "write the env file but do not restart the service")
	syncCmd.Flags().BoolVar(&syncPushTokens, "push-tokens", false, "copy the local token file into Secrets Manager first")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.NewAWS(ctx, cfg, app.ModeDetect)
	if err != nil {
		return err
	}

	if syncPushTokens {
		from := tokens.NewFileStore(cfg.TokenFile)
		to := tokens.NewSecretStore(a.Secrets, cfg.Environment)
		if err := deploy.PushTokens(ctx, from, to); err != nil {
			return err
		}
		fmt.Printf("Tokens pushed to %s\n", secrets.TokensName(cfg.Environment))
	}

	s := &deploy.Syncer{
		Secrets:     a.Secrets,
		Instance:    a.Metadata,
		Environment: cfg.Environment,
		Region:      cfg.AWSRegion,
		EnvFile:     cfg.EnvFile,
		ServiceName: cfg.ServiceName,
		Port:        cfg.Port,
		DryRun:      syncDryRun,
	}
	if !syncNoRestart {
		s.Restarter = service.NewSystemdRestarter()
	}

	res, err := s.Sync(ctx)
	if perr := printJSON(os.Stdout, res); perr != nil && err == nil {
		return perr
	}
	return err
}
