package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/hermes/pkg/config"
	"github.com/vignesh-goutham/hermes/pkg/logger"
	"go.uber.org/zap"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "Charles Schwab API token lifecycle and credential sync",
	Long: `hermes keeps a Charles Schwab OAuth session alive and the deployment in
sync with AWS Secrets Manager.

Available subcommands:
  serve     - Run the HTTP API and the background worker
  login     - Authenticate interactively and store tokens
  refresh   - Refresh the access token if it is about to expire
  status    - Show the stored token state
  sync      - Sync the env file with Secrets Manager and restart the service
  snapshots - List position snapshots stored in DynamoDB`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		_, err = logger.Initialize(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default $ENV_FILE or .env)")
	rootCmd.AddCommand(serveCmd, loginCmd, refreshCmd, statusCmd, syncCmd, snapshotsCmd)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error printing result: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
