package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/hermes/pkg/alpaca"
	"github.com/vignesh-goutham/hermes/pkg/app"
	"github.com/vignesh-goutham/hermes/pkg/dynamo"
	"github.com/vignesh-goutham/hermes/pkg/refresher"
	"github.com/vignesh-goutham/hermes/pkg/server"
	"github.com/vignesh-goutham/hermes/pkg/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var snapshotsEnabled bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background worker",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&snapshotsEnabled, "snapshots", false, "write position snapshots to DynamoDB")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.ModeDetect)
	if err != nil {
		return err
	}
	if snapshotsEnabled {
		dynamo.InitializeWithConfig(a.AWS)
		dynamo.SetTableName(cfg.DynamoTable)
		zap.S().Infof("Writing position snapshots to %s", dynamo.GetTableName())
	}
	if err := alpaca.Initialize(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey); err != nil {
		return err
	}

	srv := server.New(cfg.Addr(), a.Schwab, server.Options{
		CredentialsAvailable: cfg.HasCredentials(),
		OnEC2:                a.OnEC2,
		TokensExist:          a.TokensExist,
		PublicIP:             cfg.PublicIP,
		BaseURL:              cfg.BaseURL,
	})
	w := worker.New(refresher.New(a.Schwab), cfg.RefreshInterval, cfg.SnapshotInterval, marketOpen)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return w.Run(ctx) })
	return g.Wait()
}

func marketOpen(context.Context) bool {
	status, err := alpaca.GetMarketStatus()
	if err != nil {
		zap.S().Warnf("Market clock unavailable, assuming open: %v", err)
		return true
	}
	return status.IsOpen
}
