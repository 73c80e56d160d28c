package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/vignesh-goutham/hermes/pkg/alpaca"
	"github.com/vignesh-goutham/hermes/pkg/app"
	"github.com/vignesh-goutham/hermes/pkg/config"
	"github.com/vignesh-goutham/hermes/pkg/dynamo"
	"github.com/vignesh-goutham/hermes/pkg/logger"
	"github.com/vignesh-goutham/hermes/pkg/refresher"
)

var job *refresher.Refresher

func init() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if _, err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	// Lambda has no instance metadata, tokens always live in Secrets Manager
	a, err := app.New(context.Background(), cfg, app.ModeSecrets)
	if err != nil {
		log.Fatal(err)
	}

	dynamo.InitializeWithConfig(a.AWS)
	dynamo.SetTableName(cfg.DynamoTable)

	if err := alpaca.Initialize(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey); err != nil {
		log.Fatal(err)
	}

	job = refresher.New(a.Schwab)
}

func handler(ctx context.Context) (map[string]interface{}, error) {
	return job.Handler(ctx)
}

func main() {
	lambda.Start(handler)
}
