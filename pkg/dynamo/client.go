package dynamo

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the subset of the DynamoDB client used for snapshots
type API interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var (
	client    API
	tableName string
)

// InitializeWithConfig sets up the DynamoDB client from an existing AWS config
func InitializeWithConfig(cfg aws.Config) {
	client = dynamodb.NewFromConfig(cfg)
}

// SetClient replaces the client, used by tests and alternate endpoints
func SetClient(api API) {
	client = api
}

// Initialized reports whether a client is configured
func Initialized() bool {
	return client != nil
}

// GetClient returns the DynamoDB client instance
func GetClient() API {
	if client == nil {
		log.Fatal("DynamoDB client not initialized")
	}
	return client
}

// SetTableName sets the table used for snapshots. An empty name falls back to
// DYNAMODB_TABLE.
func SetTableName(name string) {
	tableName = name
}

// GetTableName returns the DynamoDB table name
func GetTableName() string {
	if tableName != "" {
		return tableName
	}
	name := os.Getenv("DYNAMODB_TABLE")
	if name == "" {
		name = "schwab_positions"
	}
	return name
}
