package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vignesh-goutham/hermes/pkg/types"
)

// GetSnapshots retrieves all position snapshots from DynamoDB
func GetSnapshots(ctx context.Context) ([]types.Snapshot, error) {
	var (
		snapshots []types.Snapshot
		startKey  map[string]dynamotypes.AttributeValue
	)
	for {
		result, err := GetClient().Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(GetTableName()),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		var page []types.Snapshot
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return snapshots, nil
		}
		startKey = result.LastEvaluatedKey
	}
}
