package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/vignesh-goutham/hermes/pkg/types"
	"go.uber.org/zap"
	"gopkg.in/matryer/try.v1"
)

const (
	// batchSize is the DynamoDB BatchWriteItem limit
	batchSize = 25
	// maxBatchAttempts bounds resubmission of unprocessed items
	maxBatchAttempts = 3
)

// BatchWriteSnapshots puts snapshots and deletes the rows of closed positions
// in chunks of 25
func BatchWriteSnapshots(ctx context.Context, snapshots []types.Snapshot, deletes []types.SnapshotKey) error {
	if len(snapshots) == 0 && len(deletes) == 0 {
		return nil
	}

	var writeRequests []dynamotypes.WriteRequest
	tableName := GetTableName()

	for _, snap := range snapshots {
		item, err := attributevalue.MarshalMap(snap)
		if err != nil {
			return fmt.Errorf("error marshaling snapshot: %w", err)
		}

		writeRequests = append(writeRequests, dynamotypes.WriteRequest{
			PutRequest: &dynamotypes.PutRequest{
				Item: item,
			},
		})
	}

	for _, key := range deletes {
		av, err := attributevalue.MarshalMap(key)
		if err != nil {
			return fmt.Errorf("error marshaling snapshot key: %w", err)
		}

		writeRequests = append(writeRequests, dynamotypes.WriteRequest{
			DeleteRequest: &dynamotypes.DeleteRequest{
				Key: av,
			},
		})
	}

	for i := 0; i < len(writeRequests); i += batchSize {
		end := i + batchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		requests := map[string][]dynamotypes.WriteRequest{tableName: writeRequests[i:end]}
		err := try.Do(func(attempt int) (bool, error) {
			out, err := GetClient().BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: requests,
			})
			if err != nil {
				return false, fmt.Errorf("error batch writing items: %w", err)
			}
			requests = out.UnprocessedItems
			if len(requests) == 0 {
				return false, nil
			}
			return attempt < maxBatchAttempts, fmt.Errorf("%d items left unprocessed", len(requests[tableName]))
		})
		if err != nil {
			return err
		}
	}

	zap.S().Infof("Successfully batch wrote %d snapshots and deleted %d", len(snapshots), len(deletes))
	return nil
}
