package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/hermes/pkg/types"
)

// fakeDynamo is a single table keyed by account_number and symbol
type fakeDynamo struct {
	items       map[string]map[string]dynamotypes.AttributeValue
	batchSizes  []int
	unprocessed int
	pageSize    int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]dynamotypes.AttributeValue{}}
}

func itemKey(av map[string]dynamotypes.AttributeValue) string {
	account := av["account_number"].(*dynamotypes.AttributeValueMemberS).Value
	symbol := av["symbol"].(*dynamotypes.AttributeValueMemberS).Value
	return account + "/" + symbol
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		start, _ = strconv.Atoi(in.ExclusiveStartKey["offset"].(*dynamotypes.AttributeValueMemberN).Value)
	}
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]dynamotypes.AttributeValue{
			"offset": &dynamotypes.AttributeValueMemberN{Value: fmt.Sprint(end)},
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for table, reqs := range in.RequestItems {
		f.batchSizes = append(f.batchSizes, len(reqs))
		accepted := reqs
		out := &dynamodb.BatchWriteItemOutput{}
		if f.unprocessed > 0 && f.unprocessed < len(reqs) {
			accepted = reqs[:len(reqs)-f.unprocessed]
			out.UnprocessedItems = map[string][]dynamotypes.WriteRequest{table: reqs[len(reqs)-f.unprocessed:]}
			f.unprocessed = 0
		}
		for _, r := range accepted {
			switch {
			case r.PutRequest != nil:
				f.items[itemKey(r.PutRequest.Item)] = r.PutRequest.Item
			case r.DeleteRequest != nil:
				delete(f.items, itemKey(r.DeleteRequest.Key))
			}
		}
		return out, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

var capturedAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func snapshots(n int) []types.Snapshot {
	var out []types.Snapshot
	for i := 0; i < n; i++ {
		out = append(out, types.NewSnapshot("12345678", types.Position{
			Symbol:      fmt.Sprintf("SYM%d", i),
			Quantity:    decimal.NewFromInt(int64(i + 1)),
			MarketValue: decimal.RequireFromString("101.25"),
		}, capturedAt))
	}
	return out
}

func TestGetTableName(t *testing.T) {
	t.Cleanup(func() { SetTableName("") })

	t.Setenv("DYNAMODB_TABLE", "")
	assert.Equal(t, "schwab_positions", GetTableName())
	t.Setenv("DYNAMODB_TABLE", "positions_dev")
	assert.Equal(t, "positions_dev", GetTableName())

	SetTableName("positions_cfg")
	assert.Equal(t, "positions_cfg", GetTableName())
}

func TestBatchWriteSnapshots_Chunks(t *testing.T) {
	fake := newFakeDynamo()
	SetClient(fake)

	require.NoError(t, BatchWriteSnapshots(context.Background(), snapshots(60), nil))
	assert.Equal(t, []int{25, 25, 10}, fake.batchSizes)
	assert.Len(t, fake.items, 60)
}

func TestBatchWriteSnapshots_ResubmitsUnprocessed(t *testing.T) {
	fake := newFakeDynamo()
	fake.unprocessed = 3
	SetClient(fake)

	require.NoError(t, BatchWriteSnapshots(context.Background(), snapshots(10), nil))
	assert.Equal(t, []int{10, 3}, fake.batchSizes)
	assert.Len(t, fake.items, 10)
}

func TestBatchWriteSnapshots_DeletesClosedPositions(t *testing.T) {
	fake := newFakeDynamo()
	SetClient(fake)
	ctx := context.Background()

	require.NoError(t, BatchWriteSnapshots(ctx, snapshots(3), nil))
	require.NoError(t, BatchWriteSnapshots(ctx, snapshots(1), []types.SnapshotKey{
		{AccountNumber: "12345678", Symbol: "SYM1"},
		{AccountNumber: "12345678", Symbol: "SYM2"},
	}))
	assert.Equal(t, []int{3, 3}, fake.batchSizes)

	got, err := GetSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SYM0", got[0].Symbol)
}

func TestBatchWriteSnapshots_Empty(t *testing.T) {
	fake := newFakeDynamo()
	SetClient(fake)

	require.NoError(t, BatchWriteSnapshots(context.Background(), nil, nil))
	assert.Empty(t, fake.batchSizes)
}

func TestWriteAndScanSnapshots(t *testing.T) {
	fake := newFakeDynamo()
	fake.pageSize = 2
	SetClient(fake)
	ctx := context.Background()

	require.NoError(t, BatchWriteSnapshots(ctx, snapshots(5), nil))

	got, err := GetSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "12345678", got[0].AccountNumber)
	assert.Equal(t, "SYM0", got[0].Symbol)
	assert.Equal(t, "101.25", got[0].MarketValue)
	assert.Equal(t, capturedAt, got[0].CapturedAt)

	p, err := got[4].Position()
	require.NoError(t, err)
	assert.True(t, p.Quantity.Equal(decimal.NewFromInt(5)))
}
