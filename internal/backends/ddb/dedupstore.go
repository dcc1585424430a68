package ddb

import (
	"context"
	"errors"
	"strings"
	"time"

	"bankhook/internal/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DedupStore implements ports.DedupStore on DynamoDB. The conditional
// PutItem (attribute_not_exists) is the per-id compare-and-set the
// processor relies on; the table's TTL attribute reclaims rows past the
// retention horizon.
type DedupStore struct {
	table string
	cli   *dynamodb.Client
}

type dedupItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	TransactionID string `dynamodbav:"transaction_id"`
	BatchID       string `dynamodbav:"batch_id"`
	ProcessedAt   int64  `dynamodbav:"processed_at"`
	ExpiresAt     int64  `dynamodbav:"ttl"`
}

func NewDedupStore(table string, cli *dynamodb.Client) *DedupStore {
	createTableIfNotExists(cli, table)
	return &DedupStore{table: table, cli: cli}
}

func (s *DedupStore) Insert(ctx context.Context, entry types.DedupEntry, ttl time.Duration) (bool, error) {
	item := dedupItem{
		PK:            pkTx(entry.TransactionID),
		SK:            SKEntry,
		TransactionID: entry.TransactionID,
		BatchID:       entry.BatchID,
		ProcessedAt:   entry.ProcessedAt.Unix(),
		ExpiresAt:     entry.ProcessedAt.Add(ttl).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, err
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.table,
		Item:                av,
		ConditionExpression: awsString("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return false, nil // already processed
		}
		return false, types.Err(types.ErrDedupStoreAccess, err, "")
	}
	return true, nil
}

func (s *DedupStore) Remove(ctx context.Context, transactionID string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkTx(transactionID)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: SKEntry},
		},
	})
	if err != nil {
		return types.Err(types.ErrDedupStoreAccess, err, "")
	}
	return nil
}

func (s *DedupStore) LoadRecent(ctx context.Context, since time.Time) ([]types.DedupEntry, error) {
	var entries []types.DedupEntry
	err := s.scanEntries(ctx, func(it dedupItem) {
		if it.ProcessedAt >= since.Unix() {
			entries = append(entries, itemToEntry(it))
		}
	})
	return entries, err
}

func (s *DedupStore) Stats(ctx context.Context) (types.DedupStats, error) {
	var stats types.DedupStats
	err := s.scanEntries(ctx, func(it dedupItem) {
		stats.TotalProcessed++
		at := time.Unix(it.ProcessedAt, 0)
		if stats.Oldest.IsZero() || at.Before(stats.Oldest) {
			stats.Oldest = at
		}
		if at.After(stats.Newest) {
			stats.Newest = at
		}
	})
	return stats, err
}

func (s *DedupStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []string
	err := s.scanEntries(ctx, func(it dedupItem) {
		if it.ProcessedAt < cutoff.Unix() {
			stale = append(stale, it.TransactionID)
		}
	})
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		if err := s.Remove(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func (s *DedupStore) scanEntries(ctx context.Context, fn func(dedupItem)) error {
	var startKey map[string]ddbTypes.AttributeValue
	for {
		out, err := s.cli.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 &s.table,
			FilterExpression:          awsString("begins_with(PK, :tx) AND SK = :sk"),
			ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
				":tx": &ddbTypes.AttributeValueMemberS{Value: STx + "#"},
				":sk": &ddbTypes.AttributeValueMemberS{Value: SKEntry},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return types.Err(types.ErrDedupStoreAccess, err, "")
		}
		for _, raw := range out.Items {
			var it dedupItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				continue
			}
			fn(it)
		}
		if out.LastEvaluatedKey == nil {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func itemToEntry(it dedupItem) types.DedupEntry {
	id := it.TransactionID
	if id == "" {
		id = strings.TrimPrefix(it.PK, STx+"#")
	}
	return types.DedupEntry{
		TransactionID: id,
		BatchID:       it.BatchID,
		ProcessedAt:   time.Unix(it.ProcessedAt, 0),
	}
}
