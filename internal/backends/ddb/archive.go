package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Archive implements ports.BatchArchive: one row per admitted batch with
// the zstd-compressed raw body. Shares the dedup table; archive rows use
// the same TTL horizon as dedup rows.
type Archive struct {
	table     string
	cli       *dynamodb.Client
	retention time.Duration
}

type archiveItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	SourceAppID string `dynamodbav:"source_app_id"`
	Timestamp   string `dynamodbav:"batch_timestamp"`
	Body        []byte `dynamodbav:"body"`
	ExpiresAt   int64  `dynamodbav:"ttl"`
}

func NewArchive(table string, cli *dynamodb.Client, retention time.Duration) *Archive {
	return &Archive{table: table, cli: cli, retention: retention}
}

func (a *Archive) Save(ctx context.Context, batchID, sourceAppID, timestamp string, compressed []byte) error {
	item := archiveItem{
		PK:          pkBatch(batchID),
		SK:          SKArchive,
		SourceAppID: sourceAppID,
		Timestamp:   timestamp,
		Body:        compressed,
		ExpiresAt:   time.Now().Add(a.retention).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = a.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &a.table,
		Item:      av,
	})
	return err
}
