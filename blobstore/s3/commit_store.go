package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/matchadb/matcha/blobstore"
)

// ErrCommitConflict is returned when another writer committed the same
// generation first. The caller should re-read Latest and retry.
var ErrCommitConflict = errors.New("snapshot commit conflict")

// DynamoDBClient is the subset of the DynamoDB API CommitStore uses.
// *dynamodb.Client satisfies it.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore tracks which snapshot blob is current. S3 offers no
// compare-and-swap, so snapshots are written under unique keys (see
// SnapshotKey) and a DynamoDB conditional write advances the
// latest-generation pointer. Multiple writers coordinate safely: of two
// concurrent commits against the same generation exactly one wins and the
// other observes ErrCommitConflict.
//
// Table schema:
//   - Partition key: store_name (string)
//   - Sort key: gen (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name matcha-commits \
//	  --attribute-definitions AttributeName=store_name,AttributeType=S AttributeName=gen,AttributeType=N \
//	  --key-schema AttributeName=store_name,KeyType=HASH AttributeName=gen,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	ddb   DynamoDBClient
	table string
	name  string
}

// NewCommitStore creates a commit store for one logical matcha store.
// name is the partition key value and scopes generations, so several
// stores can share one table.
func NewCommitStore(ddb DynamoDBClient, table, name string) *CommitStore {
	return &CommitStore{
		ddb:   ddb,
		table: table,
		name:  name,
	}
}

// Latest returns the most recently committed snapshot key and its
// generation. When nothing has been committed yet it returns
// blobstore.ErrNotFound.
func (c *CommitStore) Latest(ctx context.Context) (string, uint64, error) {
	resp, err := c.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("store_name = :name"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: c.name},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", 0, fmt.Errorf("query commits: %w", err)
	}

	if len(resp.Items) == 0 {
		return "", 0, blobstore.ErrNotFound
	}

	item := resp.Items[0]

	genAttr, ok := item["gen"].(*types.AttributeValueMemberN)
	if !ok {
		return "", 0, errors.New("invalid gen attribute")
	}

	keyAttr, ok := item["snapshot_key"].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, errors.New("invalid snapshot_key attribute")
	}

	gen, err := strconv.ParseUint(genAttr.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse gen: %w", err)
	}

	return keyAttr.Value, gen, nil
}

// Commit records key as generation expectedGen+1. expectedGen must be the
// generation the caller last observed via Latest, or 0 for the first
// commit. A concurrent commit of the same generation returns
// ErrCommitConflict.
func (c *CommitStore) Commit(ctx context.Context, key string, expectedGen uint64) error {
	_, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"store_name":   &types.AttributeValueMemberS{Value: c.name},
			"gen":          &types.AttributeValueMemberN{Value: strconv.FormatUint(expectedGen+1, 10)},
			"snapshot_key": &types.AttributeValueMemberS{Value: key},
			"committed_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(gen)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrCommitConflict
		}

		return fmt.Errorf("commit generation %d: %w", expectedGen+1, err)
	}

	return nil
}

// SnapshotKey returns a fresh unique blob key under prefix for a new
// snapshot generation, e.g. "snapshots/9cdbe132-….matcha".
func SnapshotKey(prefix string) string {
	return path.Join(prefix, uuid.NewString()+".matcha")
}
