// Package dynamodb stores users and thoughts in a single DynamoDB table.
//
// Every document is one item keyed by PK/SK:
//
//	USER#<id>     PROFILE    username, email, Thoughts (list), Friends (string set)
//	THOUGHT#<id>  METADATA   text, owner, Reactions (map keyed by reaction id)
//
// Set semantics are enforced with conditional update expressions so each
// repository call is a single atomic item write.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	pkgerrors "thoughtgraph/pkg/errors"
)

const (
	entityUser    = "USER"
	entityThought = "THOUGHT"

	skProfile  = "PROFILE"
	skMetadata = "METADATA"

	// DynamoDB request limits
	batchGetLimit   = 100
	batchWriteLimit = 25

	// maxBatchAttempts bounds how often unprocessed batch entries are resubmitted
	maxBatchAttempts = 5
)

// DBClient is the subset of the DynamoDB API the repositories use.
// *dynamodb.Client satisfies it; tests substitute a mock.
type DBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store bundles the repositories that share one table
type Store struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewStore creates a store over the given table
func NewStore(client DBClient, tableName string, logger *zap.Logger) *Store {
	return &Store{client: client, tableName: tableName, logger: logger}
}

// Thoughts returns the thought repository backed by the table
func (s *Store) Thoughts() *ThoughtRepository {
	return &ThoughtRepository{client: s.client, tableName: s.tableName, logger: s.logger}
}

// Users returns the user repository backed by the table
func (s *Store) Users() *UserRepository {
	return &UserRepository{client: s.client, tableName: s.tableName, logger: s.logger}
}

// Ping checks that the table is reachable
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	}); err != nil {
		return storeError("describe_table", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connections that need releasing
func (s *Store) Close(context.Context) error {
	return nil
}

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userKeyValue(id)},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

func thoughtKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: thoughtKeyValue(id)},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

// conditionFailed reports whether err is a failed condition expression and
// returns the item as it was when the condition was evaluated. The item is
// nil when it did not exist.
func conditionFailed(err error) (map[string]types.AttributeValue, bool) {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ccf.Item, true
	}
	return nil, false
}

// storeError wraps an SDK failure, keeping the service error code when there is one
func storeError(operation string, err error) error {
	appErr := pkgerrors.NewStoreError(operation, err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		appErr.WithCode(apiErr.ErrorCode())
	}
	return appErr
}

// batchWrite submits write requests in chunks, resubmitting unprocessed entries
func batchWrite(ctx context.Context, client DBClient, tableName string, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(requests) {
			end = len(requests)
		}

		pending := map[string][]types.WriteRequest{tableName: requests[start:end]}
		for attempt := 0; len(pending[tableName]) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return fmt.Errorf("%d write requests left unprocessed after %d attempts", len(pending[tableName]), attempt)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch write failed for requests %d-%d: %w", start, end-1, err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// batchGet fetches items by key in chunks, resubmitting unprocessed keys
func batchGet(ctx context.Context, client DBClient, tableName string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}

		pending := map[string]types.KeysAndAttributes{
			tableName: {Keys: keys[start:end], ConsistentRead: aws.Bool(true)},
		}
		for attempt := 0; len(pending[tableName].Keys) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return nil, fmt.Errorf("%d keys left unprocessed after %d attempts", len(pending[tableName].Keys), attempt)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("batch get failed for keys %d-%d: %w", start, end-1, err)
			}
			items = append(items, out.Responses[tableName]...)
			pending = out.UnprocessedKeys
		}
	}
	return items, nil
}
