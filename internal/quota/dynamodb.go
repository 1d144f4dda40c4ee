package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB attribute names. expiresAt holds epoch seconds so the table's
// TTL setting can reap expired windows.
const (
	attrIdentity  = "identity"
	attrCount     = "count"
	attrExpiresAt = "expiresAt"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStore.
type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBStore keeps counters in a DynamoDB table keyed by identity.
// Every mutation is a single conditional write; there is no read-modify-write.
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDynamoDBStore creates a store backed by table.
func NewDynamoDBStore(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table, now: time.Now}
}

// IncrementIfUnder first tries to increment a live window, then tries to
// start a new one. If a concurrent request started the window between the
// two writes, the increment is attempted once more.
func (s *DynamoDBStore) IncrementIfUnder(ctx context.Context, identity string, limit int, window time.Duration) (int, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()

		count, ok, err := s.increment(ctx, identity, limit, now)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return count, true, nil
		}

		ok, err = s.start(ctx, identity, now, window)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return 1, true, nil
		}
	}
	return limit, false, nil
}

func (s *DynamoDBStore) increment(ctx context.Context, identity string, limit int, now time.Time) (int, bool, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrIdentity: &types.AttributeValueMemberS{Value: identity},
		},
		UpdateExpression:    aws.String("ADD #c :one"),
		ConditionExpression: aws.String("attribute_exists(#c) AND #c < :limit AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCount,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   numberValue(1),
			":limit": numberValue(int64(limit)),
			":now":   numberValue(now.Unix()),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to increment quota: %w", err)
	}

	count, err := numberAttr(out.Attributes, attrCount)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (s *DynamoDBStore) start(ctx context.Context, identity string, now time.Time, window time.Duration) (bool, error) {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			attrIdentity:  &types.AttributeValueMemberS{Value: identity},
			attrCount:     numberValue(1),
			attrExpiresAt: numberValue(now.Add(window).Unix()),
		},
		ConditionExpression: aws.String("attribute_not_exists(#c) OR #e <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCount,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": numberValue(now.Unix()),
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to start quota window: %w", err)
	}
	return true, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func numberValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func numberAttr(attrs map[string]types.AttributeValue, name string) (int, error) {
	v, ok := attrs[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("quota item has no numeric %q attribute", name)
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid %q attribute: %w", name, err)
	}
	return n, nil
}
