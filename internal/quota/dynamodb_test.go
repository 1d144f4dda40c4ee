package quota

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	count     int64
	expiresAt int64
}

// fakeDynamoDB evaluates the two condition expressions DynamoDBStore issues.
type fakeDynamoDB struct {
	mu    sync.Mutex
	items map[string]fakeItem
	err   error
	calls []string
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]fakeItem)}
}

func num(av types.AttributeValue) int64 {
	n, _ := strconv.ParseInt(av.(*types.AttributeValueMemberN).Value, 10, 64)
	return n
}

func (f *fakeDynamoDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	if f.err != nil {
		return nil, f.err
	}

	id := in.Key[attrIdentity].(*types.AttributeValueMemberS).Value
	limit := num(in.ExpressionAttributeValues[":limit"])
	now := num(in.ExpressionAttributeValues[":now"])

	item, ok := f.items[id]
	if !ok || item.count >= limit || item.expiresAt <= now {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	item.count += num(in.ExpressionAttributeValues[":one"])
	f.items[id] = item

	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		attrCount: numberValue(item.count),
	}}, nil
}

func (f *fakeDynamoDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "put")
	if f.err != nil {
		return nil, f.err
	}

	id := in.Item[attrIdentity].(*types.AttributeValueMemberS).Value
	now := num(in.ExpressionAttributeValues[":now"])

	if item, ok := f.items[id]; ok && item.expiresAt > now {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	f.items[id] = fakeItem{
		count:     num(in.Item[attrCount]),
		expiresAt: num(in.Item[attrExpiresAt]),
	}
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoDBStore_IncrementIfUnder(t *testing.T) {
	fake := newFakeDynamoDB()
	store := NewDynamoDBStore(fake, "quota")
	start := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return start }
	ctx := context.Background()

	count, allowed, err := store.IncrementIfUnder(ctx, "alice", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
	assert.Equal(t, start.Add(time.Hour).Unix(), fake.items["alice"].expiresAt)

	count, allowed, err = store.IncrementIfUnder(ctx, "alice", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, count)

	_, allowed, err = store.IncrementIfUnder(ctx, "alice", 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(2), fake.items["alice"].count)
}

func TestDynamoDBStore_ResetsExpiredWindow(t *testing.T) {
	fake := newFakeDynamoDB()
	store := NewDynamoDBStore(fake, "quota")
	start := time.Unix(1_700_000_000, 0)
	fake.items["alice"] = fakeItem{count: 25, expiresAt: start.Unix()}
	store.now = func() time.Time { return start }

	count, allowed, err := store.IncrementIfUnder(context.Background(), "alice", 25, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
	assert.Equal(t, start.Add(24*time.Hour).Unix(), fake.items["alice"].expiresAt)
}

func TestDynamoDBStore_StoreError(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.err = errors.New("throttled")
	store := NewDynamoDBStore(fake, "quota")

	_, allowed, err := store.IncrementIfUnder(context.Background(), "alice", 25, time.Hour)
	require.Error(t, err)
	assert.False(t, allowed)
	assert.Equal(t, []string{"update"}, fake.calls)
}
