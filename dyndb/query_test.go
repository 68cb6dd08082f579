package dyndb_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/taxless-service/dyndb"
)

func TestQuery_PartitionWithSortPrefix(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := createTestStore(mockClient)

	var input *dynamodb.QueryInput
	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		input = in
		return *in.TableName == "test-table"
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{
				"pk":     &types.AttributeValueMemberS{Value: "USER#u1"},
				"sk":     &types.AttributeValueMemberS{Value: "EXPENSE#u1#e1"},
				"amount": &types.AttributeValueMemberN{Value: "12.5"},
			},
			{
				"pk":     &types.AttributeValueMemberS{Value: "USER#u1"},
				"sk":     &types.AttributeValueMemberS{Value: "EXPENSE#u1#e2"},
				"amount": &types.AttributeValueMemberN{Value: "99"},
			},
		},
		Count:        2,
		ScannedCount: 2,
	}, nil)

	page, err := store.Query().
		Partition("USER#u1").
		SortBeginsWith("EXPENSE#").
		Exec(context.Background())

	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Count)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextToken)
	assert.Equal(t, 12.5, page.Items[0]["amount"])

	require.NotNil(t, input)
	assert.True(t, *input.ScanIndexForward)
	require.NotNil(t, input.KeyConditionExpression)
	assert.Contains(t, *input.KeyConditionExpression, "begins_with")
	assert.Nil(t, input.IndexName)
	assert.Contains(t, attrValues(input.ExpressionAttributeValues), "USER#u1")
	assert.Contains(t, attrValues(input.ExpressionAttributeValues), "EXPENSE#")
}

func TestQuery_PaginationTokenRoundTrip(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := createTestStore(mockClient)

	lastKey := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "USER#u1"},
		"sk": &types.AttributeValueMemberS{Value: "EXPENSE#u1#e10"},
	}

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			{"pk": &types.AttributeValueMemberS{Value: "USER#u1"}, "sk": &types.AttributeValueMemberS{Value: "EXPENSE#u1#e10"}},
		},
		Count:            1,
		ScannedCount:     1,
		LastEvaluatedKey: lastKey,
	}, nil).Once()

	first, err := store.Query().Partition("USER#u1").Limit(1).Exec(context.Background())
	require.NoError(t, err)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextToken)

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		start := in.ExclusiveStartKey
		if start == nil {
			return false
		}
		sk, ok := start["sk"].(*types.AttributeValueMemberS)
		return ok && sk.Value == "EXPENSE#u1#e10"
	})).Return(&dynamodb.QueryOutput{Count: 0, ScannedCount: 0}, nil).Once()

	second, err := store.Query().
		Partition("USER#u1").
		Limit(1).
		StartToken(first.NextToken).
		Exec(context.Background())

	require.NoError(t, err)
	assert.False(t, second.HasMore)
	mockClient.AssertExpectations(t)
}

func TestQuery_MalformedTokenStartsOver(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := createTestStore(mockClient)

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{}, nil)

	_, err := store.Query().
		Partition("USER#u1").
		StartToken("not base64!").
		Exec(context.Background())

	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestQuery_IndexTargetsSecondaryKeys(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := dyndb.New(mockClient, dyndb.TableConfig{
		TableName: "test-table",
		HashKey:   "pk",
		SortKey:   "sk",
		Index: dyndb.SecondaryIndex{
			Name:    "gsi1",
			HashKey: "gsi1pk",
			SortKey: "gsi1sk",
		},
	})

	var input *dynamodb.QueryInput
	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		input = in
		return true
	})).Return(&dynamodb.QueryOutput{}, nil)

	_, err := store.Query().
		Index("gsi1").
		Partition("CATEGORY#TRAVEL").
		Exec(context.Background())

	require.NoError(t, err)
	require.NotNil(t, input)
	require.NotNil(t, input.IndexName)
	assert.Equal(t, "gsi1", *input.IndexName)
	assert.Contains(t, attrNames(input.ExpressionAttributeNames), "gsi1pk")
}

func TestScan_FilterConditions(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := createTestStore(mockClient)

	var input *dynamodb.ScanInput
	mockClient.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		input = in
		return true
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{
			{
				"pk":          &types.AttributeValueMemberS{Value: "USER#u1"},
				"sk":          &types.AttributeValueMemberS{Value: "RECEIPT#u1#r1"},
				"is_verified": &types.AttributeValueMemberBOOL{Value: false},
			},
		},
		Count:        1,
		ScannedCount: 8,
	}, nil)

	page, err := store.Scan().
		FilterEqual("is_verified", false).
		FilterGTE("created_at", "2024-01-01T00:00:00Z").
		Exec(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, 8, page.ScannedCount)
	assert.Equal(t, false, page.Items[0]["is_verified"])

	require.NotNil(t, input)
	require.NotNil(t, input.FilterExpression)
	assert.Contains(t, attrNames(input.ExpressionAttributeNames), "is_verified")
	assert.Contains(t, attrNames(input.ExpressionAttributeNames), "created_at")
}

func TestQuery_NoKeyConditionFallsBackToScan(t *testing.T) {
	t.Parallel()

	mockClient := &MockDynamoClient{}
	store := createTestStore(mockClient)

	mockClient.On("Scan", mock.Anything, mock.Anything).
		Return(&dynamodb.ScanOutput{}, nil)

	_, err := store.Query().
		FilterEqual("category", "MEALS").
		Exec(context.Background())

	require.NoError(t, err)
	mockClient.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	mockClient.AssertCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestMockStore_QueryExecHook(t *testing.T) {
	t.Parallel()

	ms := &dyndb.MockStore{
		QueryExecFn: func(ctx context.Context) (dyndb.Page, error) {
			return dyndb.Page{
				Items: []dyndb.Record{{"sk": "EXPENSE#u1#e1"}},
				Count: 1,
			}, nil
		},
	}

	page, err := ms.Query().Partition("USER#u1").SortBeginsWith("EXPENSE#").Exec(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "EXPENSE#u1#e1", page.Items[0]["sk"])
}

func attrValues(values map[string]types.AttributeValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

func attrNames(names map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, v := range names {
		out = append(out, v)
	}
	return out
}
