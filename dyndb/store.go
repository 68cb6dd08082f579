package dyndb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoStore struct {
	client DynamoDBClient
	cfg    TableConfig
	now    func() time.Time
}

// New creates a reusable store over the configured table.
func New(client DynamoDBClient, cfg TableConfig) Store {
	cfg.applyDefaults()
	return &dynamoStore{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *dynamoStore) key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.cfg.HashKey: &types.AttributeValueMemberS{Value: pk},
		s.cfg.SortKey: &types.AttributeValueMemberS{Value: sk},
	}
}

// Create writes the record unconditionally. An existing record under the
// same key pair is overwritten; there is no optimistic-lock check.
func (s *dynamoStore) Create(ctx context.Context, pk, sk string, attrs Record) (Record, error) {
	now := s.now().UTC()

	item := make(Record, len(attrs)+4)
	for k, v := range attrs {
		item[k] = v
	}
	item[s.cfg.HashKey] = pk
	item[s.cfg.SortKey] = sk
	if _, ok := item["created_at"]; !ok {
		item["created_at"] = now
	}
	if _, ok := item["updated_at"]; !ok {
		item["updated_at"] = now
	}

	av := MarshalRecord(item)
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.TableName),
		Item:      av,
	})
	if err != nil {
		return nil, storageErr("create", err)
	}
	return UnmarshalRecord(av), nil
}

// Get point-looks-up a record by its key pair.
func (s *dynamoStore) Get(ctx context.Context, pk, sk string) (Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.cfg.TableName),
		Key:            s.key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return UnmarshalRecord(out.Item), nil
}

// Update applies only the supplied non-nil attributes. The write is
// conditioned on the record existing; DynamoDB's silent upsert behavior is
// deliberately not exposed.
func (s *dynamoStore) Update(ctx context.Context, pk, sk string, updates Record) (Record, error) {
	names := make([]string, 0, len(updates))
	for k, v := range updates {
		if v == nil {
			continue
		}
		// The store owns updated_at; a caller-supplied value would
		// produce an overlapping document path in the expression.
		if k == "updated_at" {
			continue
		}
		names = append(names, k)
	}

	// Nothing to change: return the stored record verbatim, without
	// bumping updated_at.
	if len(names) == 0 {
		return s.Get(ctx, pk, sk)
	}
	sort.Strings(names)

	exprNames := map[string]string{"#updated_at": "updated_at"}
	exprValues := map[string]types.AttributeValue{
		":updated_at": marshalValue(s.now().UTC()),
	}
	setClauses := make([]string, 0, len(names)+1)
	for i, k := range names {
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = marshalValue(updates[k])
		setClauses = append(setClauses, nameKey+" = "+valueKey)
	}
	setClauses = append(setClauses, "#updated_at = :updated_at")

	exprNames["#pk"] = s.cfg.HashKey

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.cfg.TableName),
		Key:                       s.key(pk, sk),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, storageErr("update", err)
	}
	return UnmarshalRecord(out.Attributes), nil
}

// Delete removes the record unconditionally.
func (s *dynamoStore) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       s.key(pk, sk),
	})
	if err != nil {
		return storageErr("delete", err)
	}
	return nil
}

// DynamoDB caps BatchGetItem at 100 keys and BatchWriteItem at 25 requests.
const (
	batchGetLimit   = 100
	batchWriteLimit = 25
)

// BatchGet fetches the given keys, chunking as needed. Missing keys are
// silently omitted from the result.
func (s *dynamoStore) BatchGet(ctx context.Context, keys []Key) ([]Record, error) {
	keyMaps := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		keyMaps = append(keyMaps, s.key(k.Partition, k.Sort))
	}

	var results []Record
	for i := 0; i < len(keyMaps); i += batchGetLimit {
		end := i + batchGetLimit
		if end > len(keyMaps) {
			end = len(keyMaps)
		}

		out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.cfg.TableName: {
					Keys:           keyMaps[i:end],
					ConsistentRead: aws.Bool(true),
				},
			},
		})
		if err != nil {
			return nil, storageErr("batchget", err)
		}
		for _, item := range out.Responses[s.cfg.TableName] {
			results = append(results, UnmarshalRecord(item))
		}
	}
	return results, nil
}

// BatchWrite applies puts or deletes in chunks. A chunk failure surfaces as
// a single aggregate error; previously committed chunks stay applied, so
// callers must treat batch writes as non-atomic.
func (s *dynamoStore) BatchWrite(ctx context.Context, op BatchOp, items []Record) error {
	if op != BatchPut && op != BatchDelete {
		return fmt.Errorf("dyndb: batch operation must be %q or %q", BatchPut, BatchDelete)
	}

	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		if op == BatchPut {
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: MarshalRecord(item)},
			})
			continue
		}
		pk, _ := item[s.cfg.HashKey].(string)
		sk, _ := item[s.cfg.SortKey].(string)
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: s.key(pk, sk)},
		})
	}

	for i := 0; i < len(requests); i += batchWriteLimit {
		end := i + batchWriteLimit
		if end > len(requests) {
			end = len(requests)
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.cfg.TableName: requests[i:end],
			},
		})
		if err != nil {
			return storageErr("batchwrite", err)
		}
	}
	return nil
}
