package dyndb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrNotFound is returned when a point lookup or an update targets a key
// pair that does not exist in the table.
var ErrNotFound = errors.New("dyndb: item not found")

// StorageError wraps any transport or service failure coming back from
// DynamoDB. The upstream message is preserved; there is no further
// classification.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("dyndb: %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Record is the application-level shape of a stored item: a string-keyed
// attribute map. Supported value kinds are string, bool, numbers, nil,
// time.Time, nested Record (or map[string]any) and []any. Anything else is
// coerced to text on write (see MarshalRecord).
type Record map[string]any

// Key identifies a single item by its composite primary key.
type Key struct {
	Partition string
	Sort      string
}

// Page is the result of a Query or Scan execution.
//
// NextToken is an opaque continuation cursor; callers pass it back verbatim
// through StartToken to fetch the next page.
type Page struct {
	Items        []Record
	Count        int
	ScannedCount int
	NextToken    string
	HasMore      bool
}

// BatchOp selects the operation applied by BatchWrite.
type BatchOp string

const (
	BatchPut    BatchOp = "put"
	BatchDelete BatchOp = "delete"
)

// DynamoDBClient abstracts the AWS SDK DynamoDB client so the store can be
// tested against a mock without touching the network.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store is the sole access path to the expense table. Every entity service
// routes through it.
type Store interface {
	// Create writes attrs under (pk, sk) unconditionally, injecting
	// created_at/updated_at when absent, and returns the stored record.
	Create(ctx context.Context, pk, sk string, attrs Record) (Record, error)
	// Get returns the record at (pk, sk), or ErrNotFound.
	Get(ctx context.Context, pk, sk string) (Record, error)
	// Update applies a partial attribute set to an existing record. Nil
	// values are dropped; an empty update set reads and returns the stored
	// record without writing. Updating a missing key returns ErrNotFound.
	Update(ctx context.Context, pk, sk string, updates Record) (Record, error)
	// Delete removes the record at (pk, sk). Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, pk, sk string) error

	// Query starts a key-scoped query builder over the table or an index.
	Query() *QueryBuilder
	// Scan starts a full-table scan builder. Cost is linear in table size;
	// prefer Query with a partition key or index whenever one applies.
	Scan() *QueryBuilder

	// BatchGet fetches keys in chunks of 100. Keys that do not exist are
	// omitted from the result.
	BatchGet(ctx context.Context, keys []Key) ([]Record, error)
	// BatchWrite puts or deletes items in chunks of 25. A failing chunk
	// aborts with a single aggregate error; chunks already applied are not
	// rolled back.
	BatchWrite(ctx context.Context, op BatchOp, items []Record) error
}

// SecondaryIndex holds the configuration of a global secondary index.
type SecondaryIndex struct {
	Name    string `env:"DYNAMODB_GSI_NAME"`
	HashKey string `env:"DYNAMODB_GSI_HASH_KEY"`
	SortKey string `env:"DYNAMODB_GSI_SORT_KEY"`
}

// TableConfig describes the single physical table backing every entity.
type TableConfig struct {
	TableName string `env:"DYNAMODB_TABLE_NAME" envDefault:"taxless-expenses"`
	HashKey   string `env:"DYNAMODB_HASH_KEY" envDefault:"pk"`
	SortKey   string `env:"DYNAMODB_SORT_KEY" envDefault:"sk"`
	Index     SecondaryIndex
}

func (c *TableConfig) applyDefaults() {
	if c.HashKey == "" {
		c.HashKey = "pk"
	}
	if c.SortKey == "" {
		c.SortKey = "sk"
	}
}

// QueryBuilder accumulates key conditions and filters before execution.
// Conditions combine with AND; a builder without a key condition runs as a
// Scan.
type QueryBuilder struct {
	store      *dynamoStore
	keyCond    *expression.KeyConditionBuilder
	filterCond *expression.ConditionBuilder
	indexName  *string
	limit      *int32
	lastKey    map[string]types.AttributeValue
	isScan     bool

	// execFn, when set, replaces the real execution path. Used by MockStore.
	execFn func(ctx context.Context) (Page, error)
}
