package dyndb

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Query starts a builder for a key-conditioned query.
func (s *dynamoStore) Query() *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Scan starts a builder for a full-table scan.
func (s *dynamoStore) Scan() *QueryBuilder {
	return &QueryBuilder{store: s, isScan: true}
}

// keyAttrs resolves the attribute names key conditions apply to, honoring a
// previously selected index. Call Index before any key condition.
func (qb *QueryBuilder) keyAttrs() (string, string) {
	if qb.store == nil {
		return "pk", "sk"
	}
	cfg := qb.store.cfg
	if qb.indexName != nil && cfg.Index.Name == *qb.indexName {
		return cfg.Index.HashKey, cfg.Index.SortKey
	}
	return cfg.HashKey, cfg.SortKey
}

func (qb *QueryBuilder) addKeyCond(cond expression.KeyConditionBuilder) *QueryBuilder {
	if qb.keyCond == nil {
		qb.keyCond = &cond
	} else {
		tmp := qb.keyCond.And(cond)
		qb.keyCond = &tmp
	}
	return qb
}

func (qb *QueryBuilder) addFilter(cond expression.ConditionBuilder) *QueryBuilder {
	if qb.filterCond == nil {
		qb.filterCond = &cond
	} else {
		tmp := qb.filterCond.And(cond)
		qb.filterCond = &tmp
	}
	return qb
}

// Index targets a global secondary index instead of the base table.
func (qb *QueryBuilder) Index(name string) *QueryBuilder {
	qb.indexName = aws.String(name)
	return qb
}

// Partition constrains results to a single partition key value.
func (qb *QueryBuilder) Partition(value string) *QueryBuilder {
	hash, _ := qb.keyAttrs()
	return qb.addKeyCond(expression.KeyEqual(expression.Key(hash), expression.Value(value)))
}

// SortBeginsWith keeps only records whose sort key starts with prefix.
func (qb *QueryBuilder) SortBeginsWith(prefix string) *QueryBuilder {
	_, sortKey := qb.keyAttrs()
	return qb.addKeyCond(expression.Key(sortKey).BeginsWith(prefix))
}

// SortEqual keeps only the record whose sort key equals value.
func (qb *QueryBuilder) SortEqual(value string) *QueryBuilder {
	_, sortKey := qb.keyAttrs()
	return qb.addKeyCond(expression.KeyEqual(expression.Key(sortKey), expression.Value(value)))
}

// SortGTE keeps records with sort key >= value.
func (qb *QueryBuilder) SortGTE(value string) *QueryBuilder {
	_, sortKey := qb.keyAttrs()
	return qb.addKeyCond(expression.KeyGreaterThanEqual(expression.Key(sortKey), expression.Value(value)))
}

// SortLTE keeps records with sort key <= value.
func (qb *QueryBuilder) SortLTE(value string) *QueryBuilder {
	_, sortKey := qb.keyAttrs()
	return qb.addKeyCond(expression.KeyLessThanEqual(expression.Key(sortKey), expression.Value(value)))
}

// FilterEqual adds an equality filter on a named attribute.
func (qb *QueryBuilder) FilterEqual(field string, value any) *QueryBuilder {
	return qb.addFilter(expression.Equal(expression.Name(field), expression.Value(marshalValue(value))))
}

// FilterIn adds a set-membership filter on a named attribute.
func (qb *QueryBuilder) FilterIn(field string, values ...any) *QueryBuilder {
	if len(values) == 0 {
		return qb
	}
	first := expression.Value(marshalValue(values[0]))
	rest := make([]expression.OperandBuilder, 0, len(values)-1)
	for _, v := range values[1:] {
		rest = append(rest, expression.Value(marshalValue(v)))
	}
	return qb.addFilter(expression.In(expression.Name(field), first, rest...))
}

// FilterGTE adds a lower-bound filter on a named attribute.
func (qb *QueryBuilder) FilterGTE(field string, value any) *QueryBuilder {
	return qb.addFilter(expression.GreaterThanEqual(expression.Name(field), expression.Value(marshalValue(value))))
}

// FilterLTE adds an upper-bound filter on a named attribute.
func (qb *QueryBuilder) FilterLTE(field string, value any) *QueryBuilder {
	return qb.addFilter(expression.LessThanEqual(expression.Name(field), expression.Value(marshalValue(value))))
}

// FilterBetween adds an inclusive range filter on a named attribute.
func (qb *QueryBuilder) FilterBetween(field string, lo, hi any) *QueryBuilder {
	return qb.addFilter(expression.Between(
		expression.Name(field),
		expression.Value(marshalValue(lo)),
		expression.Value(marshalValue(hi)),
	))
}

// FilterContains adds a substring/membership filter on a named attribute.
func (qb *QueryBuilder) FilterContains(field string, value string) *QueryBuilder {
	return qb.addFilter(expression.Contains(expression.Name(field), value))
}

// Limit caps the number of evaluated items per page.
func (qb *QueryBuilder) Limit(n int32) *QueryBuilder {
	qb.limit = &n
	return qb
}

// StartToken resumes from a continuation token returned in a previous Page.
// Malformed tokens are ignored and the query starts from the beginning.
func (qb *QueryBuilder) StartToken(token string) *QueryBuilder {
	if token == "" {
		return qb
	}
	if data, err := base64.StdEncoding.DecodeString(token); err == nil {
		var plain map[string]any
		if json.Unmarshal(data, &plain) == nil && len(plain) > 0 {
			if key, err := attributevalue.MarshalMap(plain); err == nil {
				qb.lastKey = key
			}
		}
	}
	return qb
}

// Exec runs the accumulated query or scan and returns a single page of
// results in ascending sort-key order.
func (qb *QueryBuilder) Exec(ctx context.Context) (Page, error) {
	if qb.execFn != nil {
		return qb.execFn(ctx)
	}
	if qb.store == nil {
		return Page{}, nil
	}

	builder := expression.NewBuilder()
	hasExpr := false

	if qb.keyCond != nil {
		builder = builder.WithKeyCondition(*qb.keyCond)
		hasExpr = true
	}
	if qb.filterCond != nil {
		builder = builder.WithFilter(*qb.filterCond)
		hasExpr = true
	}

	var expr expression.Expression
	if hasExpr {
		var err error
		expr, err = builder.Build()
		if err != nil {
			return Page{}, storageErr("expression", err)
		}
	}

	if qb.isScan || qb.keyCond == nil {
		return qb.execScan(ctx, expr)
	}
	return qb.execQuery(ctx, expr)
}

func (qb *QueryBuilder) execQuery(ctx context.Context, expr expression.Expression) (Page, error) {
	out, err := qb.store.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(qb.store.cfg.TableName),
		IndexName:                 qb.indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     qb.limit,
		ScanIndexForward:          aws.Bool(true),
		ExclusiveStartKey:         qb.lastKey,
	})
	if err != nil {
		return Page{}, storageErr("query", err)
	}
	return buildPage(out.Items, int(out.Count), int(out.ScannedCount), out.LastEvaluatedKey), nil
}

func (qb *QueryBuilder) execScan(ctx context.Context, expr expression.Expression) (Page, error) {
	out, err := qb.store.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(qb.store.cfg.TableName),
		IndexName:                 qb.indexName,
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     qb.limit,
		ExclusiveStartKey:         qb.lastKey,
	})
	if err != nil {
		return Page{}, storageErr("scan", err)
	}
	return buildPage(out.Items, int(out.Count), int(out.ScannedCount), out.LastEvaluatedKey), nil
}

func buildPage(items []map[string]types.AttributeValue, count, scanned int, lastKey map[string]types.AttributeValue) Page {
	page := Page{
		Items:        make([]Record, 0, len(items)),
		Count:        count,
		ScannedCount: scanned,
	}
	for _, item := range items {
		page.Items = append(page.Items, UnmarshalRecord(item))
	}

	if lastKey != nil {
		var plain map[string]any
		if err := attributevalue.UnmarshalMap(lastKey, &plain); err == nil {
			if b, err := json.Marshal(plain); err == nil {
				page.NextToken = base64.StdEncoding.EncodeToString(b)
				page.HasMore = true
			}
		}
	}
	return page
}
