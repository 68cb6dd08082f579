// Package dyndb is the generic access layer for the single DynamoDB table
// that backs every entity in the service.
//
// All records share one physical shape: a partition key grouping records by
// owner, a sort key discriminating record type and identity, arbitrary named
// attributes, and two managed timestamps (created_at, updated_at). The
// Store interface exposes CRUD, query, scan and batch operations over that
// shape; entity packages map their domain objects onto it and never touch
// the SDK directly.
//
// Values cross the boundary as Record maps. The codec converts them to and
// from DynamoDB AttributeValues, turning time.Time into RFC3339 text on
// write and probing strings as timestamps on read (see UnmarshalRecord for
// the caveat that implies).
//
// Queries are built fluently:
//
//	page, err := store.Query().
//		Partition(models.UserKey(userID)).
//		SortBeginsWith(models.UserExpensesPrefix(userID)).
//		Limit(50).
//		Exec(ctx)
//
// Pagination uses opaque continuation tokens: pass page.NextToken back via
// StartToken to fetch the next page.
//
// Scan keeps the same builder surface but walks the whole table; it exists
// for the cross-partition maintenance paths (batch analysis) and should not
// be reached for a workload a partition query or the configured secondary
// index can serve.
package dyndb
