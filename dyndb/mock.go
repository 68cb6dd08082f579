package dyndb

import (
	"context"
)

// MockStore is a function-field mock of the Store interface for service
// tests. Unset fields fall back to harmless defaults.
type MockStore struct {
	CreateFn     func(ctx context.Context, pk, sk string, attrs Record) (Record, error)
	GetFn        func(ctx context.Context, pk, sk string) (Record, error)
	UpdateFn     func(ctx context.Context, pk, sk string, updates Record) (Record, error)
	DeleteFn     func(ctx context.Context, pk, sk string) error
	QueryExecFn  func(ctx context.Context) (Page, error)
	ScanExecFn   func(ctx context.Context) (Page, error)
	BatchGetFn   func(ctx context.Context, keys []Key) ([]Record, error)
	BatchWriteFn func(ctx context.Context, op BatchOp, items []Record) error
}

func (m *MockStore) Create(ctx context.Context, pk, sk string, attrs Record) (Record, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, pk, sk, attrs)
	}
	return attrs, nil
}

func (m *MockStore) Get(ctx context.Context, pk, sk string) (Record, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, pk, sk)
	}
	return nil, ErrNotFound
}

func (m *MockStore) Update(ctx context.Context, pk, sk string, updates Record) (Record, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, pk, sk, updates)
	}
	return nil, ErrNotFound
}

func (m *MockStore) Delete(ctx context.Context, pk, sk string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, pk, sk)
	}
	return nil
}

func (m *MockStore) Query() *QueryBuilder {
	return &QueryBuilder{execFn: m.QueryExecFn}
}

func (m *MockStore) Scan() *QueryBuilder {
	return &QueryBuilder{isScan: true, execFn: m.ScanExecFn}
}

func (m *MockStore) BatchGet(ctx context.Context, keys []Key) ([]Record, error) {
	if m.BatchGetFn != nil {
		return m.BatchGetFn(ctx, keys)
	}
	return nil, nil
}

func (m *MockStore) BatchWrite(ctx context.Context, op BatchOp, items []Record) error {
	if m.BatchWriteFn != nil {
		return m.BatchWriteFn(ctx, op, items)
	}
	return nil
}
