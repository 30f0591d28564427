package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn    func(ctx context.Context, r *model.Render) error
	getFn       func(ctx context.Context, id string) (*model.Render, error)
	getListFn   func(ctx context.Context, req *model.ListRequest) ([]model.Render, error)
	deleteFn    func(ctx context.Context, id string) error
	saveThumbFn func(ctx context.Context, id string, key string) error
}

func (m *mockRepo) Create(ctx context.Context, r *model.Render) error {
	return m.createFn(ctx, r)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.Render, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Render, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRepo) SaveThumbnail(ctx context.Context, id string, key string) error {
	return m.saveThumbFn(ctx, id, key)
}

// MOCK STORAGE

type mockStorage struct {
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFn(ctx, key)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK METRICS

type mockObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *mockObserver) ObserveApply(kind, outcome string, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, kind+"/"+outcome)
}

func (m *mockObserver) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}
