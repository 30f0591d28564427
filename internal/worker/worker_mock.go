package worker

import (
	"context"
	"io"
	"sync"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

type mockThumbnailService struct {
	getFn       func(ctx context.Context, id string) (*model.Render, error)
	saveThumbFn func(ctx context.Context, id string, key string) error
}

func (m *mockThumbnailService) GetRender(ctx context.Context, id string) (*model.Render, error) {
	return m.getFn(ctx, id)
}

func (m *mockThumbnailService) SaveThumbnail(ctx context.Context, id string, key string) error {
	return m.saveThumbFn(ctx, id, key)
}

//----------------------------------

type mockStorage struct {
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, key)
}

//----------------------------------

type mockCommitter struct {
	mu        sync.Mutex
	committed []string
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, string(msg.Key))
	return nil
}

func (m *mockCommitter) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.committed...)
}
