// Package brokertest provides a testify mock of the message bus.
package brokertest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"ingest/pkg/models"
)

// MockBus is a testify mock implementing broker.Bus. Published records are also
// recorded in call order so tests can assert on what reached the bus.
type MockBus struct {
	mock.Mock

	mu        sync.Mutex
	published []PublishedRecord
}

type PublishedRecord struct {
	Topic  string
	Record models.Record
}

func NewMockBus() *MockBus {
	return &MockBus{}
}

func (m *MockBus) Publish(ctx context.Context, topic string, rec models.Record) error {
	err := m.Called(ctx, topic, rec).Error(0)
	if err == nil {
		m.mu.Lock()
		m.published = append(m.published, PublishedRecord{Topic: topic, Record: rec})
		m.mu.Unlock()
	}
	return err
}

func (m *MockBus) Published() []PublishedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedRecord, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockBus) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBus) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBus) Name() string {
	return "mock"
}

func (m *MockBus) Close() error {
	return nil
}
