package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	"kaku/domain/events"
)

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// Published returns every event passed to Publish, in call order
func (m *MockEventPublisher) Published() []events.DomainEvent {
	var out []events.DomainEvent
	for _, c := range m.Calls {
		if c.Method == "Publish" {
			out = append(out, c.Arguments.Get(1).([]events.DomainEvent)...)
		}
	}
	return out
}

// MockPoIRepository is a mock implementation of ports.PoIRepository
type MockPoIRepository struct {
	mock.Mock
}

func (m *MockPoIRepository) Create(ctx context.Context, poi *entities.PoI) error {
	args := m.Called(ctx, poi)
	return args.Error(0)
}

func (m *MockPoIRepository) Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PoI), args.Error(1)
}

func (m *MockPoIRepository) GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PoI), args.Error(1)
}

func (m *MockPoIRepository) Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error {
	args := m.Called(ctx, poi, expectedVersion)
	return args.Error(0)
}

func (m *MockPoIRepository) SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error {
	args := m.Called(ctx, id, refuter)
	return args.Error(0)
}

func (m *MockPoIRepository) Delete(ctx context.Context, id valueobjects.PoIID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPoIRepository) ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PoI), args.Error(1)
}
