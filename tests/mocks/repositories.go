package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/domain/events"
)

// MockThoughtRepository is a testify mock of ports.ThoughtRepository
type MockThoughtRepository struct {
	mock.Mock
}

func (m *MockThoughtRepository) Create(ctx context.Context, thought *entities.Thought) error {
	args := m.Called(ctx, thought)
	return args.Error(0)
}

func (m *MockThoughtRepository) GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	args := m.Called(ctx, id)
	return thoughtAt(args, 0), args.Error(1)
}

func (m *MockThoughtRepository) GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error) {
	args := m.Called(ctx, ids)
	thoughts, _ := args.Get(0).([]*entities.Thought)
	return thoughts, args.Error(1)
}

func (m *MockThoughtRepository) List(ctx context.Context) ([]*entities.Thought, error) {
	args := m.Called(ctx)
	thoughts, _ := args.Get(0).([]*entities.Thought)
	return thoughts, args.Error(1)
}

func (m *MockThoughtRepository) UpdateText(ctx context.Context, id valueobjects.ThoughtID, text string, updatedAt time.Time) (*entities.Thought, error) {
	args := m.Called(ctx, id, text, updatedAt)
	return thoughtAt(args, 0), args.Error(1)
}

func (m *MockThoughtRepository) Delete(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	args := m.Called(ctx, id)
	return thoughtAt(args, 0), args.Error(1)
}

func (m *MockThoughtRepository) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockThoughtRepository) AddReaction(ctx context.Context, id valueobjects.ThoughtID, reaction entities.Reaction) (*entities.Thought, bool, error) {
	args := m.Called(ctx, id, reaction)
	return thoughtAt(args, 0), args.Bool(1), args.Error(2)
}

func (m *MockThoughtRepository) RemoveReaction(ctx context.Context, id valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, bool, error) {
	args := m.Called(ctx, id, reactionID)
	return thoughtAt(args, 0), args.Bool(1), args.Error(2)
}

func (m *MockThoughtRepository) ClearReactions(ctx context.Context, id valueobjects.ThoughtID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserRepository is a testify mock of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	args := m.Called(ctx, id)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*entities.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*entities.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id valueobjects.UserID, username, email string, updatedAt time.Time) (*entities.User, error) {
	args := m.Called(ctx, id, username, email, updatedAt)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	args := m.Called(ctx, id, thoughtID)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUserRepository) UnlinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	args := m.Called(ctx, id, thoughtID)
	return userAt(args, 0), args.Error(1)
}

func (m *MockUserRepository) AddFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	args := m.Called(ctx, id, friendID)
	return userAt(args, 0), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) RemoveFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	args := m.Called(ctx, id, friendID)
	return userAt(args, 0), args.Bool(1), args.Error(2)
}

// MockEventPublisher is a testify mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockMetricsRecorder is a testify mock of ports.MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	m.Called(ctx, operation, duration, err)
}

func (m *MockMetricsRecorder) RecordCount(ctx context.Context, metric string, value float64, dimensions map[string]string) {
	m.Called(ctx, metric, value, dimensions)
}

func thoughtAt(args mock.Arguments, i int) *entities.Thought {
	t, _ := args.Get(i).(*entities.Thought)
	return t
}

func userAt(args mock.Arguments, i int) *entities.User {
	u, _ := args.Get(i).(*entities.User)
	return u
}
