package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/services"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/infrastructure/persistence/memory"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/tests/fixtures"
	"thoughtgraph/tests/mocks"
)

type coordinatorDeps struct {
	thoughts  *mocks.MockThoughtRepository
	users     *mocks.MockUserRepository
	publisher *mocks.MockEventPublisher
	metrics   *mocks.MockMetricsRecorder
}

func newCoordinator(t *testing.T) (*services.IntegrityCoordinator, *coordinatorDeps) {
	t.Helper()
	deps := &coordinatorDeps{
		thoughts:  new(mocks.MockThoughtRepository),
		users:     new(mocks.MockUserRepository),
		publisher: new(mocks.MockEventPublisher),
		metrics:   new(mocks.MockMetricsRecorder),
	}
	deps.publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(nil).Maybe()
	deps.metrics.On("RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	deps.metrics.On("RecordCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()

	logger := zap.NewNop()
	thoughts := services.NewThoughtStore(deps.thoughts, logger, time.Second)
	reactions := services.NewReactionSet(deps.thoughts, deps.publisher, logger, time.Second)
	coordinator := services.NewIntegrityCoordinator(thoughts, reactions, deps.users, deps.publisher, deps.metrics, logger, time.Second)
	return coordinator, deps
}

func TestCreateThoughtAndLink_LinkStoreFailureCompensates(t *testing.T) {
	// Arrange
	coordinator, deps := newCoordinator(t)
	owner := valueobjects.NewUserID()
	var created *entities.Thought

	deps.thoughts.On("Create", mock.Anything, mock.AnythingOfType("*entities.Thought")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*entities.Thought) }).
		Return(nil)
	deps.users.On("LinkThought", mock.Anything, owner, mock.Anything).
		Return(nil, pkgerrors.NewStoreError("link_thought", errors.New("throttled")))
	deps.thoughts.On("Delete", mock.Anything, mock.Anything).
		Return(fixtures.NewThoughtBuilder().Build(), nil)

	// Act
	_, err := coordinator.CreateThoughtAndLink(context.Background(), services.CreateThoughtPayload{
		ThoughtText: "hi",
		UserID:      owner.String(),
	})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
	require.NotNil(t, created)
	deps.thoughts.AssertCalled(t, "Delete", mock.Anything, created.ID())
	assert.NotContains(t, pkgerrors.GetAppError(err).Details, "orphanThoughtId")
	deps.publisher.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)
	deps.metrics.AssertCalled(t, "RecordCount", mock.Anything, services.MetricCompensations, float64(1), mock.Anything)
}

func TestCreateThoughtAndLink_MissingOwnerIsUserNotFound(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	owner := valueobjects.NewUserID()

	deps.thoughts.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.users.On("LinkThought", mock.Anything, owner, mock.Anything).
		Return(nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, owner.String()))
	deps.thoughts.On("Delete", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, "x"))

	_, err := coordinator.CreateThoughtAndLink(context.Background(), services.CreateThoughtPayload{
		ThoughtText: "hi",
		UserID:      owner.String(),
	})

	assert.True(t, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
	assert.NotContains(t, pkgerrors.GetAppError(err).Details, "orphanThoughtId",
		"a thought that is already gone counts as compensated")
}

func TestCreateThoughtAndLink_CompensationFailureReportsOrphan(t *testing.T) {
	// Arrange
	coordinator, deps := newCoordinator(t)
	owner := valueobjects.NewUserID()
	var created *entities.Thought

	deps.thoughts.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*entities.Thought) }).
		Return(nil)
	deps.users.On("LinkThought", mock.Anything, owner, mock.Anything).
		Return(nil, pkgerrors.NewStoreError("link_thought", errors.New("timeout")))
	deps.thoughts.On("Delete", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewStoreError("delete_thought", errors.New("timeout")))

	// Act
	_, err := coordinator.CreateThoughtAndLink(context.Background(), services.CreateThoughtPayload{
		ThoughtText: "hi",
		UserID:      owner.String(),
	})

	// Assert
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeStore, appErr.Type)
	assert.Equal(t, created.ID().String(), appErr.Details["orphanThoughtId"])
	deps.metrics.AssertCalled(t, "RecordCount", mock.Anything, services.MetricCompensationFailed, float64(1), mock.Anything)
}

func TestCreateThoughtAndLink_InvalidPayloadWritesNothing(t *testing.T) {
	coordinator, deps := newCoordinator(t)

	_, err := coordinator.CreateThoughtAndLink(context.Background(), services.CreateThoughtPayload{
		ThoughtText: "",
		UserID:      valueobjects.NewUserID().String(),
	})

	assert.True(t, pkgerrors.IsValidation(err))
	deps.thoughts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	deps.users.AssertNotCalled(t, "LinkThought", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateThoughtAndLink_PublishFailureDoesNotFail(t *testing.T) {
	deps := &coordinatorDeps{
		thoughts:  new(mocks.MockThoughtRepository),
		users:     new(mocks.MockUserRepository),
		publisher: new(mocks.MockEventPublisher),
	}
	logger := zap.NewNop()
	thoughts := services.NewThoughtStore(deps.thoughts, logger, time.Second)
	reactions := services.NewReactionSet(deps.thoughts, deps.publisher, logger, time.Second)
	coordinator := services.NewIntegrityCoordinator(thoughts, reactions, deps.users, deps.publisher, nil, logger, time.Second)

	owner := fixtures.NewUserBuilder().Build()
	deps.thoughts.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.users.On("LinkThought", mock.Anything, owner.ID(), mock.Anything).Return(owner, nil)
	deps.publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(errors.New("bus unavailable"))

	thought, err := coordinator.CreateThoughtAndLink(context.Background(), services.CreateThoughtPayload{
		ThoughtText: "hi",
		UserID:      owner.ID().String(),
	})

	require.NoError(t, err)
	assert.True(t, thought.IsOwnedBy(owner.ID()))
	deps.publisher.AssertExpectations(t)
}

func TestDeleteUserCascade_ClearFailureIsWarning(t *testing.T) {
	// Arrange
	coordinator, deps := newCoordinator(t)
	user := fixtures.NewUserBuilder().Build()
	first := fixtures.NewThoughtBuilder().WithOwner(user.ID()).WithReaction("r1", "nice", "bob").Build()
	second := fixtures.NewThoughtBuilder().WithOwner(user.ID()).Build()
	user = fixtures.NewUserBuilder().WithID(user.ID()).WithThoughts(first.ID(), second.ID()).Build()
	ids := []valueobjects.ThoughtID{first.ID(), second.ID()}

	deps.users.On("GetByID", mock.Anything, user.ID()).Return(user, nil)
	deps.thoughts.On("GetByIDs", mock.Anything, ids).Return([]*entities.Thought{first, second}, nil)
	deps.thoughts.On("ClearReactions", mock.Anything, first.ID()).Return(pkgerrors.NewStoreError("clear_reactions", errors.New("throttled")))
	deps.thoughts.On("ClearReactions", mock.Anything, second.ID()).Return(nil)
	deps.thoughts.On("DeleteBatch", mock.Anything, ids).Return(nil)
	deps.users.On("Delete", mock.Anything, user.ID()).Return(nil)

	// Act
	result, err := coordinator.DeleteUserCascade(context.Background(), user.ID())

	// Assert
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], first.ID().String())
	assert.Equal(t, []string{first.ID().String(), second.ID().String()}, result.DeletedThoughtIDs)
	deps.users.AssertExpectations(t)
	deps.thoughts.AssertExpectations(t)
}

func TestDeleteUserCascade_BulkDeleteFailureKeepsUser(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	thought := fixtures.NewThoughtBuilder().Build()
	user := fixtures.NewUserBuilder().WithThoughts(thought.ID()).Build()
	thought = fixtures.NewThoughtBuilder().WithID(thought.ID()).WithOwner(user.ID()).Build()

	deps.users.On("GetByID", mock.Anything, user.ID()).Return(user, nil)
	deps.thoughts.On("GetByIDs", mock.Anything, mock.Anything).Return([]*entities.Thought{thought}, nil)
	deps.thoughts.On("ClearReactions", mock.Anything, thought.ID()).Return(nil)
	deps.thoughts.On("DeleteBatch", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := coordinator.DeleteUserCascade(context.Background(), user.ID())

	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
	assert.Equal(t, "delete_thoughts", pkgerrors.GetAppError(err).Details["step"])
	deps.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)
}

func TestDeleteUserCascade_UserDeleteFailureIsFatal(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	user := fixtures.NewUserBuilder().Build()

	deps.users.On("GetByID", mock.Anything, user.ID()).Return(user, nil)
	deps.users.On("Delete", mock.Anything, user.ID()).
		Return(pkgerrors.NewStoreError("delete_user", errors.New("throttled")))

	_, err := coordinator.DeleteUserCascade(context.Background(), user.ID())

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	assert.Equal(t, pkgerrors.ErrorTypeStore, appErr.Type)
	assert.Equal(t, "delete_user", appErr.Details["step"])
	deps.thoughts.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestDeleteUserCascade_LoadFailureHasNoSideEffects(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	user := fixtures.NewUserBuilder().WithThoughts(valueobjects.NewThoughtID()).Build()

	deps.users.On("GetByID", mock.Anything, user.ID()).Return(user, nil)
	deps.thoughts.On("GetByIDs", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewStoreError("get_thoughts", errors.New("throttled")))

	_, err := coordinator.DeleteUserCascade(context.Background(), user.ID())

	assert.True(t, pkgerrors.IsStore(err))
	deps.thoughts.AssertNotCalled(t, "ClearReactions", mock.Anything, mock.Anything)
	deps.thoughts.AssertNotCalled(t, "DeleteBatch", mock.Anything, mock.Anything)
	deps.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteThoughtAndUnlink_UnlinkFailureIsTolerated(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	thought := fixtures.NewThoughtBuilder().Build()

	deps.thoughts.On("Delete", mock.Anything, thought.ID()).Return(thought, nil)
	deps.users.On("UnlinkThought", mock.Anything, thought.OwnerID(), thought.ID()).
		Return(nil, pkgerrors.NewStoreError("unlink_thought", errors.New("throttled")))

	deleted, err := coordinator.DeleteThoughtAndUnlink(context.Background(), thought.ID())

	require.NoError(t, err)
	assert.Equal(t, thought.ID(), deleted.ID())
	deps.users.AssertExpectations(t)
}

func TestDeleteThoughtAndUnlink_MissingThought(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	id := valueobjects.NewThoughtID()

	deps.thoughts.On("Delete", mock.Anything, id).
		Return(nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String()))

	_, err := coordinator.DeleteThoughtAndUnlink(context.Background(), id)

	assert.True(t, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityThought))
	deps.users.AssertNotCalled(t, "UnlinkThought", mock.Anything, mock.Anything, mock.Anything)
}

func TestStoreCallsRunUnderDeadline(t *testing.T) {
	coordinator, deps := newCoordinator(t)
	id := valueobjects.NewThoughtID()
	thought := fixtures.NewThoughtBuilder().WithID(id).Build()

	deps.thoughts.On("Delete", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), id).Return(thought, nil)
	deps.users.On("UnlinkThought", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	_, err := coordinator.DeleteThoughtAndUnlink(context.Background(), id)

	require.NoError(t, err)
	deps.thoughts.AssertExpectations(t)
}

// cancellingUsers cancels the request context before linking, as a client
// disconnect during the link step would
type cancellingUsers struct {
	ports.UserRepository
	cancel context.CancelFunc
}

func (r *cancellingUsers) LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	r.cancel()
	return r.UserRepository.LinkThought(ctx, id, thoughtID)
}

func TestCreateThoughtAndLink_CancelledRequestLeavesNoOrphan(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	setup := buildGraph(store.Thoughts(), store.Users(), ports.NoopPublisher{}, nil)
	owner, err := setup.CreateUser(context.Background(), services.UserPayload{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	graph := buildGraph(store.Thoughts(), &cancellingUsers{UserRepository: store.Users(), cancel: cancel}, ports.NoopPublisher{}, nil)

	// Act
	_, err = graph.CreateThought(ctx, services.CreateThoughtPayload{ThoughtText: "hi", UserID: owner.ID().String()})

	// Assert
	require.Error(t, err)
	assert.NotContains(t, pkgerrors.GetAppError(err).Details, "orphanThoughtId")

	thoughts, err := setup.ListThoughts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, thoughts)
}

// flakyThoughts deletes the first id of the first batch and then fails it
type flakyThoughts struct {
	ports.ThoughtRepository
	failed bool
}

func (r *flakyThoughts) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	if !r.failed && len(ids) > 0 {
		r.failed = true
		if _, err := r.ThoughtRepository.Delete(ctx, ids[0]); err != nil {
			return err
		}
		return errors.New("connection reset")
	}
	return r.ThoughtRepository.DeleteBatch(ctx, ids)
}

func TestDeleteUserCascade_RerunAfterPartialFailureCompletes(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := memory.NewStore()
	graph := buildGraph(&flakyThoughts{ThoughtRepository: store.Thoughts()}, store.Users(), ports.NoopPublisher{}, nil)

	owner, err := graph.CreateUser(ctx, services.UserPayload{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	userID := owner.ID().String()

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		created, err := graph.CreateThought(ctx, services.CreateThoughtPayload{ThoughtText: text, UserID: userID})
		require.NoError(t, err)
		ids = append(ids, created.Thought.ID().String())
	}

	// The first thought disappears while its id is still referenced
	first, err := valueobjects.NewThoughtIDFromString(ids[0])
	require.NoError(t, err)
	_, err = store.Thoughts().Delete(ctx, first)
	require.NoError(t, err)

	// Act
	_, err = graph.DeleteUser(ctx, userID)
	require.Error(t, err)
	assert.Equal(t, "delete_thoughts", pkgerrors.GetAppError(err).Details["step"])

	_, err = graph.GetUser(ctx, userID)
	require.NoError(t, err, "user survives a failed bulk delete")

	result, err := graph.DeleteUser(ctx, userID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2]}, result.DeletedThoughtIDs)

	_, err = graph.GetUser(ctx, userID)
	assert.True(t, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))

	thoughts, err := graph.ListThoughts(ctx)
	require.NoError(t, err)
	assert.Empty(t, thoughts)
}

func TestStoreCallPastDeadlineIsTimeout(t *testing.T) {
	// Arrange
	repo := new(mocks.MockThoughtRepository)
	id := valueobjects.NewThoughtID()
	repo.On("GetByID", mock.Anything, id).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, pkgerrors.NewStoreError("get_thought", context.DeadlineExceeded))
	store := services.NewThoughtStore(repo, zap.NewNop(), 10*time.Millisecond)

	// Act
	_, err := store.GetByID(context.Background(), id)

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTimeout(err))
	assert.Equal(t, "get_thought", pkgerrors.GetAppError(err).Details["operation"])
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
