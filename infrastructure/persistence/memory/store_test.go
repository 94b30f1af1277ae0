package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/tests/fixtures"
)

func TestThoughtRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Thoughts()
	thought := fixtures.NewThoughtBuilder().WithText("hi").Build()

	require.NoError(t, repo.Create(ctx, thought))
	assert.True(t, pkgerrors.IsStore(repo.Create(ctx, thought)), "duplicate id must be rejected")

	got, err := repo.GetByID(ctx, thought.ID())
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text())

	updated, err := repo.UpdateText(ctx, thought.ID(), "hello", fixtures.BaseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Text())
	assert.True(t, updated.IsOwnedBy(thought.OwnerID()))

	deleted, err := repo.Delete(ctx, thought.ID())
	require.NoError(t, err)
	assert.Equal(t, thought.ID(), deleted.ID())

	_, err = repo.GetByID(ctx, thought.ID())
	assert.True(t, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityThought))

	_, err = repo.Delete(ctx, thought.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestThoughtRepository_GetByIDsSkipsMissingAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Thoughts()
	a := fixtures.NewThoughtBuilder().Build()
	b := fixtures.NewThoughtBuilder().Build()
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByIDs(ctx, []valueobjects.ThoughtID{b.ID(), valueobjects.NewThoughtID(), a.ID()})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID(), got[0].ID())
	assert.Equal(t, a.ID(), got[1].ID())
}

func TestThoughtRepository_ReactionSet(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Thoughts()
	thought := fixtures.NewThoughtBuilder().Build()
	require.NoError(t, repo.Create(ctx, thought))

	rid, err := valueobjects.NewReactionIDFromString("r1")
	require.NoError(t, err)
	reaction, err := entities.NewReaction(rid, "nice", "bob", fixtures.BaseTime)
	require.NoError(t, err)

	updated, changed, err := repo.AddReaction(ctx, thought.ID(), reaction)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, updated.ReactionCount())

	updated, changed, err = repo.AddReaction(ctx, thought.ID(), reaction)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, updated.ReactionCount())

	require.NoError(t, repo.ClearReactions(ctx, thought.ID()))
	got, err := repo.GetByID(ctx, thought.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReactionCount())

	_, changed, err = repo.RemoveReaction(ctx, thought.ID(), rid)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = repo.AddReaction(ctx, valueobjects.NewThoughtID(), reaction)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestThoughtRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Thoughts()
	thought := fixtures.NewThoughtBuilder().Build()
	require.NoError(t, repo.Create(ctx, thought))

	got, err := repo.GetByID(ctx, thought.ID())
	require.NoError(t, err)
	got.ClearReactions()
	require.NoError(t, got.UpdateText("changed locally", fixtures.BaseTime))

	again, err := repo.GetByID(ctx, thought.ID())
	require.NoError(t, err)
	assert.Equal(t, thought.Text(), again.Text())
}

func TestUserRepository_Sets(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()
	user := fixtures.NewUserBuilder().Build()
	require.NoError(t, repo.Create(ctx, user))

	friend := valueobjects.NewUserID()
	_, changed, err := repo.AddFriend(ctx, user.ID(), friend)
	require.NoError(t, err)
	assert.True(t, changed)

	got, changed, err := repo.AddFriend(ctx, user.ID(), friend)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, got.FriendCount())

	_, removed, err := repo.RemoveFriend(ctx, user.ID(), valueobjects.NewUserID())
	require.NoError(t, err)
	assert.False(t, removed)

	got, removed, err = repo.RemoveFriend(ctx, user.ID(), friend)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, got.FriendCount())

	a, b := valueobjects.NewThoughtID(), valueobjects.NewThoughtID()
	_, err = repo.LinkThought(ctx, user.ID(), a)
	require.NoError(t, err)
	_, err = repo.LinkThought(ctx, user.ID(), b)
	require.NoError(t, err)
	got, err = repo.LinkThought(ctx, user.ID(), a)
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ThoughtID{a, b}, got.ThoughtIDs())

	got, err = repo.UnlinkThought(ctx, user.ID(), a)
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ThoughtID{b}, got.ThoughtIDs())

	_, err = repo.LinkThought(ctx, valueobjects.NewUserID(), a)
	assert.True(t, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
}

func TestUserRepository_ConcurrentFriendAdds(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()
	user := fixtures.NewUserBuilder().Build()
	require.NoError(t, repo.Create(ctx, user))
	friend := valueobjects.NewUserID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = repo.AddFriend(ctx, user.ID(), friend)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.FriendCount())
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore().Users().List(ctx)
	assert.True(t, pkgerrors.IsStore(err))
}
