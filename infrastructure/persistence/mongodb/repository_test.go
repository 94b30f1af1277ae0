package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/tests/fixtures"
)

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func asDocument(t testing.TB, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

// modified answers a findAndModify with the document after the update
func modified(doc bson.D) bson.D {
	return bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: doc}}
}

// unmatched answers a findAndModify whose filter matched nothing
func unmatched() bson.D {
	return mtest.CreateSuccessResponse()
}

func found(mt *mtest.T, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, docs...)
}

func mockReaction(t testing.TB, id string) entities.Reaction {
	t.Helper()
	thought := fixtures.NewThoughtBuilder().WithReaction(id, "nice", "bob").Build()
	return thought.Reactions()[0]
}

func TestThoughtRepository_AddReaction(t *testing.T) {
	mt := newMockT(t)

	mt.Run("new reaction changes the set", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		after := fixtures.NewThoughtBuilder().WithReaction("r1", "nice", "bob").Build()
		mt.AddMockResponses(modified(asDocument(mt, newThoughtDocument(after))))

		got, changed, err := repo.AddReaction(context.Background(), after.ID(), mockReaction(mt, "r1"))

		require.NoError(mt, err)
		assert.True(mt, changed)
		assert.Equal(mt, 1, got.ReactionCount())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "r1", started.Command.Lookup("query", "reactions.reactionId", "$ne").StringValue())
	})

	mt.Run("present reaction leaves the set unchanged", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		current := fixtures.NewThoughtBuilder().WithReaction("r1", "nice", "bob").Build()
		mt.AddMockResponses(unmatched(), found(mt, asDocument(mt, newThoughtDocument(current))))

		got, changed, err := repo.AddReaction(context.Background(), current.ID(), mockReaction(mt, "r1"))

		require.NoError(mt, err)
		assert.False(mt, changed)
		assert.Equal(mt, current.ID(), got.ID())
		assert.Equal(mt, 1, got.ReactionCount())
	})

	mt.Run("missing thought is not found", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(unmatched(), found(mt))

		_, changed, err := repo.AddReaction(context.Background(), valueobjects.NewThoughtID(), mockReaction(mt, "r1"))

		assert.False(mt, changed)
		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityThought))
	})

	mt.Run("driver failure is a store error", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		_, _, err := repo.AddReaction(context.Background(), valueobjects.NewThoughtID(), mockReaction(mt, "r1"))

		require.True(mt, pkgerrors.IsStore(err))
		assert.Equal(mt, "BadValue", pkgerrors.GetAppError(err).Code)
	})
}

func TestThoughtRepository_RemoveReaction(t *testing.T) {
	mt := newMockT(t)
	reactionID, err := valueobjects.NewReactionIDFromString("r1")
	require.NoError(t, err)

	mt.Run("present reaction is pulled", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		after := fixtures.NewThoughtBuilder().Build()
		mt.AddMockResponses(modified(asDocument(mt, newThoughtDocument(after))))

		got, changed, err := repo.RemoveReaction(context.Background(), after.ID(), reactionID)

		require.NoError(mt, err)
		assert.True(mt, changed)
		assert.Equal(mt, 0, got.ReactionCount())
	})

	mt.Run("absent reaction is unchanged", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		current := fixtures.NewThoughtBuilder().WithReaction("r2", "nice", "bob").Build()
		mt.AddMockResponses(unmatched(), found(mt, asDocument(mt, newThoughtDocument(current))))

		got, changed, err := repo.RemoveReaction(context.Background(), current.ID(), reactionID)

		require.NoError(mt, err)
		assert.False(mt, changed)
		assert.Equal(mt, 1, got.ReactionCount())
	})

	mt.Run("missing thought is not found", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(unmatched(), found(mt))

		_, _, err := repo.RemoveReaction(context.Background(), valueobjects.NewThoughtID(), reactionID)

		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityThought))
	})
}

func TestThoughtRepository_DeleteBatch(t *testing.T) {
	mt := newMockT(t)

	mt.Run("deletes by id list", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		ids := []valueobjects.ThoughtID{valueobjects.NewThoughtID(), valueobjects.NewThoughtID()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.DeleteBatch(context.Background(), ids)

		require.NoError(mt, err, "ids that are already gone are ignored")
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "delete", started.CommandName)
	})

	mt.Run("driver failure is a store error", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		err := repo.DeleteBatch(context.Background(), []valueobjects.ThoughtID{valueobjects.NewThoughtID()})

		assert.True(mt, pkgerrors.IsStore(err))
	})
}

func TestThoughtRepository_Create_DuplicateID(t *testing.T) {
	mt := newMockT(t)

	mt.Run("duplicate key", func(mt *mtest.T) {
		repo := &ThoughtRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), fixtures.NewThoughtBuilder().Build())

		require.True(mt, pkgerrors.IsStore(err))
		assert.Equal(mt, "duplicate id", pkgerrors.GetAppError(err).Details["reason"])
	})
}

func TestUserRepository_AddFriend(t *testing.T) {
	mt := newMockT(t)
	friend := valueobjects.NewUserID()

	mt.Run("new friend changes the set", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		after := fixtures.NewUserBuilder().WithFriends(friend).Build()
		mt.AddMockResponses(modified(asDocument(mt, newUserDocument(after))))

		got, changed, err := repo.AddFriend(context.Background(), after.ID(), friend)

		require.NoError(mt, err)
		assert.True(mt, changed)
		assert.True(mt, got.HasFriend(friend))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, friend.String(), started.Command.Lookup("query", "friends", "$ne").StringValue())
	})

	mt.Run("present friend is unchanged", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		current := fixtures.NewUserBuilder().WithFriends(friend).Build()
		mt.AddMockResponses(unmatched(), found(mt, asDocument(mt, newUserDocument(current))))

		got, changed, err := repo.AddFriend(context.Background(), current.ID(), friend)

		require.NoError(mt, err)
		assert.False(mt, changed)
		assert.Equal(mt, 1, got.FriendCount())
	})

	mt.Run("missing user is not found", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(unmatched(), found(mt))

		_, changed, err := repo.AddFriend(context.Background(), valueobjects.NewUserID(), friend)

		assert.False(mt, changed)
		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
	})
}

func TestUserRepository_RemoveFriend(t *testing.T) {
	mt := newMockT(t)
	friend := valueobjects.NewUserID()

	mt.Run("member is pulled", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		after := fixtures.NewUserBuilder().Build()
		mt.AddMockResponses(modified(asDocument(mt, newUserDocument(after))))

		got, removed, err := repo.RemoveFriend(context.Background(), after.ID(), friend)

		require.NoError(mt, err)
		assert.True(mt, removed)
		assert.Equal(mt, 0, got.FriendCount())
	})

	mt.Run("non-member reports not removed", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		other := valueobjects.NewUserID()
		current := fixtures.NewUserBuilder().WithFriends(other).Build()
		mt.AddMockResponses(unmatched(), found(mt, asDocument(mt, newUserDocument(current))))

		got, removed, err := repo.RemoveFriend(context.Background(), current.ID(), friend)

		require.NoError(mt, err)
		assert.False(mt, removed)
		assert.True(mt, got.HasFriend(other))
	})

	mt.Run("missing user is not found", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(unmatched(), found(mt))

		_, removed, err := repo.RemoveFriend(context.Background(), valueobjects.NewUserID(), friend)

		assert.False(mt, removed)
		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
	})
}

func TestUserRepository_LinkThought(t *testing.T) {
	mt := newMockT(t)
	thoughtID := valueobjects.NewThoughtID()

	mt.Run("already linked keeps one entry", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		current := fixtures.NewUserBuilder().WithThoughts(thoughtID).Build()
		mt.AddMockResponses(unmatched(), found(mt, asDocument(mt, newUserDocument(current))))

		got, err := repo.LinkThought(context.Background(), current.ID(), thoughtID)

		require.NoError(mt, err)
		assert.Equal(mt, []valueobjects.ThoughtID{thoughtID}, got.ThoughtIDs())
	})

	mt.Run("missing user is not found", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(unmatched(), found(mt))

		_, err := repo.LinkThought(context.Background(), valueobjects.NewUserID(), thoughtID)

		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
	})
}

func TestUserRepository_Delete(t *testing.T) {
	mt := newMockT(t)

	mt.Run("missing user is not found", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll, logger: zap.NewNop()}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), valueobjects.NewUserID())

		assert.True(mt, pkgerrors.IsNotFoundEntity(err, pkgerrors.EntityUser))
	})
}
