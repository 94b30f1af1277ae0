package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/tests/fixtures"
)

func TestThoughtDocument_BSONRoundTrip(t *testing.T) {
	thought := fixtures.NewThoughtBuilder().
		WithReaction("r1", "nice", "bob").
		WithReaction("r2", "great", "carol").
		Build()

	raw, err := bson.Marshal(newThoughtDocument(thought))
	require.NoError(t, err)

	var doc thoughtDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toEntity()

	require.NoError(t, err)
	assert.Equal(t, thought.Snapshot(), got.Snapshot())
}

func TestThoughtDocument_UsesStringIDs(t *testing.T) {
	thought := fixtures.NewThoughtBuilder().Build()

	raw, err := bson.Marshal(newThoughtDocument(thought))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, thought.ID().String(), m["_id"])
	assert.Equal(t, thought.OwnerID().String(), m["userId"])
	assert.Empty(t, m["reactions"])
}

func TestUserDocument_BSONRoundTrip(t *testing.T) {
	user := fixtures.NewUserBuilder().
		WithThoughts(valueobjects.NewThoughtID(), valueobjects.NewThoughtID()).
		WithFriends(valueobjects.NewUserID()).
		Build()

	raw, err := bson.Marshal(newUserDocument(user))
	require.NoError(t, err)

	var doc userDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toEntity()

	require.NoError(t, err)
	assert.Equal(t, user.Snapshot(), got.Snapshot())
}

func TestUserDocument_RejectsBadReferences(t *testing.T) {
	doc := newUserDocument(fixtures.NewUserBuilder().Build())
	doc.Friends = []string{"not-a-uuid"}

	_, err := doc.toEntity()

	assert.Error(t, err)
}
