package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		email     string
		wantField string
	}{
		{"valid", "alice", "alice@example.com", ""},
		{"missing username", "", "alice@example.com", "username"},
		{"missing email", "alice", "", "email"},
		{"bad email", "alice", "not-an-email", "email"},
		{"display name email", "alice", "Alice <alice@example.com>", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.username, tt.email, baseTime)
			if tt.wantField != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Equal(t, tt.wantField, pkgerrors.GetAppError(err).Details["field"])
				return
			}
			require.NoError(t, err)
			assert.Empty(t, user.ThoughtIDs())
			assert.Empty(t, user.FriendIDs())
		})
	}
}

func TestUser_LinkThoughtKeepsOrder(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", baseTime)
	require.NoError(t, err)

	a, b := valueobjects.NewThoughtID(), valueobjects.NewThoughtID()
	assert.True(t, user.LinkThought(a))
	assert.True(t, user.LinkThought(b))
	assert.False(t, user.LinkThought(a))

	assert.Equal(t, []valueobjects.ThoughtID{a, b}, user.ThoughtIDs())

	assert.True(t, user.UnlinkThought(a))
	assert.False(t, user.UnlinkThought(a))
	assert.Equal(t, []valueobjects.ThoughtID{b}, user.ThoughtIDs())
}

func TestUser_Friends(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", baseTime)
	require.NoError(t, err)
	friend := valueobjects.NewUserID()

	assert.True(t, user.AddFriend(friend))
	assert.False(t, user.AddFriend(friend))
	assert.Equal(t, 1, user.FriendCount())

	assert.True(t, user.AddFriend(user.ID()))
	assert.True(t, user.HasFriend(user.ID()))
	assert.True(t, user.RemoveFriend(user.ID()))

	assert.False(t, user.RemoveFriend(valueobjects.NewUserID()))
	assert.True(t, user.RemoveFriend(friend))
	assert.Equal(t, 0, user.FriendCount())
}

func TestUser_MarshalJSON(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", baseTime)
	require.NoError(t, err)
	user.AddFriend(valueobjects.NewUserID())

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "alice", decoded["username"])
	assert.EqualValues(t, 1, decoded["friendCount"])
	assert.Len(t, decoded["friends"], 1)
	assert.Empty(t, decoded["thoughts"])
}
