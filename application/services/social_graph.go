package services

import (
	"context"

	"thoughtgraph/domain/core/entities"
)

// CreateThoughtResult is returned by CreateThought
type CreateThoughtResult struct {
	Message string            `json:"message"`
	Thought *entities.Thought `json:"thought"`
	UserID  string            `json:"userId"`
}

// DeleteUserResult is returned by DeleteUser
type DeleteUserResult struct {
	Message string `json:"message"`
	CascadeResult
}

// RemoveFriendResult is returned by RemoveFriend. Removed is false when the
// friend was not in the set.
type RemoveFriendResult struct {
	Message string         `json:"message"`
	Removed bool           `json:"removed"`
	User    *entities.User `json:"user"`
}

// SocialGraph is the operation surface used by external callers. It parses
// raw ids, routes multi-document operations through the IntegrityCoordinator
// and everything else straight to the owning store.
type SocialGraph struct {
	thoughts    *ThoughtStore
	users       *UserStore
	reactions   *ReactionSet
	coordinator *IntegrityCoordinator
}

// NewSocialGraph creates the operation surface
func NewSocialGraph(
	thoughts *ThoughtStore,
	users *UserStore,
	reactions *ReactionSet,
	coordinator *IntegrityCoordinator,
) *SocialGraph {
	return &SocialGraph{
		thoughts:    thoughts,
		users:       users,
		reactions:   reactions,
		coordinator: coordinator,
	}
}

// ListThoughts returns every thought
func (g *SocialGraph) ListThoughts(ctx context.Context) ([]*entities.Thought, error) {
	return g.thoughts.List(ctx)
}

// GetThought returns one thought
func (g *SocialGraph) GetThought(ctx context.Context, thoughtID string) (*entities.Thought, error) {
	id, err := parseThoughtID("thoughtId", thoughtID)
	if err != nil {
		return nil, err
	}
	return g.thoughts.GetByID(ctx, id)
}

// CreateThought creates a thought and links it to its owner
func (g *SocialGraph) CreateThought(ctx context.Context, payload CreateThoughtPayload) (*CreateThoughtResult, error) {
	thought, err := g.coordinator.CreateThoughtAndLink(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &CreateThoughtResult{
		Message: "Thought created and linked to user",
		Thought: thought,
		UserID:  thought.OwnerID().String(),
	}, nil
}

// UpdateThought replaces the text of a thought
func (g *SocialGraph) UpdateThought(ctx context.Context, thoughtID string, payload UpdateThoughtPayload) (*entities.Thought, error) {
	id, err := parseThoughtID("thoughtId", thoughtID)
	if err != nil {
		return nil, err
	}
	return g.thoughts.UpdateByID(ctx, id, payload)
}

// DeleteThought deletes a thought and unlinks it from its owner
func (g *SocialGraph) DeleteThought(ctx context.Context, thoughtID string) (*entities.Thought, error) {
	id, err := parseThoughtID("thoughtId", thoughtID)
	if err != nil {
		return nil, err
	}
	return g.coordinator.DeleteThoughtAndUnlink(ctx, id)
}

// AddReaction adds a reaction to a thought
func (g *SocialGraph) AddReaction(ctx context.Context, thoughtID string, payload ReactionPayload) (*entities.Thought, error) {
	id, err := parseThoughtID("thoughtId", thoughtID)
	if err != nil {
		return nil, err
	}
	return g.reactions.AddReaction(ctx, id, payload)
}

// RemoveReaction removes a reaction from a thought
func (g *SocialGraph) RemoveReaction(ctx context.Context, thoughtID, reactionID string) (*entities.Thought, error) {
	id, err := parseThoughtID("thoughtId", thoughtID)
	if err != nil {
		return nil, err
	}
	rid, err := parseReactionID("reactionId", reactionID)
	if err != nil {
		return nil, err
	}
	return g.reactions.RemoveReaction(ctx, id, rid)
}

// ListUsers returns every user with thoughts resolved
func (g *SocialGraph) ListUsers(ctx context.Context) ([]*UserView, error) {
	return g.users.List(ctx)
}

// GetUser returns one user with thoughts resolved
func (g *SocialGraph) GetUser(ctx context.Context, userID string) (*UserView, error) {
	id, err := parseUserID("userId", userID)
	if err != nil {
		return nil, err
	}
	return g.users.GetByID(ctx, id)
}

// CreateUser creates a user
func (g *SocialGraph) CreateUser(ctx context.Context, payload UserPayload) (*entities.User, error) {
	return g.users.Create(ctx, payload)
}

// UpdateUser replaces username and email
func (g *SocialGraph) UpdateUser(ctx context.Context, userID string, payload UserPayload) (*entities.User, error) {
	id, err := parseUserID("userId", userID)
	if err != nil {
		return nil, err
	}
	return g.users.UpdateByID(ctx, id, payload)
}

// DeleteUser deletes a user and every thought it owns
func (g *SocialGraph) DeleteUser(ctx context.Context, userID string) (*DeleteUserResult, error) {
	id, err := parseUserID("userId", userID)
	if err != nil {
		return nil, err
	}
	result, err := g.users.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DeleteUserResult{
		Message:       "User and associated thoughts deleted",
		CascadeResult: *result,
	}, nil
}

// AddFriend adds friendID to the user's friend set
func (g *SocialGraph) AddFriend(ctx context.Context, userID, friendID string) (*entities.User, error) {
	id, err := parseUserID("userId", userID)
	if err != nil {
		return nil, err
	}
	fid, err := parseUserID("friendId", friendID)
	if err != nil {
		return nil, err
	}
	return g.users.AddFriend(ctx, id, fid)
}

// RemoveFriend removes friendID from the user's friend set
func (g *SocialGraph) RemoveFriend(ctx context.Context, userID, friendID string) (*RemoveFriendResult, error) {
	id, err := parseUserID("userId", userID)
	if err != nil {
		return nil, err
	}
	fid, err := parseUserID("friendId", friendID)
	if err != nil {
		return nil, err
	}

	user, removed, err := g.users.RemoveFriend(ctx, id, fid)
	if err != nil {
		return nil, err
	}

	message := "Friend removed"
	if !removed {
		message = "Friend was not in the friend list"
	}
	return &RemoveFriendResult{Message: message, Removed: removed, User: user}, nil
}
