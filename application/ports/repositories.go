package ports

import (
	"context"
	"time"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
)

// ThoughtRepository defines the interface for thought persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation.
// Every method touches a single document and is atomic on its own.
// Missing documents are reported as NotFound errors, driver failures as StoreErrors.
type ThoughtRepository interface {
	// Create persists a new thought; the id must not exist yet
	Create(ctx context.Context, thought *entities.Thought) error

	// GetByID retrieves a thought by its ID
	GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error)

	// GetByIDs retrieves the thoughts that still exist, in the order of ids
	GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error)

	// List retrieves every thought
	List(ctx context.Context) ([]*entities.Thought, error)

	// UpdateText replaces the text of a thought and returns the stored result
	UpdateText(ctx context.Context, id valueobjects.ThoughtID, text string, updatedAt time.Time) (*entities.Thought, error)

	// Delete removes a thought together with its reactions and returns what was removed
	Delete(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error)

	// DeleteBatch removes the thoughts; ids that no longer exist are ignored
	DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error

	// AddReaction inserts the reaction unless its id is already present and
	// reports whether the set changed
	AddReaction(ctx context.Context, id valueobjects.ThoughtID, reaction entities.Reaction) (*entities.Thought, bool, error)

	// RemoveReaction removes every reaction carrying reactionID and reports
	// whether the set changed
	RemoveReaction(ctx context.Context, id valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, bool, error)

	// ClearReactions empties the reaction set of a thought
	ClearReactions(ctx context.Context, id valueobjects.ThoughtID) error
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create persists a new user; the id must not exist yet
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by its ID
	GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error)

	// List retrieves every user
	List(ctx context.Context) ([]*entities.User, error)

	// UpdateProfile replaces username and email and returns the stored result
	UpdateProfile(ctx context.Context, id valueobjects.UserID, username, email string, updatedAt time.Time) (*entities.User, error)

	// Delete removes a user document
	Delete(ctx context.Context, id valueobjects.UserID) error

	// LinkThought appends the thought id to the owned set unless present
	LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error)

	// UnlinkThought removes the thought id from the owned set
	UnlinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error)

	// AddFriend adds friendID to the friend set unless present and reports
	// whether the set changed
	AddFriend(ctx context.Context, id valueobjects.UserID, friendID valueobjects.UserID) (*entities.User, bool, error)

	// RemoveFriend removes friendID and reports whether it was a member
	RemoveFriend(ctx context.Context, id valueobjects.UserID, friendID valueobjects.UserID) (*entities.User, bool, error)
}

// HealthChecker is implemented by store adapters that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}
