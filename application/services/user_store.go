package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/domain/events"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"
)

// UserView is a user with its owned thought references resolved
type UserView struct {
	User     *entities.User
	Thoughts []*entities.Thought
}

// MarshalJSON emits the user with thought documents in place of ids
func (v *UserView) MarshalJSON() ([]byte, error) {
	thoughts := make([]entities.ThoughtSnapshot, len(v.Thoughts))
	for i, t := range v.Thoughts {
		thoughts[i] = t.Snapshot()
	}
	return json.Marshal(struct {
		entities.UserSnapshot
		Thoughts []entities.ThoughtSnapshot `json:"thoughts"`
	}{
		UserSnapshot: v.User.Snapshot(),
		Thoughts:     thoughts,
	})
}

// UserDeleter removes a user together with everything it owns
type UserDeleter interface {
	DeleteUserCascade(ctx context.Context, id valueobjects.UserID) (*CascadeResult, error)
}

// UserStore provides CRUD on user documents plus the friend set operations
type UserStore struct {
	users       ports.UserRepository
	thoughts    *ThoughtStore
	deleter     UserDeleter
	publisher   ports.EventPublisher
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewUserStore creates a new user store. Deletion is delegated to deleter.
func NewUserStore(
	users ports.UserRepository,
	thoughts *ThoughtStore,
	deleter UserDeleter,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	callTimeout time.Duration,
) *UserStore {
	return &UserStore{
		users:       users,
		thoughts:    thoughts,
		deleter:     deleter,
		publisher:   publisher,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// Create persists a user with empty thought and friend sets
func (s *UserStore) Create(ctx context.Context, payload UserPayload) (*entities.User, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}

	user, err := entities.NewUser(payload.Username, payload.Email, utils.NowUTC())
	if err != nil {
		return nil, err
	}

	if err := execStore(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	}); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.NewUserCreated(user.ID(), user.Username(), user.CreatedAt()))
	return user, nil
}

// GetByID retrieves a user with its thoughts resolved
func (s *UserStore) GetByID(ctx context.Context, id valueobjects.UserID) (*UserView, error) {
	user, err := callStore(ctx, s.callTimeout, func(ctx context.Context) (*entities.User, error) {
		return s.users.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	thoughts, err := s.thoughts.GetByIDs(ctx, user.ThoughtIDs())
	if err != nil {
		return nil, err
	}
	return &UserView{User: user, Thoughts: thoughts}, nil
}

// List retrieves every user with thoughts resolved. All referenced thoughts
// are fetched in one batch.
func (s *UserStore) List(ctx context.Context) ([]*UserView, error) {
	users, err := callStore(ctx, s.callTimeout, func(ctx context.Context) ([]*entities.User, error) {
		return s.users.List(ctx)
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[valueobjects.ThoughtID]bool)
	var refs []valueobjects.ThoughtID
	for _, u := range users {
		for _, id := range u.ThoughtIDs() {
			if !seen[id] {
				seen[id] = true
				refs = append(refs, id)
			}
		}
	}

	loaded, err := s.thoughts.GetByIDs(ctx, refs)
	if err != nil {
		return nil, err
	}
	byID := make(map[valueobjects.ThoughtID]*entities.Thought, len(loaded))
	for _, t := range loaded {
		byID[t.ID()] = t
	}

	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		resolved := make([]*entities.Thought, 0, len(u.ThoughtIDs()))
		for _, id := range u.ThoughtIDs() {
			if t, ok := byID[id]; ok {
				resolved = append(resolved, t)
			}
		}
		views = append(views, &UserView{User: u, Thoughts: resolved})
	}
	return views, nil
}

// UpdateByID replaces username and email
func (s *UserStore) UpdateByID(ctx context.Context, id valueobjects.UserID, payload UserPayload) (*entities.User, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	if err := entities.ValidateProfile(payload.Username, payload.Email); err != nil {
		return nil, err
	}
	return callStore(ctx, s.callTimeout, func(ctx context.Context) (*entities.User, error) {
		return s.users.UpdateProfile(ctx, id, payload.Username, payload.Email, utils.NowUTC())
	})
}

// DeleteByID removes the user and the thoughts it owns
func (s *UserStore) DeleteByID(ctx context.Context, id valueobjects.UserID) (*CascadeResult, error) {
	if s.deleter == nil {
		return nil, pkgerrors.NewInternalError("user deletion is not configured")
	}
	return s.deleter.DeleteUserCascade(ctx, id)
}

// AddFriend adds friendID to the user's friend set. The friend is not
// required to exist.
func (s *UserStore) AddFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, error) {
	type added struct {
		user    *entities.User
		changed bool
	}
	res, err := callStore(ctx, s.callTimeout, func(ctx context.Context) (added, error) {
		u, changed, err := s.users.AddFriend(ctx, id, friendID)
		return added{u, changed}, err
	})
	if err != nil {
		return nil, err
	}

	if res.changed {
		publish(ctx, s.publisher, s.logger, events.NewFriendAdded(id, friendID, utils.NowUTC()))
	}
	return res.user, nil
}

// RemoveFriend removes friendID and reports whether it was a member
func (s *UserStore) RemoveFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	type removed struct {
		user    *entities.User
		changed bool
	}
	res, err := callStore(ctx, s.callTimeout, func(ctx context.Context) (removed, error) {
		u, changed, err := s.users.RemoveFriend(ctx, id, friendID)
		return removed{u, changed}, err
	})
	if err != nil {
		return nil, false, err
	}

	if res.changed {
		publish(ctx, s.publisher, s.logger, events.NewFriendRemoved(id, friendID, utils.NowUTC()))
	}
	return res.user, res.changed, nil
}
