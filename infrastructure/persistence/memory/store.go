// Package memory provides in-process repositories for local development and
// tests. Every method holds the store lock for its whole duration, which
// gives each call the same single-document atomicity the real stores offer.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Store holds users and thoughts in maps. Values are cloned on the way in and
// out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	thoughts map[valueobjects.ThoughtID]*entities.Thought
	users    map[valueobjects.UserID]*entities.User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		thoughts: make(map[valueobjects.ThoughtID]*entities.Thought),
		users:    make(map[valueobjects.UserID]*entities.User),
	}
}

// Thoughts returns the thought repository view of the store
func (s *Store) Thoughts() *ThoughtRepository {
	return &ThoughtRepository{store: s}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op kept for lifecycle symmetry with the other stores
func (s *Store) Close(context.Context) error {
	return nil
}

// ThoughtRepository implements ports.ThoughtRepository in memory
type ThoughtRepository struct {
	store *Store
}

func (r *ThoughtRepository) Create(ctx context.Context, thought *entities.Thought) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreError("create_thought", err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.thoughts[thought.ID()]; exists {
		return pkgerrors.NewStoreError("create_thought", fmt.Errorf("thought %s already exists", thought.ID()))
	}
	r.store.thoughts[thought.ID()] = thought.Clone()
	return nil
}

func (r *ThoughtRepository) GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("get_thought", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.thoughts[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	return t.Clone(), nil
}

func (r *ThoughtRepository) GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("get_thoughts", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entities.Thought, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.store.thoughts[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (r *ThoughtRepository) List(ctx context.Context) ([]*entities.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("list_thoughts", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entities.Thought, 0, len(r.store.thoughts))
	for _, t := range r.store.thoughts {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

func (r *ThoughtRepository) UpdateText(ctx context.Context, id valueobjects.ThoughtID, text string, updatedAt time.Time) (*entities.Thought, error) {
	return r.mutate(ctx, "update_thought", id, func(t *entities.Thought) error {
		return t.UpdateText(text, updatedAt)
	})
}

func (r *ThoughtRepository) Delete(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("delete_thought", err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.thoughts[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	delete(r.store.thoughts, id)
	return t, nil
}

func (r *ThoughtRepository) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreError("delete_thoughts", err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, id := range ids {
		delete(r.store.thoughts, id)
	}
	return nil
}

func (r *ThoughtRepository) AddReaction(ctx context.Context, id valueobjects.ThoughtID, reaction entities.Reaction) (*entities.Thought, bool, error) {
	var changed bool
	t, err := r.mutate(ctx, "add_reaction", id, func(t *entities.Thought) error {
		changed = t.AddReaction(reaction)
		return nil
	})
	return t, changed, err
}

func (r *ThoughtRepository) RemoveReaction(ctx context.Context, id valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, bool, error) {
	var changed bool
	t, err := r.mutate(ctx, "remove_reaction", id, func(t *entities.Thought) error {
		changed = t.RemoveReaction(reactionID) > 0
		return nil
	})
	return t, changed, err
}

func (r *ThoughtRepository) ClearReactions(ctx context.Context, id valueobjects.ThoughtID) error {
	_, err := r.mutate(ctx, "clear_reactions", id, func(t *entities.Thought) error {
		t.ClearReactions()
		return nil
	})
	return err
}

// mutate applies fn to a copy of the stored thought and swaps it in on success
func (r *ThoughtRepository) mutate(ctx context.Context, op string, id valueobjects.ThoughtID, fn func(*entities.Thought) error) (*entities.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError(op, err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.thoughts[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	t := stored.Clone()
	if err := fn(t); err != nil {
		return nil, err
	}
	r.store.thoughts[id] = t
	return t.Clone(), nil
}

// UserRepository implements ports.UserRepository in memory
type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreError("create_user", err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.users[user.ID()]; exists {
		return pkgerrors.NewStoreError("create_user", fmt.Errorf("user %s already exists", user.ID()))
	}
	r.store.users[user.ID()] = user.Clone()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("get_user", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	return u.Clone(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError("list_users", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entities.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id valueobjects.UserID, username, email string, updatedAt time.Time) (*entities.User, error) {
	return r.mutate(ctx, "update_user", id, func(u *entities.User) error {
		return u.UpdateProfile(username, email, updatedAt)
	})
}

func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreError("delete_user", err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[id]; !ok {
		return pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	delete(r.store.users, id)
	return nil
}

func (r *UserRepository) LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	return r.mutate(ctx, "link_thought", id, func(u *entities.User) error {
		u.LinkThought(thoughtID)
		return nil
	})
}

func (r *UserRepository) UnlinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	return r.mutate(ctx, "unlink_thought", id, func(u *entities.User) error {
		u.UnlinkThought(thoughtID)
		return nil
	})
}

func (r *UserRepository) AddFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	var changed bool
	u, err := r.mutate(ctx, "add_friend", id, func(u *entities.User) error {
		changed = u.AddFriend(friendID)
		return nil
	})
	return u, changed, err
}

func (r *UserRepository) RemoveFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	var changed bool
	u, err := r.mutate(ctx, "remove_friend", id, func(u *entities.User) error {
		changed = u.RemoveFriend(friendID)
		return nil
	})
	return u, changed, err
}

// mutate applies fn to a copy of the stored user and swaps it in on success
func (r *UserRepository) mutate(ctx context.Context, op string, id valueobjects.UserID, fn func(*entities.User) error) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreError(op, err)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.users[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	u := stored.Clone()
	if err := fn(u); err != nil {
		return nil, err
	}
	r.store.users[id] = u
	return u.Clone(), nil
}
