package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/pkg/utils"
)

// ThoughtStore provides CRUD on thought documents. It never touches user
// documents; linking is done by the IntegrityCoordinator.
type ThoughtStore struct {
	thoughts    ports.ThoughtRepository
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewThoughtStore creates a new thought store
func NewThoughtStore(thoughts ports.ThoughtRepository, logger *zap.Logger, callTimeout time.Duration) *ThoughtStore {
	return &ThoughtStore{
		thoughts:    thoughts,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// Create validates the payload and persists a thought with no reactions
func (s *ThoughtStore) Create(ctx context.Context, payload CreateThoughtPayload) (*entities.Thought, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	ownerID, err := parseUserID("userId", payload.UserID)
	if err != nil {
		return nil, err
	}

	thought, err := entities.NewThought(ownerID, payload.ThoughtText, utils.NowUTC())
	if err != nil {
		return nil, err
	}

	if err := execStore(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.thoughts.Create(ctx, thought)
	}); err != nil {
		return nil, err
	}

	s.logger.Debug("Thought created",
		zap.String("thoughtID", thought.ID().String()),
		zap.String("userID", ownerID.String()),
	)
	return thought, nil
}

// GetByID retrieves a thought
func (s *ThoughtStore) GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	return callStore(ctx, s.callTimeout, func(ctx context.Context) (*entities.Thought, error) {
		return s.thoughts.GetByID(ctx, id)
	})
}

// GetByIDs retrieves the thoughts that still exist, preserving the order of ids
func (s *ThoughtStore) GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error) {
	if len(ids) == 0 {
		return []*entities.Thought{}, nil
	}
	return callStore(ctx, s.callTimeout, func(ctx context.Context) ([]*entities.Thought, error) {
		return s.thoughts.GetByIDs(ctx, ids)
	})
}

// List retrieves every thought
func (s *ThoughtStore) List(ctx context.Context) ([]*entities.Thought, error) {
	return callStore(ctx, s.callTimeout, func(ctx context.Context) ([]*entities.Thought, error) {
		return s.thoughts.List(ctx)
	})
}

// UpdateByID replaces the text of a thought. Identity and owner are kept.
func (s *ThoughtStore) UpdateByID(ctx context.Context, id valueobjects.ThoughtID, payload UpdateThoughtPayload) (*entities.Thought, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	if err := entities.ValidateThoughtText(payload.ThoughtText); err != nil {
		return nil, err
	}
	return callStore(ctx, s.callTimeout, func(ctx context.Context) (*entities.Thought, error) {
		return s.thoughts.UpdateText(ctx, id, payload.ThoughtText, utils.NowUTC())
	})
}

// DeleteByID removes a thought and its reactions, returning the removed thought
func (s *ThoughtStore) DeleteByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	return callStore(ctx, s.callTimeout, func(ctx context.Context) (*entities.Thought, error) {
		return s.thoughts.Delete(ctx, id)
	})
}

// DeleteBatch removes many thoughts at once
func (s *ThoughtStore) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	if len(ids) == 0 {
		return nil
	}
	return execStore(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.thoughts.DeleteBatch(ctx, ids)
	})
}
