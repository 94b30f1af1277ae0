package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/domain/events"
	"thoughtgraph/pkg/utils"
)

// ReactionSet maintains the reactions embedded in a thought with set
// semantics keyed by reaction id. Each operation is a single conditional
// update on the thought document, so re-running any of them is safe.
type ReactionSet struct {
	thoughts    ports.ThoughtRepository
	publisher   ports.EventPublisher
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewReactionSet creates a new reaction set service
func NewReactionSet(
	thoughts ports.ThoughtRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	callTimeout time.Duration,
) *ReactionSet {
	return &ReactionSet{
		thoughts:    thoughts,
		publisher:   publisher,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// AddReaction inserts a reaction unless one with the same id already exists
func (s *ReactionSet) AddReaction(ctx context.Context, thoughtID valueobjects.ThoughtID, payload ReactionPayload) (*entities.Thought, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}

	var reactionID valueobjects.ReactionID
	if payload.ReactionID != "" {
		id, err := parseReactionID("reactionId", payload.ReactionID)
		if err != nil {
			return nil, err
		}
		reactionID = id
	}

	reaction, err := entities.NewReaction(reactionID, payload.ReactionBody, payload.Username, utils.NowUTC())
	if err != nil {
		return nil, err
	}

	type added struct {
		thought *entities.Thought
		changed bool
	}
	res, err := callStore(ctx, s.callTimeout, func(ctx context.Context) (added, error) {
		t, changed, err := s.thoughts.AddReaction(ctx, thoughtID, reaction)
		return added{t, changed}, err
	})
	if err != nil {
		return nil, err
	}

	if res.changed {
		publish(ctx, s.publisher, s.logger,
			events.NewReactionAdded(thoughtID, reaction.ID(), reaction.Username(), reaction.CreatedAt()))
	} else {
		s.logger.Debug("Reaction already present",
			zap.String("thoughtID", thoughtID.String()),
			zap.String("reactionID", reaction.ID().String()),
		)
	}

	return res.thought, nil
}

// RemoveReaction removes every reaction with the id. An absent id leaves the
// thought unchanged and is not an error.
func (s *ReactionSet) RemoveReaction(ctx context.Context, thoughtID valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, error) {
	type removed struct {
		thought *entities.Thought
		changed bool
	}
	res, err := callStore(ctx, s.callTimeout, func(ctx context.Context) (removed, error) {
		t, changed, err := s.thoughts.RemoveReaction(ctx, thoughtID, reactionID)
		return removed{t, changed}, err
	})
	if err != nil {
		return nil, err
	}

	if res.changed {
		publish(ctx, s.publisher, s.logger, events.NewReactionRemoved(thoughtID, reactionID, utils.NowUTC()))
	}

	return res.thought, nil
}

// ClearReactions empties the reaction set of a thought
func (s *ReactionSet) ClearReactions(ctx context.Context, thoughtID valueobjects.ThoughtID) error {
	return execStore(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.thoughts.ClearReactions(ctx, thoughtID)
	})
}
