package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/sagas"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	"thoughtgraph/domain/events"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"
)

// Metric names recorded by the coordinator
const (
	MetricCompensations       = "Compensations"
	MetricCompensationFailed  = "CompensationFailures"
	MetricCascadeWarnings     = "CascadeWarnings"
	MetricCascadeThoughtCount = "CascadeDeletedThoughts"
)

// CascadeResult describes a completed user deletion
type CascadeResult struct {
	UserID            string   `json:"userId"`
	DeletedThoughtIDs []string `json:"deletedThoughtIds"`
	Warnings          []string `json:"warnings"`
}

// IntegrityCoordinator runs the protocols that span more than one document.
// The store has no multi-document transactions, so each protocol orders its
// single-document steps to keep references consistent and names the partial
// states it can leave behind.
type IntegrityCoordinator struct {
	thoughts    *ThoughtStore
	reactions   *ReactionSet
	users       ports.UserRepository
	publisher   ports.EventPublisher
	metrics     ports.MetricsRecorder
	logger      *zap.Logger
	callTimeout time.Duration
}

// NewIntegrityCoordinator creates a new coordinator
func NewIntegrityCoordinator(
	thoughts *ThoughtStore,
	reactions *ReactionSet,
	users ports.UserRepository,
	publisher ports.EventPublisher,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
	callTimeout time.Duration,
) *IntegrityCoordinator {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &IntegrityCoordinator{
		thoughts:    thoughts,
		reactions:   reactions,
		users:       users,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// CreateThoughtAndLink creates a thought and appends its id to the owner's
// thought set. If linking fails for any reason the thought is deleted again.
//
// Partial state: when that deletion fails too, the thought exists without a
// link. The returned error carries its id under "orphanThoughtId".
func (c *IntegrityCoordinator) CreateThoughtAndLink(ctx context.Context, payload CreateThoughtPayload) (thought *entities.Thought, err error) {
	ctx, span := tracer.Start(ctx, "IntegrityCoordinator.CreateThoughtAndLink")
	defer span.End()
	start := time.Now()
	defer func() {
		c.metrics.RecordOperation(ctx, "CreateThoughtAndLink", time.Since(start), err)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var created *entities.Thought
	saga := sagas.NewSagaBuilder("create_thought_and_link", c.logger).
		WithMetadata("userId", payload.UserID).
		WithCompensableStep("create_thought",
			func(ctx context.Context, _ interface{}) (interface{}, error) {
				t, err := c.thoughts.Create(ctx, payload)
				if err != nil {
					return nil, err
				}
				created = t
				return t, nil
			},
			func(ctx context.Context, data interface{}) error {
				t := data.(*entities.Thought)
				_, err := c.thoughts.DeleteByID(ctx, t.ID())
				if pkgerrors.IsNotFound(err) {
					return nil
				}
				return err
			}).
		WithStep("link_owner",
			func(ctx context.Context, data interface{}) (interface{}, error) {
				t := data.(*entities.Thought)
				_, err := callStore(ctx, c.callTimeout, func(ctx context.Context) (*entities.User, error) {
					return c.users.LinkThought(ctx, t.OwnerID(), t.ID())
				})
				if err != nil {
					return nil, err
				}
				return t, nil
			}).
		Build()

	if _, err := saga.Execute(ctx, nil); err != nil {
		return nil, c.createFailure(ctx, err, created)
	}

	span.SetAttributes(
		attribute.String("thought.id", created.ID().String()),
		attribute.String("user.id", created.OwnerID().String()),
	)
	publish(ctx, c.publisher, c.logger, events.NewThoughtCreated(created.ID(), created.OwnerID(), created.CreatedAt()))

	c.logger.Info("Thought created and linked",
		zap.String("thoughtID", created.ID().String()),
		zap.String("userID", created.OwnerID().String()),
	)
	return created, nil
}

// createFailure turns a saga failure into the error reported to the caller
func (c *IntegrityCoordinator) createFailure(ctx context.Context, err error, created *entities.Thought) error {
	var stepErr *sagas.StepError
	if !errors.As(err, &stepErr) {
		return err
	}
	if created == nil {
		// Nothing was written
		return stepErr.Err
	}

	c.metrics.RecordCount(ctx, MetricCompensations, 1, map[string]string{"Protocol": "CreateThoughtAndLink"})

	var reported *pkgerrors.AppError
	switch {
	case pkgerrors.IsNotFound(stepErr.Err):
		reported = pkgerrors.NewUserNotFoundError(created.OwnerID().String()).WithCause(stepErr.Err)
	case pkgerrors.IsAppError(stepErr.Err):
		reported = pkgerrors.GetAppError(stepErr.Err)
	default:
		reported = pkgerrors.NewStoreError("link_thought", stepErr.Err)
	}

	if !stepErr.Compensated() {
		c.metrics.RecordCount(ctx, MetricCompensationFailed, 1, map[string]string{"Protocol": "CreateThoughtAndLink"})
		reported.WithDetail("orphanThoughtId", created.ID().String()).
			WithDetail("compensationError", stepErr.CompensationErr.Error())
		c.logger.Error("Thought left unlinked after failed compensation",
			zap.String("thoughtID", created.ID().String()),
			zap.String("userID", created.OwnerID().String()),
			zap.NamedError("linkError", stepErr.Err),
			zap.NamedError("compensationError", stepErr.CompensationErr),
		)
		return reported
	}

	c.logger.Warn("Thought creation rolled back",
		zap.String("thoughtID", created.ID().String()),
		zap.String("userID", created.OwnerID().String()),
		zap.Error(stepErr.Err),
	)
	return reported
}

// DeleteUserCascade deletes a user, every thought it owns and their reactions.
//
// Steps: load the user; load the referenced thoughts and keep those the user
// owns; clear their reactions (failures become warnings); delete the thoughts
// in bulk; delete the user. Failures in the last two steps are fatal. Thoughts
// that are already gone are skipped, so re-running after a failure finishes
// the job.
func (c *IntegrityCoordinator) DeleteUserCascade(ctx context.Context, userID valueobjects.UserID) (result *CascadeResult, err error) {
	ctx, span := tracer.Start(ctx, "IntegrityCoordinator.DeleteUserCascade")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))
	start := time.Now()
	defer func() {
		c.metrics.RecordOperation(ctx, "DeleteUserCascade", time.Since(start), err)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	user, err := callStore(ctx, c.callTimeout, func(ctx context.Context) (*entities.User, error) {
		return c.users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	loaded, err := c.thoughts.GetByIDs(ctx, user.ThoughtIDs())
	if err != nil {
		return nil, err
	}

	owned := make([]valueobjects.ThoughtID, 0, len(loaded))
	for _, t := range loaded {
		if t.IsOwnedBy(userID) {
			owned = append(owned, t.ID())
			continue
		}
		c.logger.Warn("Skipping referenced thought owned by another user",
			zap.String("userID", userID.String()),
			zap.String("thoughtID", t.ID().String()),
			zap.String("ownerID", t.OwnerID().String()),
		)
	}

	warnings := []string{}
	for _, id := range owned {
		if err := c.reactions.ClearReactions(ctx, id); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to clear reactions of thought %s: %v", id, err))
			c.logger.Warn("Failed to clear reactions during cascade",
				zap.String("userID", userID.String()),
				zap.String("thoughtID", id.String()),
				zap.Error(err),
			)
		}
	}

	if err := c.thoughts.DeleteBatch(ctx, owned); err != nil {
		return nil, cascadeFailure("delete_thoughts", err, userID)
	}

	if err := execStore(ctx, c.callTimeout, func(ctx context.Context) error {
		return c.users.Delete(ctx, userID)
	}); err != nil {
		return nil, cascadeFailure("delete_user", err, userID).WithDetail("deletedThoughtIds", valueobjects.ThoughtIDsToStrings(owned))
	}

	result = &CascadeResult{
		UserID:            userID.String(),
		DeletedThoughtIDs: valueobjects.ThoughtIDsToStrings(owned),
		Warnings:          warnings,
	}

	if len(warnings) > 0 {
		c.metrics.RecordCount(ctx, MetricCascadeWarnings, float64(len(warnings)), nil)
	}
	c.metrics.RecordCount(ctx, MetricCascadeThoughtCount, float64(len(owned)), nil)

	now := utils.NowUTC()
	evts := make([]events.DomainEvent, 0, len(owned)+1)
	for _, id := range owned {
		evts = append(evts, events.NewThoughtDeleted(id, userID, now))
	}
	evts = append(evts, events.NewUserDeleted(userID, result.DeletedThoughtIDs, len(warnings), now))
	publish(ctx, c.publisher, c.logger, evts...)

	c.logger.Info("User deleted with owned thoughts",
		zap.String("userID", userID.String()),
		zap.Int("deletedThoughts", len(owned)),
		zap.Int("warnings", len(warnings)),
	)
	return result, nil
}

// DeleteThoughtAndUnlink deletes a thought and then removes its id from the
// owner's thought set. The unlink is best effort: a failure is logged and the
// deletion still succeeds.
func (c *IntegrityCoordinator) DeleteThoughtAndUnlink(ctx context.Context, thoughtID valueobjects.ThoughtID) (*entities.Thought, error) {
	ctx, span := tracer.Start(ctx, "IntegrityCoordinator.DeleteThoughtAndUnlink")
	defer span.End()
	span.SetAttributes(attribute.String("thought.id", thoughtID.String()))

	deleted, err := c.thoughts.DeleteByID(ctx, thoughtID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_, err = callStore(ctx, c.callTimeout, func(ctx context.Context) (*entities.User, error) {
		return c.users.UnlinkThought(ctx, deleted.OwnerID(), thoughtID)
	})
	switch {
	case err == nil:
	case pkgerrors.IsNotFound(err):
		c.logger.Debug("Owner of deleted thought no longer exists",
			zap.String("thoughtID", thoughtID.String()),
			zap.String("userID", deleted.OwnerID().String()),
		)
	default:
		c.logger.Warn("Failed to unlink deleted thought from owner",
			zap.String("thoughtID", thoughtID.String()),
			zap.String("userID", deleted.OwnerID().String()),
			zap.Error(err),
		)
	}

	publish(ctx, c.publisher, c.logger, events.NewThoughtDeleted(thoughtID, deleted.OwnerID(), utils.NowUTC()))
	return deleted, nil
}

func cascadeFailure(step string, err error, userID valueobjects.UserID) *pkgerrors.AppError {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil || appErr.Type != pkgerrors.ErrorTypeStore {
		appErr = pkgerrors.NewStoreError(step, err)
	}
	return appErr.WithDetail("userId", userID.String()).WithDetail("step", step)
}
