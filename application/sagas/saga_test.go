package sagas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaga_CompletesAllSteps(t *testing.T) {
	// Arrange
	saga := NewSagaBuilder("double", zap.NewNop()).
		WithStep("add", func(ctx context.Context, data interface{}) (interface{}, error) {
			return data.(int) + 1, nil
		}).
		WithStep("double", func(ctx context.Context, data interface{}) (interface{}, error) {
			return data.(int) * 2, nil
		}).
		Build()

	// Act
	result, err := saga.Execute(context.Background(), 1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4, result)
	assert.Equal(t, SagaStateCompleted, saga.GetState())
}

func TestSaga_CompensatesCompletedStepsInReverse(t *testing.T) {
	// Arrange
	var compensated []string
	stepFailure := errors.New("link failed")

	saga := NewSagaBuilder("create", zap.NewNop()).
		WithCompensableStep("first",
			func(ctx context.Context, data interface{}) (interface{}, error) { return "a", nil },
			func(ctx context.Context, data interface{}) error {
				compensated = append(compensated, "first:"+data.(string))
				return nil
			}).
		WithCompensableStep("second",
			func(ctx context.Context, data interface{}) (interface{}, error) { return "b", nil },
			func(ctx context.Context, data interface{}) error {
				compensated = append(compensated, "second:"+data.(string))
				return nil
			}).
		WithStep("third", func(ctx context.Context, data interface{}) (interface{}, error) {
			return nil, stepFailure
		}).
		Build()

	// Act
	_, err := saga.Execute(context.Background(), nil)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, stepFailure)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "third", stepErr.Step)
	assert.True(t, stepErr.Compensated())
	assert.Equal(t, []string{"second:b", "first:a"}, compensated)
	assert.Equal(t, SagaStateCompensated, saga.GetState())
	assert.Equal(t, 2, saga.GetCurrentStep())
}

func TestSaga_StepRunsOnce(t *testing.T) {
	calls := 0
	saga := NewSagaBuilder("once", zap.NewNop()).
		WithStep("fail", func(ctx context.Context, data interface{}) (interface{}, error) {
			calls++
			return nil, errors.New("boom")
		}).
		Build()

	_, err := saga.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSaga_CompensationFailureIsReported(t *testing.T) {
	// Arrange
	compensationFailure := errors.New("delete failed")
	saga := NewSagaBuilder("create", zap.NewNop()).
		WithCompensableStep("create",
			func(ctx context.Context, data interface{}) (interface{}, error) { return "thought-1", nil },
			func(ctx context.Context, data interface{}) error { return compensationFailure }).
		WithStep("link", func(ctx context.Context, data interface{}) (interface{}, error) {
			return nil, errors.New("store down")
		}).
		Build()

	// Act
	_, err := saga.Execute(context.Background(), nil)

	// Assert
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.False(t, stepErr.Compensated())
	assert.ErrorIs(t, stepErr.CompensationErr, compensationFailure)
	assert.Equal(t, SagaStateCompensationFailed, saga.GetState())
	assert.Contains(t, err.Error(), "compensation failed")
}

func TestSaga_CompensationSurvivesCancelledContext(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	var compensateErr error
	compensated := false

	saga := NewSagaBuilder("create", zap.NewNop()).
		WithCompensableStep("create",
			func(ctx context.Context, data interface{}) (interface{}, error) { return "a", nil },
			func(ctx context.Context, data interface{}) error {
				compensateErr = ctx.Err()
				compensated = true
				return nil
			}).
		WithStep("link", func(ctx context.Context, data interface{}) (interface{}, error) {
			cancel()
			return nil, ctx.Err()
		}).
		Build()

	// Act
	_, err := saga.Execute(ctx, nil)

	// Assert
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, stepErr.Err, context.Canceled)
	assert.True(t, stepErr.Compensated())
	assert.True(t, compensated)
	assert.NoError(t, compensateErr)
	assert.Equal(t, SagaStateCompensated, saga.GetState())
}
