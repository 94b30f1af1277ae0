package services

import (
	"errors"

	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"
)

// CreateThoughtPayload is the input of CreateThoughtAndLink
type CreateThoughtPayload struct {
	ThoughtText string `json:"thoughtText" validate:"required,max=280"`
	UserID      string `json:"userId" validate:"required,uuid"`
}

// UpdateThoughtPayload replaces the text of a thought
type UpdateThoughtPayload struct {
	ThoughtText string `json:"thoughtText" validate:"required,max=280"`
}

// ReactionPayload is the input of AddReaction. An empty ReactionID gets a
// generated one.
type ReactionPayload struct {
	ReactionID   string `json:"reactionId" validate:"omitempty,max=128"`
	ReactionBody string `json:"reactionBody" validate:"required,max=280"`
	Username     string `json:"username" validate:"required,max=64"`
}

// UserPayload is the input of CreateUser and UpdateUser
type UserPayload struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
}

func parseUserID(field, raw string) (valueobjects.UserID, error) {
	if err := utils.ValidateVar(field, raw, "required,uuid"); err != nil {
		return valueobjects.UserID{}, err
	}
	id, err := valueobjects.NewUserIDFromString(raw)
	if err != nil {
		return valueobjects.UserID{}, pkgerrors.NewValidationError(field, "must be a valid UUID")
	}
	return id, nil
}

func parseThoughtID(field, raw string) (valueobjects.ThoughtID, error) {
	if err := utils.ValidateVar(field, raw, "required,uuid"); err != nil {
		return valueobjects.ThoughtID{}, err
	}
	id, err := valueobjects.NewThoughtIDFromString(raw)
	if err != nil {
		return valueobjects.ThoughtID{}, pkgerrors.NewValidationError(field, "must be a valid UUID")
	}
	return id, nil
}

func parseReactionID(field, raw string) (valueobjects.ReactionID, error) {
	id, err := valueobjects.NewReactionIDFromString(raw)
	if err != nil {
		if errors.Is(err, valueobjects.ErrReactionIDTooLong) {
			return valueobjects.ReactionID{}, pkgerrors.NewValidationError(field, "must be at most 128 characters")
		}
		return valueobjects.ReactionID{}, pkgerrors.NewValidationError(field, "is required")
	}
	return id, nil
}
