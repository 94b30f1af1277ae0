package entities

import (
	"strings"
	"time"
	"unicode/utf8"

	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Field limits shared by payload validation and entity constructors
const (
	MaxThoughtTextLength  = 280
	MaxReactionBodyLength = 280
	MaxUsernameLength     = 64
)

// Reaction is a short reply embedded in a Thought. It has no identity outside
// the thought that carries it.
type Reaction struct {
	id        valueobjects.ReactionID
	body      string
	username  string
	createdAt time.Time
}

// NewReaction creates a reaction, validating body and author
func NewReaction(id valueobjects.ReactionID, body, username string, createdAt time.Time) (Reaction, error) {
	if id.IsZero() {
		id = valueobjects.NewReactionID()
	}
	if err := validateText("reactionBody", body, MaxReactionBodyLength); err != nil {
		return Reaction{}, err
	}
	if err := validateText("username", username, MaxUsernameLength); err != nil {
		return Reaction{}, err
	}
	return Reaction{id: id, body: body, username: username, createdAt: createdAt}, nil
}

// ReconstructReaction rebuilds a reaction from stored data without validation
func ReconstructReaction(id valueobjects.ReactionID, body, username string, createdAt time.Time) Reaction {
	return Reaction{id: id, body: body, username: username, createdAt: createdAt}
}

func (r Reaction) ID() valueobjects.ReactionID { return r.id }
func (r Reaction) Body() string                { return r.body }
func (r Reaction) Username() string            { return r.username }
func (r Reaction) CreatedAt() time.Time        { return r.createdAt }

// ReactionSnapshot is the wire view of a reaction
type ReactionSnapshot struct {
	ReactionID   string    `json:"reactionId"`
	ReactionBody string    `json:"reactionBody"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Snapshot returns the wire view of the reaction
func (r Reaction) Snapshot() ReactionSnapshot {
	return ReactionSnapshot{
		ReactionID:   r.id.String(),
		ReactionBody: r.body,
		Username:     r.username,
		CreatedAt:    r.createdAt,
	}
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(value) > max {
		return pkgerrors.NewValidationError(field, "is too long")
	}
	return nil
}
