package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxReactionIDLength bounds caller supplied reaction ids
const MaxReactionIDLength = 128

var (
	ErrEmptyID           = errors.New("id cannot be empty")
	ErrInvalidUUID       = errors.New("id must be a valid UUID")
	ErrReactionIDTooLong = errors.New("reaction id is too long")
)

// UserID is a value object representing a unique user identifier
type UserID struct {
	value string
}

// NewUserID creates a new random UserID
func NewUserID() UserID {
	return UserID{value: uuid.New().String()}
}

// NewUserIDFromString creates a UserID from an existing string
func NewUserIDFromString(id string) (UserID, error) {
	if err := validateUUID(id); err != nil {
		return UserID{}, err
	}
	return UserID{value: id}, nil
}

func (id UserID) String() string           { return id.value }
func (id UserID) Equals(other UserID) bool { return id.value == other.value }
func (id UserID) IsZero() bool             { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalString(data, &id.value)
}

// ThoughtID is a value object representing a unique thought identifier
type ThoughtID struct {
	value string
}

// NewThoughtID creates a new random ThoughtID
func NewThoughtID() ThoughtID {
	return ThoughtID{value: uuid.New().String()}
}

// NewThoughtIDFromString creates a ThoughtID from an existing string
func NewThoughtIDFromString(id string) (ThoughtID, error) {
	if err := validateUUID(id); err != nil {
		return ThoughtID{}, err
	}
	return ThoughtID{value: id}, nil
}

func (id ThoughtID) String() string              { return id.value }
func (id ThoughtID) Equals(other ThoughtID) bool { return id.value == other.value }
func (id ThoughtID) IsZero() bool                { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id ThoughtID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ThoughtID) UnmarshalJSON(data []byte) error {
	return unmarshalString(data, &id.value)
}

// ReactionID identifies a reaction within one thought. Callers may choose
// their own ids, so any non-empty text up to MaxReactionIDLength is accepted.
type ReactionID struct {
	value string
}

// NewReactionID creates a new random ReactionID
func NewReactionID() ReactionID {
	return ReactionID{value: uuid.New().String()}
}

// NewReactionIDFromString creates a ReactionID from caller supplied text
func NewReactionIDFromString(id string) (ReactionID, error) {
	if strings.TrimSpace(id) == "" {
		return ReactionID{}, ErrEmptyID
	}
	if utf8.RuneCountInString(id) > MaxReactionIDLength {
		return ReactionID{}, ErrReactionIDTooLong
	}
	return ReactionID{value: id}, nil
}

func (id ReactionID) String() string               { return id.value }
func (id ReactionID) Equals(other ReactionID) bool { return id.value == other.value }
func (id ReactionID) IsZero() bool                 { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id ReactionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ReactionID) UnmarshalJSON(data []byte) error {
	return unmarshalString(data, &id.value)
}

// ThoughtIDsToStrings flattens ids for storage and logging
func ThoughtIDsToStrings(ids []ThoughtID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// UserIDsToStrings flattens ids for storage and logging
func UserIDsToStrings(ids []UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func validateUUID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidUUID
	}
	return nil
}

func unmarshalString(data []byte, dst *string) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("id must be a string")
	}
	*dst = s
	return nil
}
