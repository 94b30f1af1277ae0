package entities

import (
	"encoding/json"
	"sort"
	"time"

	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Thought is a short post owned by one user. It embeds its reactions, which
// behave as a set keyed by reaction id.
type Thought struct {
	id        valueobjects.ThoughtID
	text      string
	ownerID   valueobjects.UserID
	reactions []Reaction
	createdAt time.Time
	updatedAt time.Time
}

// NewThought creates a thought with an empty reaction set
func NewThought(ownerID valueobjects.UserID, text string, now time.Time) (*Thought, error) {
	if ownerID.IsZero() {
		return nil, pkgerrors.NewValidationError("userId", "is required")
	}
	if err := validateText("thoughtText", text, MaxThoughtTextLength); err != nil {
		return nil, err
	}

	return &Thought{
		id:        valueobjects.NewThoughtID(),
		text:      text,
		ownerID:   ownerID,
		reactions: []Reaction{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructThought rebuilds a thought from stored data with preserved timestamps
func ReconstructThought(
	id valueobjects.ThoughtID,
	ownerID valueobjects.UserID,
	text string,
	reactions []Reaction,
	createdAt, updatedAt time.Time,
) *Thought {
	copied := make([]Reaction, len(reactions))
	copy(copied, reactions)
	return &Thought{
		id:        id,
		text:      text,
		ownerID:   ownerID,
		reactions: copied,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (t *Thought) ID() valueobjects.ThoughtID           { return t.id }
func (t *Thought) Text() string                         { return t.text }
func (t *Thought) OwnerID() valueobjects.UserID         { return t.ownerID }
func (t *Thought) CreatedAt() time.Time                 { return t.createdAt }
func (t *Thought) UpdatedAt() time.Time                 { return t.updatedAt }
func (t *Thought) ReactionCount() int                   { return len(t.reactions) }
func (t *Thought) IsOwnedBy(u valueobjects.UserID) bool { return t.ownerID.Equals(u) }

// Reactions returns the reactions ordered by creation time then id
func (t *Thought) Reactions() []Reaction {
	out := make([]Reaction, len(t.reactions))
	copy(out, t.reactions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id.String() < out[j].id.String()
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// HasReaction reports whether a reaction with the id is present
func (t *Thought) HasReaction(id valueobjects.ReactionID) bool {
	for _, r := range t.reactions {
		if r.id.Equals(id) {
			return true
		}
	}
	return false
}

// UpdateText replaces the text. The owner never changes.
func (t *Thought) UpdateText(text string, now time.Time) error {
	if err := validateText("thoughtText", text, MaxThoughtTextLength); err != nil {
		return err
	}
	t.text = text
	t.updatedAt = now
	return nil
}

// AddReaction inserts the reaction unless one with the same id exists.
// Returns false when the set was left unchanged.
func (t *Thought) AddReaction(r Reaction) bool {
	if t.HasReaction(r.id) {
		return false
	}
	t.reactions = append(t.reactions, r)
	return true
}

// RemoveReaction drops every reaction carrying the id and returns how many went
func (t *Thought) RemoveReaction(id valueobjects.ReactionID) int {
	kept := t.reactions[:0]
	removed := 0
	for _, r := range t.reactions {
		if r.id.Equals(id) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.reactions = kept
	return removed
}

// ClearReactions empties the reaction set
func (t *Thought) ClearReactions() int {
	n := len(t.reactions)
	t.reactions = []Reaction{}
	return n
}

// Clone returns a deep copy
func (t *Thought) Clone() *Thought {
	return ReconstructThought(t.id, t.ownerID, t.text, t.reactions, t.createdAt, t.updatedAt)
}

// ValidateThoughtText checks the text of a thought
func ValidateThoughtText(text string) error {
	return validateText("thoughtText", text, MaxThoughtTextLength)
}

// ThoughtSnapshot is the wire view of a thought
type ThoughtSnapshot struct {
	ID            string             `json:"id"`
	ThoughtText   string             `json:"thoughtText"`
	UserID        string             `json:"userId"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Reactions     []ReactionSnapshot `json:"reactions"`
	ReactionCount int                `json:"reactionCount"`
}

// Snapshot returns the wire view of the thought
func (t *Thought) Snapshot() ThoughtSnapshot {
	reactions := t.Reactions()
	views := make([]ReactionSnapshot, len(reactions))
	for i, r := range reactions {
		views[i] = r.Snapshot()
	}
	return ThoughtSnapshot{
		ID:            t.id.String(),
		ThoughtText:   t.text,
		UserID:        t.ownerID.String(),
		CreatedAt:     t.createdAt,
		UpdatedAt:     t.updatedAt,
		Reactions:     views,
		ReactionCount: len(views),
	}
}

// MarshalJSON implements json.Marshaler
func (t *Thought) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}
