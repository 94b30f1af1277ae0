package mongodb

import (
	"fmt"
	"time"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
)

type thoughtDocument struct {
	ID          string             `bson:"_id"`
	UserID      string             `bson:"userId"`
	ThoughtText string             `bson:"thoughtText"`
	Reactions   []reactionDocument `bson:"reactions"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type reactionDocument struct {
	ReactionID   string    `bson:"reactionId"`
	ReactionBody string    `bson:"reactionBody"`
	Username     string    `bson:"username"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Thoughts  []string  `bson:"thoughts"`
	Friends   []string  `bson:"friends"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newReactionDocument(r entities.Reaction) reactionDocument {
	return reactionDocument{
		ReactionID:   r.ID().String(),
		ReactionBody: r.Body(),
		Username:     r.Username(),
		CreatedAt:    r.CreatedAt(),
	}
}

func newThoughtDocument(t *entities.Thought) thoughtDocument {
	reactions := make([]reactionDocument, 0, t.ReactionCount())
	for _, r := range t.Reactions() {
		reactions = append(reactions, newReactionDocument(r))
	}
	return thoughtDocument{
		ID:          t.ID().String(),
		UserID:      t.OwnerID().String(),
		ThoughtText: t.Text(),
		Reactions:   reactions,
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

func (d thoughtDocument) toEntity() (*entities.Thought, error) {
	id, err := valueobjects.NewThoughtIDFromString(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid thought id %q: %w", d.ID, err)
	}
	owner, err := valueobjects.NewUserIDFromString(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", d.UserID, err)
	}
	reactions := make([]entities.Reaction, 0, len(d.Reactions))
	for _, r := range d.Reactions {
		rid, err := valueobjects.NewReactionIDFromString(r.ReactionID)
		if err != nil {
			return nil, fmt.Errorf("invalid reaction id %q: %w", r.ReactionID, err)
		}
		reactions = append(reactions, entities.ReconstructReaction(rid, r.ReactionBody, r.Username, r.CreatedAt.UTC()))
	}
	return entities.ReconstructThought(id, owner, d.ThoughtText, reactions, d.CreatedAt.UTC(), d.UpdatedAt.UTC()), nil
}

func newUserDocument(u *entities.User) userDocument {
	return userDocument{
		ID:        u.ID().String(),
		Username:  u.Username(),
		Email:     u.Email(),
		Thoughts:  valueobjects.ThoughtIDsToStrings(u.ThoughtIDs()),
		Friends:   valueobjects.UserIDsToStrings(u.FriendIDs()),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func (d userDocument) toEntity() (*entities.User, error) {
	id, err := valueobjects.NewUserIDFromString(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	thoughtIDs := make([]valueobjects.ThoughtID, 0, len(d.Thoughts))
	for _, raw := range d.Thoughts {
		tid, err := valueobjects.NewThoughtIDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid thought reference %q: %w", raw, err)
		}
		thoughtIDs = append(thoughtIDs, tid)
	}
	friendIDs := make([]valueobjects.UserID, 0, len(d.Friends))
	for _, raw := range d.Friends {
		fid, err := valueobjects.NewUserIDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid friend reference %q: %w", raw, err)
		}
		friendIDs = append(friendIDs, fid)
	}
	return entities.ReconstructUser(id, d.Username, d.Email, thoughtIDs, friendIDs, d.CreatedAt.UTC(), d.UpdatedAt.UTC()), nil
}
