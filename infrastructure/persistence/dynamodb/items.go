package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
)

// thoughtItem represents the DynamoDB item structure for a thought
type thoughtItem struct {
	PK          string                  `dynamodbav:"PK"`
	SK          string                  `dynamodbav:"SK"`
	EntityType  string                  `dynamodbav:"EntityType"`
	ThoughtID   string                  `dynamodbav:"ThoughtID"`
	UserID      string                  `dynamodbav:"UserID"`
	ThoughtText string                  `dynamodbav:"ThoughtText"`
	Reactions   map[string]reactionItem `dynamodbav:"Reactions"`
	CreatedAt   string                  `dynamodbav:"CreatedAt"`
	UpdatedAt   string                  `dynamodbav:"UpdatedAt"`
}

// reactionItem is one entry of the Reactions map, keyed by reaction id
type reactionItem struct {
	ReactionID   string `dynamodbav:"ReactionID"`
	ReactionBody string `dynamodbav:"ReactionBody"`
	Username     string `dynamodbav:"Username"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
}

// userItem represents the DynamoDB item structure for a user.
// Friends is a string set and is absent while empty.
type userItem struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	EntityType string   `dynamodbav:"EntityType"`
	UserID     string   `dynamodbav:"UserID"`
	Username   string   `dynamodbav:"Username"`
	Email      string   `dynamodbav:"Email"`
	Thoughts   []string `dynamodbav:"Thoughts"`
	Friends    []string `dynamodbav:"Friends,stringset,omitempty"`
	CreatedAt  string   `dynamodbav:"CreatedAt"`
	UpdatedAt  string   `dynamodbav:"UpdatedAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return t.UTC(), nil
}

func newReactionItem(r entities.Reaction) reactionItem {
	return reactionItem{
		ReactionID:   r.ID().String(),
		ReactionBody: r.Body(),
		Username:     r.Username(),
		CreatedAt:    formatTime(r.CreatedAt()),
	}
}

func newThoughtItem(t *entities.Thought) thoughtItem {
	reactions := make(map[string]reactionItem, t.ReactionCount())
	for _, r := range t.Reactions() {
		reactions[r.ID().String()] = newReactionItem(r)
	}
	return thoughtItem{
		PK:          thoughtKeyValue(t.ID().String()),
		SK:          skMetadata,
		EntityType:  entityThought,
		ThoughtID:   t.ID().String(),
		UserID:      t.OwnerID().String(),
		ThoughtText: t.Text(),
		Reactions:   reactions,
		CreatedAt:   formatTime(t.CreatedAt()),
		UpdatedAt:   formatTime(t.UpdatedAt()),
	}
}

func (i thoughtItem) toEntity() (*entities.Thought, error) {
	id, err := valueobjects.NewThoughtIDFromString(i.ThoughtID)
	if err != nil {
		return nil, fmt.Errorf("invalid thought id %q: %w", i.ThoughtID, err)
	}
	owner, err := valueobjects.NewUserIDFromString(i.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", i.UserID, err)
	}
	createdAt, err := parseTime("CreatedAt", i.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime("UpdatedAt", i.UpdatedAt)
	if err != nil {
		return nil, err
	}

	reactions := make([]entities.Reaction, 0, len(i.Reactions))
	for key, r := range i.Reactions {
		if r.ReactionID == "" {
			r.ReactionID = key
		}
		rid, err := valueobjects.NewReactionIDFromString(r.ReactionID)
		if err != nil {
			return nil, fmt.Errorf("invalid reaction id %q: %w", r.ReactionID, err)
		}
		reactedAt, err := parseTime("Reactions.CreatedAt", r.CreatedAt)
		if err != nil {
			return nil, err
		}
		reactions = append(reactions, entities.ReconstructReaction(rid, r.ReactionBody, r.Username, reactedAt))
	}

	return entities.ReconstructThought(id, owner, i.ThoughtText, reactions, createdAt, updatedAt), nil
}

func newUserItem(u *entities.User) userItem {
	return userItem{
		PK:         userKeyValue(u.ID().String()),
		SK:         skProfile,
		EntityType: entityUser,
		UserID:     u.ID().String(),
		Username:   u.Username(),
		Email:      u.Email(),
		Thoughts:   valueobjects.ThoughtIDsToStrings(u.ThoughtIDs()),
		Friends:    valueobjects.UserIDsToStrings(u.FriendIDs()),
		CreatedAt:  formatTime(u.CreatedAt()),
		UpdatedAt:  formatTime(u.UpdatedAt()),
	}
}

func (i userItem) toEntity() (*entities.User, error) {
	id, err := valueobjects.NewUserIDFromString(i.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", i.UserID, err)
	}
	thoughtIDs := make([]valueobjects.ThoughtID, 0, len(i.Thoughts))
	for _, raw := range i.Thoughts {
		tid, err := valueobjects.NewThoughtIDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid thought reference %q: %w", raw, err)
		}
		thoughtIDs = append(thoughtIDs, tid)
	}
	friendIDs := make([]valueobjects.UserID, 0, len(i.Friends))
	for _, raw := range i.Friends {
		fid, err := valueobjects.NewUserIDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid friend reference %q: %w", raw, err)
		}
		friendIDs = append(friendIDs, fid)
	}
	createdAt, err := parseTime("CreatedAt", i.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseTime("UpdatedAt", i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructUser(id, i.Username, i.Email, thoughtIDs, friendIDs, createdAt, updatedAt), nil
}

func unmarshalThought(av map[string]types.AttributeValue) (*entities.Thought, error) {
	var item thoughtItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thought: %w", err)
	}
	return item.toEntity()
}

func unmarshalUser(av map[string]types.AttributeValue) (*entities.User, error) {
	var item userItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return item.toEntity()
}

func thoughtKeyValue(id string) string { return fmt.Sprintf("%s#%s", entityThought, id) }
func userKeyValue(id string) string    { return fmt.Sprintf("%s#%s", entityUser, id) }
