package fixtures

import (
	"time"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
)

// BaseTime is the default timestamp used by the builders
var BaseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ThoughtBuilder helps create test thoughts with default values
type ThoughtBuilder struct {
	id        valueobjects.ThoughtID
	ownerID   valueobjects.UserID
	text      string
	reactions []entities.Reaction
	createdAt time.Time
}

func NewThoughtBuilder() *ThoughtBuilder {
	return &ThoughtBuilder{
		id:        valueobjects.NewThoughtID(),
		ownerID:   valueobjects.NewUserID(),
		text:      "Test thought",
		createdAt: BaseTime,
	}
}

func (b *ThoughtBuilder) WithID(id valueobjects.ThoughtID) *ThoughtBuilder {
	b.id = id
	return b
}

func (b *ThoughtBuilder) WithOwner(ownerID valueobjects.UserID) *ThoughtBuilder {
	b.ownerID = ownerID
	return b
}

func (b *ThoughtBuilder) WithText(text string) *ThoughtBuilder {
	b.text = text
	return b
}

func (b *ThoughtBuilder) WithReaction(id, body, username string) *ThoughtBuilder {
	rid, err := valueobjects.NewReactionIDFromString(id)
	if err != nil {
		panic(err)
	}
	b.reactions = append(b.reactions, entities.ReconstructReaction(rid, body, username, b.createdAt))
	return b
}

func (b *ThoughtBuilder) Build() *entities.Thought {
	return entities.ReconstructThought(b.id, b.ownerID, b.text, b.reactions, b.createdAt, b.createdAt)
}

// UserBuilder helps create test users with default values
type UserBuilder struct {
	id         valueobjects.UserID
	username   string
	email      string
	thoughtIDs []valueobjects.ThoughtID
	friendIDs  []valueobjects.UserID
	createdAt  time.Time
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		id:        valueobjects.NewUserID(),
		username:  "alice",
		email:     "alice@example.com",
		createdAt: BaseTime,
	}
}

func (b *UserBuilder) WithID(id valueobjects.UserID) *UserBuilder {
	b.id = id
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithThoughts(ids ...valueobjects.ThoughtID) *UserBuilder {
	b.thoughtIDs = append(b.thoughtIDs, ids...)
	return b
}

func (b *UserBuilder) WithFriends(ids ...valueobjects.UserID) *UserBuilder {
	b.friendIDs = append(b.friendIDs, ids...)
	return b
}

func (b *UserBuilder) Build() *entities.User {
	return entities.ReconstructUser(b.id, b.username, b.email, b.thoughtIDs, b.friendIDs, b.createdAt, b.createdAt)
}
