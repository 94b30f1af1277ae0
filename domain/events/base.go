package events

import (
	"time"

	"thoughtgraph/domain/core/valueobjects"
)

// SourceThoughtGraph is the event source name used on the bus
const SourceThoughtGraph = "thoughtgraph.api"

// Event types
const (
	TypeUserCreated     = "user.created"
	TypeUserDeleted     = "user.deleted"
	TypeThoughtCreated  = "thought.created"
	TypeThoughtDeleted  = "thought.deleted"
	TypeReactionAdded   = "reaction.added"
	TypeReactionRemoved = "reaction.removed"
	TypeFriendAdded     = "friend.added"
	TypeFriendRemoved   = "friend.removed"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// User Events

// UserCreated is raised when a new user is created
type UserCreated struct {
	BaseEvent
	UserID   valueobjects.UserID `json:"user_id"`
	Username string              `json:"username"`
}

// NewUserCreated creates a UserCreated event
func NewUserCreated(userID valueobjects.UserID, username string, timestamp time.Time) UserCreated {
	return UserCreated{
		BaseEvent: newBase(userID.String(), TypeUserCreated, timestamp),
		UserID:    userID,
		Username:  username,
	}
}

// UserDeleted is raised after a user and the thoughts it owned are gone
type UserDeleted struct {
	BaseEvent
	UserID            valueobjects.UserID `json:"user_id"`
	DeletedThoughtIDs []string            `json:"deleted_thought_ids"`
	Warnings          int                 `json:"warnings"`
}

// NewUserDeleted creates a UserDeleted event
func NewUserDeleted(userID valueobjects.UserID, deletedThoughtIDs []string, warnings int, timestamp time.Time) UserDeleted {
	return UserDeleted{
		BaseEvent:         newBase(userID.String(), TypeUserDeleted, timestamp),
		UserID:            userID,
		DeletedThoughtIDs: deletedThoughtIDs,
		Warnings:          warnings,
	}
}

// Thought Events

// ThoughtCreated is raised once a thought is linked to its owner
type ThoughtCreated struct {
	BaseEvent
	ThoughtID valueobjects.ThoughtID `json:"thought_id"`
	UserID    valueobjects.UserID    `json:"user_id"`
}

// NewThoughtCreated creates a ThoughtCreated event
func NewThoughtCreated(thoughtID valueobjects.ThoughtID, userID valueobjects.UserID, timestamp time.Time) ThoughtCreated {
	return ThoughtCreated{
		BaseEvent: newBase(thoughtID.String(), TypeThoughtCreated, timestamp),
		ThoughtID: thoughtID,
		UserID:    userID,
	}
}

// ThoughtDeleted is raised when a thought is deleted
type ThoughtDeleted struct {
	BaseEvent
	ThoughtID valueobjects.ThoughtID `json:"thought_id"`
	UserID    valueobjects.UserID    `json:"user_id"`
}

// NewThoughtDeleted creates a ThoughtDeleted event
func NewThoughtDeleted(thoughtID valueobjects.ThoughtID, userID valueobjects.UserID, timestamp time.Time) ThoughtDeleted {
	return ThoughtDeleted{
		BaseEvent: newBase(thoughtID.String(), TypeThoughtDeleted, timestamp),
		ThoughtID: thoughtID,
		UserID:    userID,
	}
}

// Reaction Events

// ReactionAdded is raised when a reaction is added to a thought
type ReactionAdded struct {
	BaseEvent
	ThoughtID  valueobjects.ThoughtID  `json:"thought_id"`
	ReactionID valueobjects.ReactionID `json:"reaction_id"`
	Username   string                  `json:"username"`
}

// NewReactionAdded creates a ReactionAdded event
func NewReactionAdded(thoughtID valueobjects.ThoughtID, reactionID valueobjects.ReactionID, username string, timestamp time.Time) ReactionAdded {
	return ReactionAdded{
		BaseEvent:  newBase(thoughtID.String(), TypeReactionAdded, timestamp),
		ThoughtID:  thoughtID,
		ReactionID: reactionID,
		Username:   username,
	}
}

// ReactionRemoved is raised when a reaction is removed from a thought
type ReactionRemoved struct {
	BaseEvent
	ThoughtID  valueobjects.ThoughtID  `json:"thought_id"`
	ReactionID valueobjects.ReactionID `json:"reaction_id"`
}

// NewReactionRemoved creates a ReactionRemoved event
func NewReactionRemoved(thoughtID valueobjects.ThoughtID, reactionID valueobjects.ReactionID, timestamp time.Time) ReactionRemoved {
	return ReactionRemoved{
		BaseEvent:  newBase(thoughtID.String(), TypeReactionRemoved, timestamp),
		ThoughtID:  thoughtID,
		ReactionID: reactionID,
	}
}

// Friend Events

// FriendAdded is raised when a friend reference is added
type FriendAdded struct {
	BaseEvent
	UserID   valueobjects.UserID `json:"user_id"`
	FriendID valueobjects.UserID `json:"friend_id"`
}

// NewFriendAdded creates a FriendAdded event
func NewFriendAdded(userID, friendID valueobjects.UserID, timestamp time.Time) FriendAdded {
	return FriendAdded{
		BaseEvent: newBase(userID.String(), TypeFriendAdded, timestamp),
		UserID:    userID,
		FriendID:  friendID,
	}
}

// FriendRemoved is raised when a friend reference is removed
type FriendRemoved struct {
	BaseEvent
	UserID   valueobjects.UserID `json:"user_id"`
	FriendID valueobjects.UserID `json:"friend_id"`
}

// NewFriendRemoved creates a FriendRemoved event
func NewFriendRemoved(userID, friendID valueobjects.UserID, timestamp time.Time) FriendRemoved {
	return FriendRemoved{
		BaseEvent: newBase(userID.String(), TypeFriendRemoved, timestamp),
		UserID:    userID,
		FriendID:  friendID,
	}
}
