package entities

import (
	"encoding/json"
	"net/mail"
	"time"

	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// User owns an ordered set of thought references and an unordered set of
// friend references. Neither set is validated against other documents.
type User struct {
	id         valueobjects.UserID
	username   string
	email      string
	thoughtIDs []valueobjects.ThoughtID
	friendIDs  []valueobjects.UserID
	createdAt  time.Time
	updatedAt  time.Time
}

// NewUser creates a user with empty thought and friend sets
func NewUser(username, email string, now time.Time) (*User, error) {
	if err := ValidateProfile(username, email); err != nil {
		return nil, err
	}
	return &User{
		id:         valueobjects.NewUserID(),
		username:   username,
		email:      email,
		thoughtIDs: []valueobjects.ThoughtID{},
		friendIDs:  []valueobjects.UserID{},
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructUser rebuilds a user from stored data with preserved timestamps
func ReconstructUser(
	id valueobjects.UserID,
	username, email string,
	thoughtIDs []valueobjects.ThoughtID,
	friendIDs []valueobjects.UserID,
	createdAt, updatedAt time.Time,
) *User {
	thoughts := make([]valueobjects.ThoughtID, len(thoughtIDs))
	copy(thoughts, thoughtIDs)
	friends := make([]valueobjects.UserID, len(friendIDs))
	copy(friends, friendIDs)
	return &User{
		id:         id,
		username:   username,
		email:      email,
		thoughtIDs: thoughts,
		friendIDs:  friends,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (u *User) ID() valueobjects.UserID { return u.id }
func (u *User) Username() string        { return u.username }
func (u *User) Email() string           { return u.email }
func (u *User) CreatedAt() time.Time    { return u.createdAt }
func (u *User) UpdatedAt() time.Time    { return u.updatedAt }
func (u *User) FriendCount() int        { return len(u.friendIDs) }

// ThoughtIDs returns the owned thought references in link order
func (u *User) ThoughtIDs() []valueobjects.ThoughtID {
	out := make([]valueobjects.ThoughtID, len(u.thoughtIDs))
	copy(out, u.thoughtIDs)
	return out
}

// FriendIDs returns the friend references
func (u *User) FriendIDs() []valueobjects.UserID {
	out := make([]valueobjects.UserID, len(u.friendIDs))
	copy(out, u.friendIDs)
	return out
}

// UpdateProfile replaces username and email
func (u *User) UpdateProfile(username, email string, now time.Time) error {
	if err := ValidateProfile(username, email); err != nil {
		return err
	}
	u.username = username
	u.email = email
	u.updatedAt = now
	return nil
}

// OwnsThought reports whether the thought id is in the owned set
func (u *User) OwnsThought(id valueobjects.ThoughtID) bool {
	for _, t := range u.thoughtIDs {
		if t.Equals(id) {
			return true
		}
	}
	return false
}

// LinkThought appends the thought id unless it is already present
func (u *User) LinkThought(id valueobjects.ThoughtID) bool {
	if u.OwnsThought(id) {
		return false
	}
	u.thoughtIDs = append(u.thoughtIDs, id)
	return true
}

// UnlinkThought removes the thought id, keeping the order of the rest
func (u *User) UnlinkThought(id valueobjects.ThoughtID) bool {
	for i, t := range u.thoughtIDs {
		if t.Equals(id) {
			u.thoughtIDs = append(u.thoughtIDs[:i], u.thoughtIDs[i+1:]...)
			return true
		}
	}
	return false
}

// HasFriend reports whether the friend id is in the friend set
func (u *User) HasFriend(id valueobjects.UserID) bool {
	for _, f := range u.friendIDs {
		if f.Equals(id) {
			return true
		}
	}
	return false
}

// AddFriend adds the friend id and reports whether it was new. Any id is
// accepted, the user's own included.
func (u *User) AddFriend(id valueobjects.UserID) bool {
	if u.HasFriend(id) {
		return false
	}
	u.friendIDs = append(u.friendIDs, id)
	return true
}

// RemoveFriend removes the friend id and reports whether it was present
func (u *User) RemoveFriend(id valueobjects.UserID) bool {
	for i, f := range u.friendIDs {
		if f.Equals(id) {
			u.friendIDs = append(u.friendIDs[:i], u.friendIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (u *User) Clone() *User {
	return ReconstructUser(u.id, u.username, u.email, u.thoughtIDs, u.friendIDs, u.createdAt, u.updatedAt)
}

// UserSnapshot is the wire view of a user with thought references unresolved
type UserSnapshot struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Thoughts    []string  `json:"thoughts"`
	Friends     []string  `json:"friends"`
	FriendCount int       `json:"friendCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Snapshot returns the wire view of the user
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:          u.id.String(),
		Username:    u.username,
		Email:       u.email,
		Thoughts:    valueobjects.ThoughtIDsToStrings(u.thoughtIDs),
		Friends:     valueobjects.UserIDsToStrings(u.friendIDs),
		FriendCount: len(u.friendIDs),
		CreatedAt:   u.createdAt,
		UpdatedAt:   u.updatedAt,
	}
}

// MarshalJSON implements json.Marshaler
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Snapshot())
}

// ValidateProfile checks username and email
func ValidateProfile(username, email string) error {
	if err := validateText("username", username, MaxUsernameLength); err != nil {
		return err
	}
	if email == "" {
		return pkgerrors.NewValidationError("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return pkgerrors.NewValidationError("email", "must be a valid email")
	}
	return nil
}
