package models

import "time"

// User is an account identity. PasswordHash never leaves the users
// repository and the auth service.
type User struct {
	ID           string
	PersonalID   string
	Email        string
	PasswordHash string
	LastLoginAt  *time.Time
	CreatedAt    time.Time

	Profile *Profile
}

// Profile holds the user-editable part of an account.
type Profile struct {
	UserID    string
	Nickname  string
	UpdatedAt time.Time
}

// ProfileUpdate enumerates exactly the mutable profile fields. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	Nickname *string
}
