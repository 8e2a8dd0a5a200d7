// Package models defines server-side data models persisted in the database.
package models

import "time"

// Project is a team-owned workspace holding a set of uploaded 3D assets.
//
// ModelFolderURL and JSONFileURL together form the project's storage
// location. They are derived from the project id by the key policy active
// when the files were first uploaded and are written only by project
// creation and RecordUploadResult; a project with no uploads has both empty.
type Project struct {
	ID             string
	TeamID         string
	Name           string
	ModelFolderURL string
	JSONFileURL    string
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// eager-loaded associations, nil unless the query asked for them
	Team    *Team
	Members []*ProjectMember
	Chats   []*Chat
}

// RoleOwner is the membership role assigned automatically to a project's
// creator. Other integer values are reserved for lower-privilege roles.
const RoleOwner = 1

// ProjectMember links a user to a project. Keyed by (ProjectID, UserID);
// Role is an integer with 1 = owner, assigned to the creator automatically.
type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      int
	CreatedAt time.Time

	User *User
}

// Team owns zero or more projects. Managed elsewhere; read-only here.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Chat is a project-scoped conversation. Managed elsewhere; included
// read-only in project detail responses.
type Chat struct {
	ID        string
	ProjectID string
	Title     string
	CreatedAt time.Time
}
