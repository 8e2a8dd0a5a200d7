// Package projects persists Project and ProjectMember records: the mapping
// between a project's logical identity, its roster and its last-known
// storage location.
package projects

import (
	"context"

	"github.com/simvex/simvex-server/internal/server/models"
)

// Repository is the persistence contract for the project directory.
//
// Not-found semantics: operations addressing a single project or a single
// (project, user) membership pair return common.ErrorNotFound when the row
// does not exist; AddMember returns common.ErrorConflict when the pair
// already exists.
type Repository interface {
	// CreateWithOwner inserts the project and its creator's owner membership
	// in a single transaction. A project must never exist without the
	// creator's membership row.
	CreateWithOwner(ctx context.Context, teamID, name, creatorID string) (*models.Project, error)

	GetByID(ctx context.Context, id string) (*models.Project, error)
	// GetDetail returns the project with team, members (incl. profiles) and
	// chats eagerly loaded.
	GetDetail(ctx context.Context, id string) (*models.Project, error)
	// FindForUser returns every project the user is a member of, with team
	// and roster eagerly loaded. Unbounded: no pagination.
	FindForUser(ctx context.Context, userID string) ([]*models.Project, error)
	// FindForTeam returns every project of the team, same eager loading and
	// the same unbounded-result caveat as FindForUser.
	FindForTeam(ctx context.Context, teamID string) ([]*models.Project, error)

	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, projectID, userID string, role int) (*models.ProjectMember, error)
	UpdateMemberRole(ctx context.Context, projectID, userID string, role int) error
	RemoveMember(ctx context.Context, projectID, userID string) error

	// RecordUploadResult persists the storage location produced by an upload
	// batch. An empty URL leaves the corresponding column untouched, so an
	// additional-files batch that carried only one side does not erase the
	// other. Last writer wins; no version check.
	RecordUploadResult(ctx context.Context, projectID, modelFolderURL, jsonFileURL string) error

	TouchLastAccessed(ctx context.Context, id string) error
}
