// Package services contains the application services sitting between the
// HTTP layer and the repositories/object storage.
package services

import (
	"context"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/models"
	"github.com/simvex/simvex-server/internal/server/repositories/projects"
	"github.com/simvex/simvex-server/internal/server/storage"
	"github.com/simvex/simvex-server/internal/server/uploads"
)

// Uploader is the part of the upload orchestrator the project service
// depends on.
type Uploader interface {
	UploadProjectFiles(ctx context.Context, projectID string, modelFiles []uploads.FileUpload, metadata uploads.FileUpload) (uploads.Location, error)
	UploadAdditionalFiles(ctx context.Context, projectID string, modelFiles []uploads.FileUpload, metadata *uploads.FileUpload) (uploads.Location, error)
	ListProjectFiles(ctx context.Context, projectID string) ([]string, error)
	FetchProjectFile(ctx context.Context, projectID, relPath string) (*storage.Object, error)
}

// ProjectService implements the project directory operations and ties upload
// results back to the project record.
type ProjectService struct {
	repo     projects.Repository
	uploader Uploader
	logger   logging.Logger
}

func NewProjectService(repo projects.Repository, uploader Uploader, logger logging.Logger) *ProjectService {
	return &ProjectService{repo: repo, uploader: uploader, logger: logger}
}

// Create inserts the project (with the creator as owner) and, when an
// initial file set was attached, uploads it and records the resulting
// location. A failed upload leaves the project created but without a
// storage location; nothing is recorded for a failed batch.
func (s *ProjectService) Create(ctx context.Context, teamID, name, creatorID string, modelFiles []uploads.FileUpload, metadata *uploads.FileUpload) (*models.Project, error) {

	project, err := s.repo.CreateWithOwner(ctx, teamID, name, creatorID)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "project created", "project_id", project.ID, "team_id", teamID)

	if len(modelFiles) == 0 || metadata == nil {
		return project, nil
	}

	loc, err := s.uploader.UploadProjectFiles(ctx, project.ID, modelFiles, *metadata)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RecordUploadResult(ctx, project.ID, loc.ModelFolderURL, loc.MetadataFileURL); err != nil {
		return nil, err
	}

	return s.repo.GetDetail(ctx, project.ID)
}

// UploadFiles appends files to an existing project. With no files at all it
// is a no-op that returns the project with its current location.
func (s *ProjectService) UploadFiles(ctx context.Context, projectID string, modelFiles []uploads.FileUpload, metadata *uploads.FileUpload) (*models.Project, error) {

	// existence check up front, so a typo'd id does not upload orphans
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if len(modelFiles) == 0 && metadata == nil {
		return project, nil
	}

	loc, err := s.uploader.UploadAdditionalFiles(ctx, projectID, modelFiles, metadata)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RecordUploadResult(ctx, projectID, loc.ModelFolderURL, loc.MetadataFileURL); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, projectID)
}

// GetFiles returns the project's recorded storage location.
func (s *ProjectService) GetFiles(ctx context.Context, projectID string) (*models.Project, error) {
	return s.repo.GetByID(ctx, projectID)
}

// ListFiles returns the basenames of the objects stored for the project.
func (s *ProjectService) ListFiles(ctx context.Context, projectID string) ([]string, error) {
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.uploader.ListProjectFiles(ctx, projectID)
}

// FetchFile streams one stored object of the project.
func (s *ProjectService) FetchFile(ctx context.Context, projectID, relPath string) (*storage.Object, error) {
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.uploader.FetchProjectFile(ctx, projectID, relPath)
}

func (s *ProjectService) FindForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	return s.repo.FindForUser(ctx, userID)
}

func (s *ProjectService) FindForTeam(ctx context.Context, teamID string) ([]*models.Project, error) {
	return s.repo.FindForTeam(ctx, teamID)
}

func (s *ProjectService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	return s.repo.GetDetail(ctx, projectID)
}

func (s *ProjectService) Update(ctx context.Context, projectID, name string) (*models.Project, error) {
	if err := s.repo.UpdateName(ctx, projectID, name); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, projectID)
}

func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	return s.repo.Delete(ctx, projectID)
}

func (s *ProjectService) AddMember(ctx context.Context, projectID, userID string, role int) (*models.ProjectMember, error) {
	return s.repo.AddMember(ctx, projectID, userID, role)
}

func (s *ProjectService) UpdateMemberRole(ctx context.Context, projectID, userID string, role int) error {
	return s.repo.UpdateMemberRole(ctx, projectID, userID, role)
}

func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID string) error {
	return s.repo.RemoveMember(ctx, projectID, userID)
}

func (s *ProjectService) TouchLastAccessed(ctx context.Context, projectID string) error {
	return s.repo.TouchLastAccessed(ctx, projectID)
}
