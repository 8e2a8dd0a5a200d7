// Package uploads drives batched, concurrent uploads of project file sets
// into object storage and exposes the listing/fetch operations over the
// uploaded objects.
package uploads

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/storage"
)

// FileUpload is one incoming file, already parsed out of the multipart
// request by the HTTP layer: original filename, mimetype and raw bytes.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Location is the storage location produced by an upload batch. Either field
// may be empty after UploadAdditionalFiles when the corresponding side was
// not part of the batch.
type Location struct {
	ModelFolderURL  string
	MetadataFileURL string
}

// Service is the upload orchestrator. It owns no state beyond its
// collaborators and is safe for concurrent use.
type Service struct {
	store  storage.ObjectStore
	policy *storage.KeyPolicy
	logger logging.Logger
}

func NewService(store storage.ObjectStore, policy *storage.KeyPolicy, logger logging.Logger) *Service {
	return &Service{store: store, policy: policy, logger: logger}
}

// UploadProjectFiles uploads a project's full initial file set: every model
// file plus the metadata document. All puts run concurrently with no
// ordering guarantee; the call returns only after the whole batch finished.
//
// All-or-nothing: if any single put fails the call fails and no location is
// reported. Objects already written by the time of the failure are NOT
// deleted — there is no compensating rollback, callers must treat a failed
// batch as leaving orphan objects behind.
func (s *Service) UploadProjectFiles(ctx context.Context, projectID string, modelFiles []FileUpload, metadata FileUpload) (Location, error) {

	metadataKey := s.policy.DeriveKey(projectID, storage.RoleMetadata, metadata.Name)

	g, ctx := errgroup.WithContext(ctx)

	for _, f := range modelFiles {
		key := s.policy.DeriveKey(projectID, storage.RoleModel, f.Name)
		body, contentType := f.Data, f.ContentType
		g.Go(func() error {
			return s.store.Put(ctx, key, body, contentType)
		})
	}

	g.Go(func() error {
		return s.store.Put(ctx, metadataKey, metadata.Data, metadata.ContentType)
	})

	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "project upload batch failed", "project_id", projectID, "error", err)
		return Location{}, err
	}

	return Location{
		ModelFolderURL:  s.policy.ModelFolderURL(projectID),
		MetadataFileURL: s.policy.DeriveURL(metadataKey),
	}, nil
}

// UploadAdditionalFiles appends files to an existing project. Either side of
// the batch may be absent; with no files at all it performs no I/O and
// returns a zero Location (the caller keeps whatever location is on record).
// Concurrency and all-or-nothing semantics match UploadProjectFiles.
//
// Two concurrent calls against the same project are not serialized here:
// whichever result is recorded last wins.
func (s *Service) UploadAdditionalFiles(ctx context.Context, projectID string, modelFiles []FileUpload, metadata *FileUpload) (Location, error) {

	var loc Location

	if len(modelFiles) == 0 && metadata == nil {
		return loc, nil
	}

	var metadataKey string
	if metadata != nil {
		metadataKey = s.policy.DeriveKey(projectID, storage.RoleMetadata, metadata.Name)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, f := range modelFiles {
		key := s.policy.DeriveKey(projectID, storage.RoleModel, f.Name)
		body, contentType := f.Data, f.ContentType
		g.Go(func() error {
			return s.store.Put(ctx, key, body, contentType)
		})
	}

	if metadata != nil {
		body, contentType := metadata.Data, metadata.ContentType
		g.Go(func() error {
			return s.store.Put(ctx, metadataKey, body, contentType)
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "additional upload batch failed", "project_id", projectID, "error", err)
		return Location{}, err
	}

	if len(modelFiles) > 0 {
		loc.ModelFolderURL = s.policy.ModelFolderURL(projectID)
	}
	if metadata != nil {
		loc.MetadataFileURL = s.policy.DeriveURL(metadataKey)
	}

	return loc, nil
}

// ListProjectFiles returns the basenames of every object stored under the
// project's prefix. Basenames from different role subfolders are
// indistinguishable here; see storage.ObjectStore.List.
func (s *Service) ListProjectFiles(ctx context.Context, projectID string) ([]string, error) {
	return s.store.List(ctx, s.policy.FolderKey(projectID))
}

// FetchProjectFile streams a single stored object addressed by its path
// relative to the project's folder (e.g. "models/a1b2.glb").
func (s *Service) FetchProjectFile(ctx context.Context, projectID, relPath string) (*storage.Object, error) {
	return s.store.Get(ctx, s.policy.FolderKey(projectID)+"/"+relPath)
}
