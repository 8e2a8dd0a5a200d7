package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvex/simvex-server/internal/common"
	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/auth"
	sc "github.com/simvex/simvex-server/internal/server/config"
	"github.com/simvex/simvex-server/internal/server/models"
	"github.com/simvex/simvex-server/internal/server/services"
	"github.com/simvex/simvex-server/internal/server/storage"
	"github.com/simvex/simvex-server/internal/server/uploads"
)

// ---- in-memory collaborators backing the full HTTP stack ----

type stubProjectRepo struct {
	projects map[string]*models.Project
}

func (r *stubProjectRepo) CreateWithOwner(ctx context.Context, teamID, name, creatorID string) (*models.Project, error) {
	p := &models.Project{ID: "p-new", TeamID: teamID, Name: name,
		Members: []*models.ProjectMember{{ProjectID: "p-new", UserID: creatorID, Role: models.RoleOwner}}}
	r.projects[p.ID] = p
	return p, nil
}

func (r *stubProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (r *stubProjectRepo) GetDetail(ctx context.Context, id string) (*models.Project, error) {
	return r.GetByID(ctx, id)
}

func (r *stubProjectRepo) FindForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	var list []*models.Project
	for _, p := range r.projects {
		for _, m := range p.Members {
			if m.UserID == userID {
				list = append(list, p)
			}
		}
	}
	return list, nil
}

func (r *stubProjectRepo) FindForTeam(ctx context.Context, teamID string) ([]*models.Project, error) {
	var list []*models.Project
	for _, p := range r.projects {
		if p.TeamID == teamID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (r *stubProjectRepo) UpdateName(ctx context.Context, id, name string) error {
	p, ok := r.projects[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Name = name
	return nil
}

func (r *stubProjectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.projects[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *stubProjectRepo) AddMember(ctx context.Context, projectID, userID string, role int) (*models.ProjectMember, error) {
	p, ok := r.projects[projectID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return nil, common.ErrorConflict
		}
	}
	m := &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role, CreatedAt: time.Now()}
	p.Members = append(p.Members, m)
	return m, nil
}

func (r *stubProjectRepo) UpdateMemberRole(ctx context.Context, projectID, userID string, role int) error {
	p, ok := r.projects[projectID]
	if !ok {
		return common.ErrorNotFound
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			m.Role = role
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *stubProjectRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	p, ok := r.projects[projectID]
	if !ok {
		return common.ErrorNotFound
	}
	for i, m := range p.Members {
		if m.UserID == userID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *stubProjectRepo) RecordUploadResult(ctx context.Context, projectID, modelFolderURL, jsonFileURL string) error {
	p, ok := r.projects[projectID]
	if !ok {
		return common.ErrorNotFound
	}
	if modelFolderURL != "" {
		p.ModelFolderURL = modelFolderURL
	}
	if jsonFileURL != "" {
		p.JSONFileURL = jsonFileURL
	}
	return nil
}

func (r *stubProjectRepo) TouchLastAccessed(ctx context.Context, id string) error {
	if _, ok := r.projects[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

type stubUploader struct {
	uploaded []string
	files    map[string][]byte
}

func (u *stubUploader) UploadProjectFiles(ctx context.Context, projectID string, modelFiles []uploads.FileUpload, metadata uploads.FileUpload) (uploads.Location, error) {
	for _, f := range modelFiles {
		u.uploaded = append(u.uploaded, f.Name)
	}
	u.uploaded = append(u.uploaded, metadata.Name)
	return uploads.Location{
		ModelFolderURL:  "https://cdn.example.com/projects/" + projectID + "/models",
		MetadataFileURL: "https://cdn.example.com/projects/" + projectID + "/data/meta.json",
	}, nil
}

func (u *stubUploader) UploadAdditionalFiles(ctx context.Context, projectID string, modelFiles []uploads.FileUpload, metadata *uploads.FileUpload) (uploads.Location, error) {
	var loc uploads.Location
	for _, f := range modelFiles {
		u.uploaded = append(u.uploaded, f.Name)
		loc.ModelFolderURL = "https://cdn.example.com/projects/" + projectID + "/models"
	}
	if metadata != nil {
		u.uploaded = append(u.uploaded, metadata.Name)
		loc.MetadataFileURL = "https://cdn.example.com/projects/" + projectID + "/data/meta.json"
	}
	return loc, nil
}

func (u *stubUploader) ListProjectFiles(ctx context.Context, projectID string) ([]string, error) {
	return u.uploaded, nil
}

func (u *stubUploader) FetchProjectFile(ctx context.Context, projectID, relPath string) (*storage.Object, error) {
	data, ok := u.files[relPath]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   "application/octet-stream",
		ContentLength: int64(len(data)),
	}, nil
}

type stubUserRepo struct {
	users map[string]*models.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User, nickname string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, common.ErrorConflict
		}
	}
	user.ID = "u1"
	user.Profile = &models.Profile{UserID: user.ID, Nickname: nickname}
	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			stored := *u
			return &stored, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	stored := *u
	return &stored, nil
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (r *stubUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *stubUserRepo) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if update.Nickname != nil {
		u.Profile.Nickname = *update.Nickname
	}
	u.Profile.UpdatedAt = time.Now()
	return u.Profile, nil
}

type testEnv struct {
	server   *httptest.Server
	repo     *stubProjectRepo
	uploader *stubUploader
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	secret := []byte("test-secret")

	repo := &stubProjectRepo{projects: map[string]*models.Project{}}
	uploader := &stubUploader{files: map[string][]byte{}}
	userRepo := &stubUserRepo{users: map[string]*models.User{}}

	cfg := &sc.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
	}

	handler := NewRouter(Deps{
		Projects:  services.NewProjectService(repo, uploader, logger),
		Nodes:     services.NewNodeService(repo, nil, nil, logger),
		Users:     services.NewUserService(userRepo, cfg, logger),
		SecretKey: secret,
		Logger:    logger,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	token, err := auth.GenerateToken("u1", secret, time.Minute)
	require.NoError(t, err)

	return &testEnv{server: srv, repo: repo, uploader: uploader, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for field, names := range files {
		for _, name := range names {
			fw, err := w.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/projects/p1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateProjectWithFiles(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t,
		map[string]string{"teamId": "t1", "name": "Gearbox"},
		map[string][]string{
			"glbFiles": {"wheel.glb", "frame.glb"},
			"metaData": {"meta_data.json"},
		})

	resp := env.do(t, http.MethodPost, "/projects/", body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got projectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "Gearbox", got.Name)
	assert.Equal(t, "https://cdn.example.com/projects/p-new/models", got.ModelFolderURL)
	assert.Equal(t, "https://cdn.example.com/projects/p-new/data/meta.json", got.JSONFileURL)
	assert.ElementsMatch(t, []string{"wheel.glb", "frame.glb", "meta_data.json"}, env.uploader.uploaded)
}

func TestCreateProjectMissingName(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, map[string]string{"teamId": "t1"}, nil)

	resp := env.do(t, http.MethodPost, "/projects/", body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetFilesLocation(t *testing.T) {
	env := newTestEnv(t)
	env.repo.projects["p1"] = &models.Project{
		ID: "p1", Name: "Gearbox",
		ModelFolderURL: "https://cdn.example.com/projects/p1/models",
		JSONFileURL:    "https://cdn.example.com/projects/p1/data/x.json",
	}

	resp := env.do(t, http.MethodGet, "/projects/p1/files", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got fileLocationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "https://cdn.example.com/projects/p1/models", got.ModelFolderURL)
}

func TestFetchFileStreams(t *testing.T) {
	env := newTestEnv(t)
	env.repo.projects["p1"] = &models.Project{ID: "p1"}
	env.uploader.files["models/a.glb"] = []byte("binary payload")

	resp := env.do(t, http.MethodGet, "/projects/p1/files/raw/models/a.glb", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "binary payload", string(data))
}

func TestMembersOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.repo.projects["p1"] = &models.Project{ID: "p1"}

	resp := env.do(t, http.MethodPost, "/projects/p1/members",
		strings.NewReader(`{"userId":"u2","role":2}`), "application/json")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// the same user twice is a conflict
	resp = env.do(t, http.MethodPost, "/projects/p1/members",
		strings.NewReader(`{"userId":"u2","role":2}`), "application/json")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/projects/p1/members/u2", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/projects/p1/members/u2", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/projects/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterAndLoginOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/auth/register", "application/json",
		strings.NewReader(`{"personalId":"PID-1","email":"a@example.com","password":"s3cret-pass","nickname":"alice"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(env.server.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"s3cret-pass"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.AccessToken)
	assert.NotEmpty(t, got.RefreshToken)
	assert.Equal(t, "a@example.com", got.User.Email)

	resp, err = http.Post(env.server.URL+"/auth/login", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"wrong-pass"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/auth/register", "application/json",
		strings.NewReader(`{"email":"not-an-email","password":"short"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
