package httpapi

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/services"
	"github.com/simvex/simvex-server/internal/server/uploads"
)

// maxUploadBytes caps an upload request's in-memory multipart buffer.
const maxUploadBytes = 512 << 20

// multipart field names, shared with the web client
const (
	fieldModelFiles = "glbFiles"
	fieldMetadata   = "metaData"
)

type ProjectHandlers struct {
	projects *services.ProjectService
	nodes    *services.NodeService
	validate *validator.Validate
	logger   logging.Logger
}

func NewProjectHandlers(projects *services.ProjectService, nodes *services.NodeService, validate *validator.Validate, logger logging.Logger) *ProjectHandlers {
	return &ProjectHandlers{projects: projects, nodes: nodes, validate: validate, logger: logger}
}

// parseFileSet pulls the model files and the optional metadata file out of
// the multipart form, as {filename, bytes, mimetype} triples.
func parseFileSet(r *http.Request) ([]uploads.FileUpload, *uploads.FileUpload, error) {

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, err
	}

	readOne := func(hdr *multipart.FileHeader) (uploads.FileUpload, error) {
		f, err := hdr.Open()
		if err != nil {
			return uploads.FileUpload{}, err
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return uploads.FileUpload{}, err
		}

		return uploads.FileUpload{
			Name:        hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}

	var modelFiles []uploads.FileUpload
	for _, hdr := range r.MultipartForm.File[fieldModelFiles] {
		file, err := readOne(hdr)
		if err != nil {
			return nil, nil, err
		}
		modelFiles = append(modelFiles, file)
	}

	var metadata *uploads.FileUpload
	if headers := r.MultipartForm.File[fieldMetadata]; len(headers) > 0 {
		file, err := readOne(headers[0])
		if err != nil {
			return nil, nil, err
		}
		metadata = &file
	}

	return modelFiles, metadata, nil
}

func (h *ProjectHandlers) Create(w http.ResponseWriter, r *http.Request) {

	creatorID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	modelFiles, metadata, err := parseFileSet(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	teamID := r.FormValue("teamId")
	name := r.FormValue("name")
	if teamID == "" || name == "" {
		writeError(w, http.StatusBadRequest, "teamId and name are required")
		return
	}

	project, err := h.projects.Create(r.Context(), teamID, name, creatorID, modelFiles, metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (h *ProjectHandlers) UploadFiles(w http.ResponseWriter, r *http.Request) {

	projectID := chi.URLParam(r, "id")

	modelFiles, metadata, err := parseFileSet(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	project, err := h.projects.UploadFiles(r.Context(), projectID, modelFiles, metadata)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (h *ProjectHandlers) GetFiles(w http.ResponseWriter, r *http.Request) {

	project, err := h.projects.GetFiles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileLocationResponse{
		ID:             project.ID,
		Name:           project.Name,
		ModelFolderURL: project.ModelFolderURL,
		JSONFileURL:    project.JSONFileURL,
	})
}

func (h *ProjectHandlers) ListFiles(w http.ResponseWriter, r *http.Request) {

	names, err := h.projects.ListFiles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

func (h *ProjectHandlers) FetchFile(w http.ResponseWriter, r *http.Request) {

	relPath := chi.URLParam(r, "*")
	if relPath == "" {
		writeError(w, http.StatusBadRequest, "file path is required")
		return
	}

	obj, err := h.projects.FetchFile(r.Context(), chi.URLParam(r, "id"), relPath)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	_, _ = io.Copy(w, obj.Body)
}

func (h *ProjectHandlers) FindForUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.projects.FindForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponses(list))
}

func (h *ProjectHandlers) FindForTeam(w http.ResponseWriter, r *http.Request) {
	list, err := h.projects.FindForTeam(r.Context(), chi.URLParam(r, "teamId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponses(list))
}

func (h *ProjectHandlers) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (h *ProjectHandlers) Update(w http.ResponseWriter, r *http.Request) {

	var req updateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	project, err := h.projects.Update(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (h *ProjectHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandlers) AddMember(w http.ResponseWriter, r *http.Request) {

	var req addMemberRequest
	if !h.decode(w, r, &req) {
		return
	}

	member, err := h.projects.AddMember(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *ProjectHandlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {

	var req updateMemberRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.projects.UpdateMemberRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"), req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.projects.RemoveMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandlers) TouchLastAccessed(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.TouchLastAccessed(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandlers) GetNode(w http.ResponseWriter, r *http.Request) {

	payload, err := h.nodes.GetNode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeName"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (h *ProjectHandlers) AskNode(w http.ResponseWriter, r *http.Request) {

	var req askNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	answer, err := h.nodes.AskAssistant(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "nodeName"), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// assistant response passes through verbatim
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(answer)
}

// decode unmarshals and validates a JSON request body. Returns false after
// writing the error response.
func (h *ProjectHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
