package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/services"
)

type UserHandlers struct {
	users    *services.UserService
	validate *validator.Validate
	logger   logging.Logger
}

func NewUserHandlers(users *services.UserService, validate *validator.Validate, logger logging.Logger) *UserHandlers {
	return &UserHandlers{users: users, validate: validate, logger: logger}
}

func (h *UserHandlers) Register(w http.ResponseWriter, r *http.Request) {

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.PersonalID, req.Email, req.Password, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandlers) Login(w http.ResponseWriter, r *http.Request) {

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, tokens, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		User:         *toUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (h *UserHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *UserHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {

	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), userID, profileUpdateFromRequest(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Nickname: profile.Nickname, UpdatedAt: profile.UpdatedAt})
}

func (h *UserHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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
