package httpapi

import (
	"time"

	"github.com/simvex/simvex-server/internal/server/models"
)

// ---- request DTOs (validated with go-playground/validator) ----

type registerRequest struct {
	PersonalID string `json:"personalId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Nickname   string `json:"nickname" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type updateProfileRequest struct {
	Nickname *string `json:"nickname"`
}

type updateProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   int    `json:"role" validate:"required,min=1"`
}

type updateMemberRoleRequest struct {
	Role int `json:"role" validate:"required,min=1"`
}

type askNodeRequest struct {
	Content string `json:"content" validate:"required"`
}

// ---- response DTOs ----

type profileResponse struct {
	Nickname  string    `json:"nickname"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type userResponse struct {
	ID          string           `json:"id"`
	PersonalID  string           `json:"personalId"`
	Email       string           `json:"email"`
	LastLoginAt *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	Profile     *profileResponse `json:"profile,omitempty"`
}

type memberResponse struct {
	ProjectID string        `json:"projectId"`
	UserID    string        `json:"userId"`
	Role      int           `json:"role"`
	CreatedAt time.Time     `json:"createdAt"`
	User      *userResponse `json:"user,omitempty"`
}

type teamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type projectResponse struct {
	ID             string           `json:"id"`
	TeamID         string           `json:"teamId"`
	Name           string           `json:"name"`
	ModelFolderURL string           `json:"modelFolderUrl,omitempty"`
	JSONFileURL    string           `json:"jsonFileUrl,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	LastAccessedAt time.Time        `json:"lastAccessedAt"`
	Team           *teamResponse    `json:"team,omitempty"`
	Members        []memberResponse `json:"members,omitempty"`
	Chats          []chatResponse   `json:"chats,omitempty"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type fileLocationResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ModelFolderURL string `json:"modelFolderUrl,omitempty"`
	JSONFileURL    string `json:"jsonFileUrl,omitempty"`
}

func profileUpdateFromRequest(req updateProfileRequest) models.ProfileUpdate {
	return models.ProfileUpdate{Nickname: req.Nickname}
}

// ---- model -> DTO mapping ----

func toUserResponse(u *models.User) *userResponse {
	if u == nil {
		return nil
	}
	resp := &userResponse{
		ID:          u.ID,
		PersonalID:  u.PersonalID,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if u.Profile != nil {
		resp.Profile = &profileResponse{Nickname: u.Profile.Nickname, UpdatedAt: u.Profile.UpdatedAt}
	}
	return resp
}

func toMemberResponse(m *models.ProjectMember) memberResponse {
	return memberResponse{
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		User:      toUserResponse(m.User),
	}
}

func toProjectResponse(p *models.Project) projectResponse {
	resp := projectResponse{
		ID:             p.ID,
		TeamID:         p.TeamID,
		Name:           p.Name,
		ModelFolderURL: p.ModelFolderURL,
		JSONFileURL:    p.JSONFileURL,
		CreatedAt:      p.CreatedAt,
		LastAccessedAt: p.LastAccessedAt,
	}
	if p.Team != nil {
		resp.Team = &teamResponse{ID: p.Team.ID, Name: p.Team.Name, CreatedAt: p.Team.CreatedAt}
	}
	for _, m := range p.Members {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	for _, c := range p.Chats {
		resp.Chats = append(resp.Chats, chatResponse{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt})
	}
	return resp
}

func toProjectResponses(list []*models.Project) []projectResponse {
	result := make([]projectResponse, 0, len(list))
	for _, p := range list {
		result = append(result, toProjectResponse(p))
	}
	return result
}
