package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/simvex/simvex-server/internal/common"
	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/auth"
	sc "github.com/simvex/simvex-server/internal/server/config"
	"github.com/simvex/simvex-server/internal/server/models"
	"github.com/simvex/simvex-server/internal/server/repositories/users"
)

const bcryptCost = 10

// TokenPair is what a successful login hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService covers registration, login, password changes and profile
// reads/updates. Password hashes never leave this service.
type UserService struct {
	repo   users.Repository
	config *sc.Config
	logger logging.Logger
}

func NewUserService(repo users.Repository, config *sc.Config, logger logging.Logger) *UserService {
	return &UserService{repo: repo, config: config, logger: logger}
}

func (s *UserService) Register(ctx context.Context, personalID, email, password, nickname string) (*models.User, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash error: %w", err)
	}

	user := &models.User{PersonalID: personalID, Email: email, PasswordHash: string(hash)}

	created, err := s.repo.Create(ctx, user, nickname)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)

	created.PasswordHash = ""
	return created, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, nil, err
	}

	secret := []byte(s.config.SecretKey)

	access, err := auth.GenerateToken(user.ID, secret, s.config.AccessTokenValidityDuration)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := auth.GenerateToken(user.ID, secret, s.config.RefreshTokenValidityDuration)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return common.ErrorUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash error: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	return s.repo.UpdateProfile(ctx, userID, update)
}
