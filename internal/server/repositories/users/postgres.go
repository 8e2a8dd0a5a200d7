package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/simvex/simvex-server/internal/common"
	"github.com/simvex/simvex-server/internal/dbx"
	"github.com/simvex/simvex-server/internal/server/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User, nickname string) (*models.User, error) {

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		query :=
			`INSERT INTO users (personal_id, email, password_hash)
			 VALUES ($1, $2, $3)
			 RETURNING id, created_at
			 `

		err := tx.QueryRowContext(ctx, query, user.PersonalID, user.Email, user.PasswordHash).
			Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return common.ErrorConflict
			}
			return fmt.Errorf("db error: %w", err)
		}

		query =
			`INSERT INTO user_profiles (user_id, nickname)
			 VALUES ($1, $2)
			 `

		if _, err := tx.ExecContext(ctx, query, user.ID, nickname); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	user.Profile = &models.Profile{UserID: user.ID, Nickname: nickname}
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT u.id, u.personal_id, u.email, u.password_hash, u.last_login_at, u.created_at,
		        COALESCE(pr.nickname, '')
		 FROM users u
		 LEFT JOIN user_profiles pr ON pr.user_id = u.id
		 WHERE u.email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT u.id, u.personal_id, u.email, u.password_hash, u.last_login_at, u.created_at,
		        COALESCE(pr.nickname, '')
		 FROM users u
		 LEFT JOIN user_profiles pr ON pr.user_id = u.id
		 WHERE u.id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u := &models.User{Profile: &models.Profile{}}

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.PersonalID, &u.Email, &u.PasswordHash, &u.LastLoginAt, &u.CreatedAt,
			&u.Profile.Nickname)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Profile.UserID = u.ID
	return u, nil
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET last_login_at = now()
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	query :=
		`UPDATE user_profiles
		 SET nickname = COALESCE($2, nickname), updated_at = now()
		 WHERE user_id = $1
		 RETURNING user_id, nickname, updated_at
		 `

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID, update.Nickname).
		Scan(&p.UserID, &p.Nickname, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
