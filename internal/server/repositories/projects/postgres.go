package projects

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

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateWithOwner(ctx context.Context, teamID, name, creatorID string) (*models.Project, error) {

	project := &models.Project{TeamID: teamID, Name: name}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		query :=
			`INSERT INTO projects (team_id, name)
			 VALUES ($1, $2)
			 RETURNING id, created_at, last_accessed_at
			 `

		err := tx.QueryRowContext(ctx, query, teamID, name).
			Scan(&project.ID, &project.CreatedAt, &project.LastAccessedAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		query =
			`INSERT INTO project_members (project_id, user_id, role)
			 VALUES ($1, $2, $3)
			 `

		if _, err := tx.ExecContext(ctx, query, project.ID, creatorID, models.RoleOwner); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return r.GetDetail(ctx, project.ID)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *PostgresRepository) getByID(ctx context.Context, db dbx.DBTX, id string) (*models.Project, error) {
	query :=
		`SELECT id, team_id, name, COALESCE(model_folder_url, ''), COALESCE(json_file_url, ''), created_at, last_accessed_at
		 FROM projects
		 WHERE id = $1
		 `

	p := &models.Project{}
	err := db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.TeamID, &p.Name, &p.ModelFolderURL, &p.JSONFileURL, &p.CreatedAt, &p.LastAccessedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetDetail(ctx context.Context, id string) (*models.Project, error) {
	p, err := r.getByID(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	if p.Team, err = r.loadTeam(ctx, p.TeamID); err != nil {
		return nil, err
	}
	if p.Members, err = r.loadMembers(ctx, p.ID); err != nil {
		return nil, err
	}
	if p.Chats, err = r.loadChats(ctx, p.ID); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *PostgresRepository) FindForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	query :=
		`SELECT p.id, p.team_id, p.name, COALESCE(p.model_folder_url, ''), COALESCE(p.json_file_url, ''), p.created_at, p.last_accessed_at
		 FROM projects p
		 JOIN project_members pm ON pm.project_id = p.id
		 WHERE pm.user_id = $1
		 ORDER BY p.created_at
		 `
	return r.findProjects(ctx, query, userID)
}

func (r *PostgresRepository) FindForTeam(ctx context.Context, teamID string) ([]*models.Project, error) {
	query :=
		`SELECT p.id, p.team_id, p.name, COALESCE(p.model_folder_url, ''), COALESCE(p.json_file_url, ''), p.created_at, p.last_accessed_at
		 FROM projects p
		 WHERE p.team_id = $1
		 ORDER BY p.created_at
		 `
	return r.findProjects(ctx, query, teamID)
}

func (r *PostgresRepository) findProjects(ctx context.Context, query string, arg any) ([]*models.Project, error) {

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.ModelFolderURL, &p.JSONFileURL, &p.CreatedAt, &p.LastAccessedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for _, p := range result {
		if p.Team, err = r.loadTeam(ctx, p.TeamID); err != nil {
			return nil, err
		}
		if p.Members, err = r.loadMembers(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *PostgresRepository) loadTeam(ctx context.Context, teamID string) (*models.Team, error) {
	query :=
		`SELECT id, name, created_at FROM teams
		 WHERE id = $1
		 `

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, teamID).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// dangling team reference, surface the project anyway
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) loadMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error) {
	query :=
		`SELECT pm.project_id, pm.user_id, pm.role, pm.created_at,
		        u.personal_id, u.email, u.created_at,
		        COALESCE(pr.nickname, '')
		 FROM project_members pm
		 JOIN users u ON u.id = pm.user_id
		 LEFT JOIN user_profiles pr ON pr.user_id = u.id
		 WHERE pm.project_id = $1
		 ORDER BY pm.created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var members []*models.ProjectMember
	for rows.Next() {
		m := &models.ProjectMember{User: &models.User{Profile: &models.Profile{}}}
		err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt,
			&m.User.PersonalID, &m.User.Email, &m.User.CreatedAt,
			&m.User.Profile.Nickname)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.User.ID = m.UserID
		m.User.Profile.UserID = m.UserID
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return members, nil
}

func (r *PostgresRepository) loadChats(ctx context.Context, projectID string) ([]*models.Chat, error) {
	query :=
		`SELECT id, project_id, title, created_at FROM chats
		 WHERE project_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		c := &models.Chat{}
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return chats, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id, name string) error {
	query :=
		`UPDATE projects SET name = $2, last_accessed_at = now()
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, id, name)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM projects
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, id)
}

func (r *PostgresRepository) AddMember(ctx context.Context, projectID, userID string, role int) (*models.ProjectMember, error) {

	query :=
		`INSERT INTO project_members (project_id, user_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	m := &models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	err := r.db.QueryRowContext(ctx, query, projectID, userID, role).Scan(&m.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, projectID, userID string, role int) error {
	query :=
		`UPDATE project_members SET role = $3
		 WHERE project_id = $1 AND user_id = $2
		 `
	return r.execExpectingRow(ctx, query, projectID, userID, role)
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	query :=
		`DELETE FROM project_members
		 WHERE project_id = $1 AND user_id = $2
		 `
	return r.execExpectingRow(ctx, query, projectID, userID)
}

func (r *PostgresRepository) RecordUploadResult(ctx context.Context, projectID, modelFolderURL, jsonFileURL string) error {
	// NULLIF/COALESCE keeps a column untouched when the batch carried no
	// files for it. Plain last-writer-wins between concurrent batches.
	query :=
		`UPDATE projects
		 SET model_folder_url = COALESCE(NULLIF($2, ''), model_folder_url),
		     json_file_url = COALESCE(NULLIF($3, ''), json_file_url)
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, projectID, modelFolderURL, jsonFileURL)
}

func (r *PostgresRepository) TouchLastAccessed(ctx context.Context, id string) error {
	query :=
		`UPDATE projects SET last_accessed_at = now()
		 WHERE id = $1
		 `
	return r.execExpectingRow(ctx, query, id)
}

// execExpectingRow runs a statement that must affect exactly the addressed
// row; zero affected rows means the target does not exist.
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
