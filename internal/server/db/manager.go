// Package db owns the database connection and hands out repositories.
package db

import (
	"context"
	"database/sql"

	"github.com/simvex/simvex-server/internal/server/repositories/projects"
	"github.com/simvex/simvex-server/internal/server/repositories/users"
)

// RepositoryManager is the single owner of the *sql.DB; everything else
// reaches the database through the repositories it hands out.
type RepositoryManager interface {
	Conn() *sql.DB
	Projects() projects.Repository
	Users() users.Repository
	RunMigrations(ctx context.Context) error
	Close() error
}
