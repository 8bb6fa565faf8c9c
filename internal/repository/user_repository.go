package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/unipost/unipost-api/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetMembership(ctx context.Context, userID, organizationID int64) (*models.Membership, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, email, name, role_id, organization_id, created_at FROM users WHERE id = $1`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.OrganizationID, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetMembership(ctx context.Context, userID, organizationID int64) (*models.Membership, error) {
	query := `SELECT id, user_id, organization_id, role, created_at FROM memberships WHERE user_id = $1 AND organization_id = $2`

	var m models.Membership
	err := r.db.QueryRowContext(ctx, query, userID, organizationID).Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &m, nil
}
