package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/unipost/unipost-api/internal/models"
)

type SocialAccountRepository interface {
	GetByUserAndNetwork(ctx context.Context, userID int64, network string) (*models.SocialAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, user_id, network, account_id, account_name, account_username, access_token, access_secret, token_expires_at, created_at, updated_at`

func (r *socialAccountRepository) GetByUserAndNetwork(ctx context.Context, userID int64, network string) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE user_id = $1 AND network = $2`

	var a models.SocialAccount
	err := r.db.QueryRowContext(ctx, query, userID, network).Scan(&a.ID, &a.UserID, &a.Network, &a.AccountID, &a.AccountName, &a.AccountUsername, &a.AccessToken, &a.AccessSecret, &a.TokenExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &a, nil
}

func (r *socialAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var a models.SocialAccount
		err := rows.Scan(&a.ID, &a.UserID, &a.Network, &a.AccountID, &a.AccountName, &a.AccountUsername, &a.AccessToken, &a.AccessSecret, &a.TokenExpiresAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}
