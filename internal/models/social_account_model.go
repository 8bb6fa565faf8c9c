package models

import "time"

// SocialAccount holds one user's linked account on one network. Token fields
// are stored AES-GCM encrypted; the credential resolver decrypts them before
// any adapter sees them.
type SocialAccount struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Network         string    `db:"network" json:"network"`
	AccountID       string    `db:"account_id" json:"account_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	AccessToken     string    `db:"access_token" json:"-"`
	AccessSecret    string    `db:"access_secret" json:"-"` // OAuth 1.0a secret (X) or app password (Bluesky)
	TokenExpiresAt  time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
