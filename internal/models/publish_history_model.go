package models

import "time"

// PublishHistory records one publish attempt for one variant. ErrorMessage is
// empty on success.
type PublishHistory struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	VariantID    int64     `db:"variant_id" json:"variant_id"`
	Network      string    `db:"network" json:"network"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
