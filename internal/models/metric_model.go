package models

import "time"

// Metric is the single live engagement snapshot for a variant. Refresh
// overwrites the row in place; no history is kept.
type Metric struct {
	ID          int64     `db:"id" json:"id"`
	VariantID   int64     `db:"variant_id" json:"variant_id"`
	PostID      int64     `db:"post_id" json:"post_id"`
	Network     string    `db:"network" json:"network"`
	Likes       int64     `db:"likes" json:"likes"`
	Comments    int64     `db:"comments" json:"comments"`
	Shares      int64     `db:"shares" json:"shares"`
	Impressions int64     `db:"impressions" json:"impressions"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}
