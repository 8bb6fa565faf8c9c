package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/unipost/unipost-api/internal/models"
)

type VariantRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Variant, error)
	Create(ctx context.Context, tx *sql.Tx, variant *models.Variant) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Variant, error)
	ListWithReferenceByAuthor(ctx context.Context, authorID int64) ([]*models.Variant, error)
	MarkPublished(ctx context.Context, id int64, uri, permalink string, sentAt time.Time) error
	SetDateSent(ctx context.Context, id int64, sentAt time.Time) error
	CountUnpublished(ctx context.Context, postID int64) (int64, error)
}

type variantRepository struct {
	db *sql.DB
}

func NewVariantRepository(db *sql.DB) VariantRepository {
	return &variantRepository{db: db}
}

const variantColumns = `id, post_id, network, text, status, uri, permalink, date_sent, time_sent, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (*models.Variant, error) {
	var v models.Variant
	err := row.Scan(&v.ID, &v.PostID, &v.Network, &v.Text, &v.Status, &v.URI, &v.Permalink, &v.DateSent, &v.TimeSent, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepository) Create(ctx context.Context, tx *sql.Tx, variant *models.Variant) (int64, error) {
	query := `
		INSERT INTO variants (post_id, network, text, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, variant.PostID, variant.Network, variant.Text, variant.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, variant.PostID, variant.Network, variant.Text, variant.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *variantRepository) GetByID(ctx context.Context, id int64) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE id = $1`

	v, err := scanVariant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return v, nil
}

func (r *variantRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE post_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var variants []*models.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// ListWithReferenceByAuthor returns the author's variants carrying an
// external reference (uri or permalink), the candidates for metrics
// reconciliation.
func (r *variantRepository) ListWithReferenceByAuthor(ctx context.Context, authorID int64) ([]*models.Variant, error) {
	query := `
		SELECT v.id, v.post_id, v.network, v.text, v.status, v.uri, v.permalink, v.date_sent, v.time_sent, v.created_at, v.updated_at
		FROM variants v
		JOIN posts p ON p.id = v.post_id
		WHERE p.author_id = $1 AND (v.uri IS NOT NULL OR v.permalink IS NOT NULL)
	`

	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var variants []*models.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *variantRepository) MarkPublished(ctx context.Context, id int64, uri, permalink string, sentAt time.Time) error {
	dateSent, timeSent := models.SplitInstant(sentAt)

	query := `
		UPDATE variants
		SET status = $1,
			uri = $2,
			permalink = NULLIF($3, ''),
			date_sent = $4,
			time_sent = $5,
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, uri, permalink, dateSent, timeSent, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// SetDateSent restamps the publish instant from remote data during metrics
// reconciliation, also forcing the status to PUBLISHED.
func (r *variantRepository) SetDateSent(ctx context.Context, id int64, sentAt time.Time) error {
	dateSent, timeSent := models.SplitInstant(sentAt)

	query := `
		UPDATE variants
		SET status = $1,
			date_sent = $2,
			time_sent = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, dateSent, timeSent, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *variantRepository) CountUnpublished(ctx context.Context, postID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM variants WHERE post_id = $1 AND status != $2`

	var count int64
	err := r.db.QueryRowContext(ctx, query, postID, models.PostStatusPublished).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}
