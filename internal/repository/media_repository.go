package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/unipost/unipost-api/internal/models"
)

type MediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, media *models.Media) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Media, error)
}

type mediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, tx *sql.Tx, media *models.Media) (int64, error) {
	query := `
		INSERT INTO medias (post_id, media_order, type, mime, size_bytes, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, media.PostID, media.MediaOrder, media.Type, media.Mime, media.SizeBytes, media.URL).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, media.PostID, media.MediaOrder, media.Type, media.Mime, media.SizeBytes, media.URL).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *mediaRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Media, error) {
	query := `
		SELECT id, post_id, media_order, type, mime, size_bytes, url, created_at
		FROM medias
		WHERE post_id = $1
		ORDER BY media_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var medias []*models.Media
	for rows.Next() {
		var m models.Media
		err := rows.Scan(&m.ID, &m.PostID, &m.MediaOrder, &m.Type, &m.Mime, &m.SizeBytes, &m.URL, &m.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		medias = append(medias, &m)
	}
	return medias, rows.Err()
}
