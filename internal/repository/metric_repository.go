package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/unipost/unipost-api/internal/models"
)

type MetricRepository interface {
	GetByVariantID(ctx context.Context, variantID int64) (*models.Metric, error)
	Create(ctx context.Context, metric *models.Metric) (int64, error)
	Update(ctx context.Context, metric *models.Metric) error
	ListByAuthorID(ctx context.Context, authorID int64) ([]*models.Metric, error)
}

type metricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) MetricRepository {
	return &metricRepository{db: db}
}

const metricColumns = `id, variant_id, post_id, network, likes, comments, shares, impressions, collected_at`

func (r *metricRepository) GetByVariantID(ctx context.Context, variantID int64) (*models.Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics WHERE variant_id = $1`

	var m models.Metric
	err := r.db.QueryRowContext(ctx, query, variantID).Scan(&m.ID, &m.VariantID, &m.PostID, &m.Network, &m.Likes, &m.Comments, &m.Shares, &m.Impressions, &m.CollectedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &m, nil
}

func (r *metricRepository) Create(ctx context.Context, metric *models.Metric) (int64, error) {
	query := `
		INSERT INTO metrics (variant_id, post_id, network, likes, comments, shares, impressions, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, metric.VariantID, metric.PostID, metric.Network, metric.Likes, metric.Comments, metric.Shares, metric.Impressions, metric.CollectedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *metricRepository) Update(ctx context.Context, metric *models.Metric) error {
	query := `
		UPDATE metrics
		SET likes = $1,
			comments = $2,
			shares = $3,
			impressions = $4,
			collected_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, metric.Likes, metric.Comments, metric.Shares, metric.Impressions, metric.CollectedAt, metric.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *metricRepository) ListByAuthorID(ctx context.Context, authorID int64) ([]*models.Metric, error) {
	query := `
		SELECT m.id, m.variant_id, m.post_id, m.network, m.likes, m.comments, m.shares, m.impressions, m.collected_at
		FROM metrics m
		JOIN posts p ON p.id = m.post_id
		WHERE p.author_id = $1
		ORDER BY m.collected_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var metrics []*models.Metric
	for rows.Next() {
		var m models.Metric
		err := rows.Scan(&m.ID, &m.VariantID, &m.PostID, &m.Network, &m.Likes, &m.Comments, &m.Shares, &m.Impressions, &m.CollectedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}
