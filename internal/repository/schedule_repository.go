package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/unipost/unipost-api/internal/models"
)

type ScheduleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, schedule *models.Schedule) (int64, error)
	GetByPostID(ctx context.Context, postID int64) (*models.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, tx *sql.Tx, schedule *models.Schedule) (int64, error) {
	query := `
		INSERT INTO schedules (post_id, run_at, timezone)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, schedule.PostID, schedule.RunAt, schedule.Timezone).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, schedule.PostID, schedule.RunAt, schedule.Timezone).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduleRepository) GetByPostID(ctx context.Context, postID int64) (*models.Schedule, error) {
	query := `SELECT id, post_id, run_at, timezone, created_at FROM schedules WHERE post_id = $1`

	var s models.Schedule
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&s.ID, &s.PostID, &s.RunAt, &s.Timezone, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}

// ListDue returns schedules whose run instant has elapsed while the owning
// post is still waiting to publish.
func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT s.id, s.post_id, s.run_at, s.timezone, s.created_at
		FROM schedules s
		JOIN posts p ON p.id = s.post_id
		WHERE s.run_at <= $1 AND p.status = $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		var s models.Schedule
		err := rows.Scan(&s.ID, &s.PostID, &s.RunAt, &s.Timezone, &s.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		schedules = append(schedules, &s)
	}
	return schedules, rows.Err()
}
