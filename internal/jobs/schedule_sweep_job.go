package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/unipost/unipost-api/internal/queue"
	"github.com/unipost/unipost-api/internal/repository"
)

// ScheduleSweepJob re-enqueues due scheduled posts. Tasks normally arrive
// through asynq at composition time; the sweep catches posts whose task was
// lost, e.g. across a Redis flush or a deploy window.
type ScheduleSweepJob struct {
	sr     repository.ScheduleRepository
	client *asynq.Client
}

func NewScheduleSweepJob(sr repository.ScheduleRepository, client *asynq.Client) *ScheduleSweepJob {
	return &ScheduleSweepJob{
		sr:     sr,
		client: client,
	}
}

func (j *ScheduleSweepJob) SweepDuePosts() {
	ctx := context.Background()

	schedules, err := j.sr.ListDue(ctx, time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, schedule := range schedules {
		err := queue.EnqueuePost(j.client, queue.PublishPostPayload{PostID: schedule.PostID}, 0)
		if err != nil {
			slog.Info("could not enqueue due post", "post_id", schedule.PostID, "error", err.Error())
		}
	}

	if len(schedules) > 0 {
		slog.Info("schedule sweep enqueued posts", "count", len(schedules))
	}
}
