package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// HandlePublishPostTask fires when a scheduled post comes due: every pending
// variant is fanned out to its network. Per-variant failures are recorded in
// the publish history rather than failing the task, so asynq does not
// re-publish variants that already went out.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("scheduled post no longer exists", "post_id", payload.PostID)
		return nil
	}

	outcomes, err := q.ps.PublishAllPending(ctx, post.AuthorID, post.ID)
	if err != nil {
		return err
	}

	for _, outcome := range outcomes {
		if !outcome.OK {
			slog.Info("variant publish failed during scheduled run",
				"post_id", post.ID,
				"variant_id", outcome.VariantID,
				"network", outcome.Network,
				"error", outcome.Error)
		}
	}

	return nil
}
