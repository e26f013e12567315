package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Client enqueues one publish task per due post. MaxRetry is zero: a failed
// publish is terminal, there is no automatic retry.
type Client struct {
	c *asynq.Client
}

func NewClient(c *asynq.Client) *Client {
	return &Client{c: c}
}

func (q *Client) Dispatch(ctx context.Context, postID int64) error {
	taskPayload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload, asynq.MaxRetry(0))

	if _, err := q.c.EnqueueContext(ctx, task); err != nil {
		return err
	}

	slog.Info("publish task enqueued", "post_id", postID)
	return nil
}
