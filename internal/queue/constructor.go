package queue

import (
	"github.com/postpilot/postpilot/internal/service"
)

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// Worker consumes publish tasks and hands each one to the publish engine.
type Worker struct {
	ps service.PublishService
}

func NewWorker(ps service.PublishService) *Worker {
	return &Worker{ps: ps}
}
