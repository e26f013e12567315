package service

import (
	"context"

	"github.com/postpilot/postpilot/internal/models"
)

// Publisher is the platform-specific publish capability: push one post's
// media and caption to the external platform and return the identifier the
// platform assigned. Errors carry the platform's response text verbatim.
type Publisher interface {
	PublishPost(ctx context.Context, acc *models.Account, post *models.Post, accessToken string) (string, error)
}

// PublisherRegistry maps a platform to its adapter. Adding a platform is a
// registration at wiring time, not a switch edit.
type PublisherRegistry map[models.Platform]Publisher
