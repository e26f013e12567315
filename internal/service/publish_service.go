package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/pkg/utils"
)

// PublishService drives one post through its publish state machine and
// records the outcome. A post is acted on at most once: the PENDING claim is
// an atomic conditional update, so duplicate dispatch of the same post ID is
// harmless.
type PublishService interface {
	Publish(ctx context.Context, postID int64) error
}

type publishService struct {
	cfg        config.Config
	pr         repository.PostRepository
	publishers PublisherRegistry
	now        func() time.Time
}

func NewPublishService(cfg config.Config, pr repository.PostRepository, publishers PublisherRegistry) PublishService {
	return &publishService{
		cfg:        cfg,
		pr:         pr,
		publishers: publishers,
		now:        time.Now,
	}
}

func (s *publishService) Publish(ctx context.Context, postID int64) error {
	post, acc, err := s.pr.GetWithAccount(ctx, postID)
	if err != nil {
		return err
	}

	// A missing post or account is a best-effort no-op, not a failure. It is
	// logged so it stays distinguishable from real publish errors.
	if post == nil {
		slog.Info("publish skipped: post not found", "post_id", postID)
		return nil
	}
	if acc == nil {
		slog.Warn("publish skipped: account not found", "post_id", postID, "account_id", post.AccountID)
		return nil
	}

	if post.Status != models.PostStatusPending {
		slog.Info("publish skipped: post is not pending", "post_id", postID, "status", post.Status)
		return nil
	}

	claimed, err := s.pr.ClaimPending(ctx, postID)
	if err != nil {
		return err
	}
	if !claimed {
		slog.Info("publish skipped: post already claimed", "post_id", postID)
		return nil
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.EncryptionKey))
	if err != nil {
		// Tag mismatch or wrong key means the stored secret is corrupt or
		// tampered with. Record the failure and surface the error; it must
		// not be swallowed.
		if markErr := s.pr.MarkFailed(ctx, postID, err.Error()); markErr != nil {
			slog.Error("post stranded in PUBLISHING: failed to record decrypt failure",
				"post_id", postID, "error", markErr)
		}
		return fmt.Errorf("decrypt access token for account %d: %w", acc.ID, err)
	}

	publisher, ok := s.publishers[post.Platform]
	if !ok {
		msg := fmt.Sprintf("no publisher registered for platform %s", post.Platform)
		slog.Error(msg, "post_id", postID)
		return s.markFailed(ctx, postID, msg)
	}

	platformPostID, err := publisher.PublishPost(ctx, acc, post, accessToken)
	if err != nil {
		// Terminal: the error text is stored verbatim and no retry is
		// scheduled. Operators resubmit manually.
		slog.Info("publish failed", "post_id", postID, "platform", post.Platform, "error", err)
		return s.markFailed(ctx, postID, err.Error())
	}

	if err := s.pr.MarkPublished(ctx, postID, platformPostID, s.now()); err != nil {
		// The claim already went through, so until this write lands the
		// post sits in PUBLISHING with no sweep to reclaim it.
		slog.Error("post stranded in PUBLISHING: failed to record publish success",
			"post_id", postID, "platform_post_id", platformPostID, "error", err)
		return fmt.Errorf("failed to update status: %w", err)
	}

	slog.Info("post published", "post_id", postID, "platform", post.Platform, "platform_post_id", platformPostID)
	return nil
}

func (s *publishService) markFailed(ctx context.Context, postID int64, msg string) error {
	if err := s.pr.MarkFailed(ctx, postID, msg); err != nil {
		slog.Error("post stranded in PUBLISHING: failed to record publish failure",
			"post_id", postID, "error", err)
		return err
	}
	return nil
}
