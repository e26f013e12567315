package models

import (
	"errors"
	"time"
)

type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         UserID     `db:"user_id" json:"user_id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	Platform       Platform   `db:"platform" json:"platform"`
	Caption        string     `db:"caption" json:"caption"`
	MediaURL       string     `db:"media_url" json:"media_url"`
	ScheduledAt    time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status         PostStatus `db:"status" json:"status"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at"`
	PlatformPostID string     `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   string     `db:"error_message" json:"error_message"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PostStatus transitions are one-way: PENDING is claimed into PUBLISHING by
// exactly one worker, which then lands on SUCCESS or FAILED. Both outcomes
// are terminal.
type PostStatus string

const (
	PostStatusPending    PostStatus = "PENDING"
	PostStatusPublishing PostStatus = "PUBLISHING"
	PostStatusSuccess    PostStatus = "SUCCESS"
	PostStatusFailed     PostStatus = "FAILED"
)

func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case PostStatusPending, PostStatusPublishing, PostStatusSuccess, PostStatusFailed:
		return PostStatus(s), nil
	}
	return "", errors.New("unknown post status: " + s)
}
