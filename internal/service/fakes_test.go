package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/postpilot/postpilot/internal/models"
)

type fakePostRepo struct {
	posts    map[int64]*models.Post
	accounts map[int64]*models.Account

	claimCalls int

	markPublishedErr error
	markFailedErr    error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:    make(map[int64]*models.Post),
		accounts: make(map[int64]*models.Account),
	}
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	id := int64(len(f.posts) + 1)
	post.ID = id
	post.Status = models.PostStatusPending
	f.posts[id] = post
	return id, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) GetWithAccount(ctx context.Context, id int64) (*models.Post, *models.Account, error) {
	post := f.posts[id]
	if post == nil {
		return nil, nil, nil
	}
	return post, f.accounts[post.AccountID], nil
}

func (f *fakePostRepo) ListDueIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	for id, post := range f.posts {
		if post.Status == models.PostStatusPending && !post.ScheduledAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakePostRepo) ClaimPending(ctx context.Context, id int64) (bool, error) {
	f.claimCalls++
	post := f.posts[id]
	if post == nil || post.Status != models.PostStatusPending {
		return false, nil
	}
	post.Status = models.PostStatusPublishing
	return true, nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	if f.markPublishedErr != nil {
		return f.markPublishedErr
	}
	post := f.posts[id]
	post.Status = models.PostStatusSuccess
	post.PlatformPostID = platformPostID
	post.PublishedAt = &publishedAt
	post.ErrorMessage = ""
	return nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	if f.markFailedErr != nil {
		return f.markFailedErr
	}
	post := f.posts[id]
	post.Status = models.PostStatusFailed
	post.ErrorMessage = errorMessage
	return nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	delete(f.posts, id)
	return nil
}

type fakeAccountRepo struct {
	accounts map[int64]*models.Account
	updates  map[int64]*models.AccountTokenUpdate
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[int64]*models.Account),
		updates:  make(map[int64]*models.AccountTokenUpdate),
	}
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, acc *models.Account) (int64, error) {
	id := int64(len(f.accounts) + 1)
	acc.ID = id
	f.accounts[id] = acc
	return id, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return f.accounts[id], nil
}

func (f *fakeAccountRepo) ListExpiring(ctx context.Context, platform models.Platform, threshold time.Time) ([]*models.Account, error) {
	var out []*models.Account
	for _, acc := range f.accounts {
		if acc.Platform != platform {
			continue
		}
		var expiry *time.Time
		switch platform {
		case models.PlatformInstagram:
			expiry = acc.LongLivedTokenExpiresAt
		case models.PlatformTiktok:
			if acc.RefreshToken == "" {
				continue
			}
			expiry = acc.RefreshTokenExpiresAt
		}
		if expiry != nil && !expiry.After(threshold) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) UpdateTokens(ctx context.Context, id int64, update *models.AccountTokenUpdate) error {
	f.updates[id] = update
	return nil
}

func (f *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	delete(f.accounts, id)
	return nil
}

// fakePublisher records publish calls and answers with a canned result.
type fakePublisher struct {
	calls  int
	result string
	err    error
}

func (f *fakePublisher) PublishPost(ctx context.Context, acc *models.Account, post *models.Post, accessToken string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}
