package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/pkg/utils"
)

var testCfg = config.Config{EncryptionKey: "0123456789abcdef0123456789abcdef"}

func seedAccountAndPost(t *testing.T, repo *fakePostRepo, platform models.Platform) *models.Post {
	t.Helper()

	encrypted, err := utils.Encrypt([]byte("plain-access-token"), []byte(testCfg.EncryptionKey))
	if err != nil {
		t.Fatal(err)
	}

	repo.accounts[1] = &models.Account{
		ID:                1,
		UserID:            7,
		Platform:          platform,
		PlatformAccountID: "platform-acc-1",
		AccessToken:       encrypted,
	}
	post := &models.Post{
		ID:          1,
		UserID:      7,
		AccountID:   1,
		Platform:    platform,
		Caption:     "hello",
		MediaURL:    "https://cdn.example.com/pic.jpg",
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      models.PostStatusPending,
	}
	repo.posts[1] = post
	return post
}

func TestPublishSuccess(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformTiktok)

	pub := &fakePublisher{result: "p123"}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if post.Status != models.PostStatusSuccess {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusSuccess)
	}
	if post.PlatformPostID != "p123" {
		t.Errorf("platform post ID = %q, want %q", post.PlatformPostID, "p123")
	}
	if post.PublishedAt == nil {
		t.Error("published timestamp not set")
	}
	if post.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", post.ErrorMessage)
	}
}

func TestPublishFailureRecordsErrorVerbatim(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformInstagram)

	pub := &fakePublisher{err: errors.New(`{"error":{"message":"rate limited"}}`)}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformInstagram: pub})

	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if post.Status != models.PostStatusFailed {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusFailed)
	}
	if !strings.Contains(post.ErrorMessage, "rate limited") {
		t.Errorf("error message %q does not contain platform text", post.ErrorMessage)
	}
	if post.PlatformPostID != "" || post.PublishedAt != nil {
		t.Error("success fields set on a failed post")
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformTiktok)

	pub := &fakePublisher{result: "p123"}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatal(err)
	}
	publishedAt := post.PublishedAt

	// Second call must be a no-op: no new adapter call, state unchanged.
	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatal(err)
	}

	if pub.calls != 1 {
		t.Errorf("adapter called %d times, want 1", pub.calls)
	}
	if post.Status != models.PostStatusSuccess || post.PublishedAt != publishedAt {
		t.Error("second publish mutated a terminal post")
	}
}

func TestPublishMissingPostIsNoOp(t *testing.T) {
	repo := newFakePostRepo()
	pub := &fakePublisher{result: "p123"}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

	if err := ps.Publish(context.Background(), 42); err != nil {
		t.Fatalf("missing post should be absorbed, got %v", err)
	}
	if pub.calls != 0 {
		t.Error("adapter called for a missing post")
	}
}

func TestPublishMissingAccountIsNoOp(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformTiktok)
	delete(repo.accounts, post.AccountID)

	pub := &fakePublisher{result: "p123"}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatalf("missing account should be absorbed, got %v", err)
	}
	if post.Status != models.PostStatusPending {
		t.Errorf("status = %s, want unchanged PENDING", post.Status)
	}
}

func TestPublishCorruptCredentialFailsClosed(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformTiktok)
	repo.accounts[1].AccessToken = "AAAA:AAAA:AAAA"

	pub := &fakePublisher{result: "p123"}
	ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

	err := ps.Publish(context.Background(), post.ID)
	if err == nil {
		t.Fatal("corrupt credential must surface a hard error")
	}
	if pub.calls != 0 {
		t.Error("adapter called despite undecryptable credential")
	}
	if post.Status != models.PostStatusFailed {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusFailed)
	}
}

func TestPublishOutcomeWriteFailureSurfaces(t *testing.T) {
	storeErr := errors.New("connection reset")

	t.Run("success write fails", func(t *testing.T) {
		repo := newFakePostRepo()
		post := seedAccountAndPost(t, repo, models.PlatformTiktok)
		repo.markPublishedErr = storeErr

		ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: &fakePublisher{result: "p123"}})

		err := ps.Publish(context.Background(), post.ID)
		if !errors.Is(err, storeErr) {
			t.Fatalf("err = %v, want the store error surfaced", err)
		}
		// The claim went through; the post is left in PUBLISHING for an
		// operator to spot rather than silently mislabeled.
		if post.Status != models.PostStatusPublishing {
			t.Errorf("status = %s, want %s", post.Status, models.PostStatusPublishing)
		}
	})

	t.Run("failure write fails", func(t *testing.T) {
		repo := newFakePostRepo()
		post := seedAccountAndPost(t, repo, models.PlatformTiktok)
		repo.markFailedErr = storeErr

		pub := &fakePublisher{err: errors.New("rate limited")}
		ps := NewPublishService(testCfg, repo, PublisherRegistry{models.PlatformTiktok: pub})

		err := ps.Publish(context.Background(), post.ID)
		if !errors.Is(err, storeErr) {
			t.Fatalf("err = %v, want the store error surfaced", err)
		}
		if post.Status != models.PostStatusPublishing {
			t.Errorf("status = %s, want %s", post.Status, models.PostStatusPublishing)
		}
	})
}

func TestPublishUnknownPlatform(t *testing.T) {
	repo := newFakePostRepo()
	post := seedAccountAndPost(t, repo, models.PlatformInstagram)

	ps := NewPublishService(testCfg, repo, PublisherRegistry{})

	if err := ps.Publish(context.Background(), post.ID); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if post.Status != models.PostStatusFailed {
		t.Errorf("status = %s, want %s", post.Status, models.PostStatusFailed)
	}
	if !strings.Contains(post.ErrorMessage, "no publisher registered") {
		t.Errorf("error message = %q", post.ErrorMessage)
	}
}
