package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilot/postpilot/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetWithAccount(ctx context.Context, id int64) (*models.Post, *models.Account, error)
	ListDueIDs(ctx context.Context, now time.Time) ([]int64, error)
	ClaimPending(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, account_id, platform, caption, media_url, scheduled_at,
		status, published_at, platform_post_id, error_message, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, account_id, platform, caption, media_url, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.Platform, post.Caption, post.MediaURL, post.ScheduledAt, models.PostStatusPending).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.Platform, post.Caption, post.MediaURL, post.ScheduledAt, models.PostStatusPending).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanPost(row interface{ Scan(...any) error }, post *models.Post) error {
	var publishedAt sql.NullTime
	var platformPostID, errorMessage sql.NullString

	err := row.Scan(&post.ID, &post.UserID, &post.AccountID, &post.Platform, &post.Caption,
		&post.MediaURL, &post.ScheduledAt, &post.Status, &publishedAt, &platformPostID,
		&errorMessage, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return err
	}

	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	post.PlatformPostID = platformPostID.String
	post.ErrorMessage = errorMessage.String
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	if err := scanPost(row, &post); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) GetWithAccount(ctx context.Context, id int64) (*models.Post, *models.Account, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil || post == nil {
		return nil, nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, post.AccountID)

	var acc models.Account
	if err := scanAccount(row, &acc); err != nil {
		if err == sql.ErrNoRows {
			return post, nil, nil
		}
		slog.Info(err.Error())
		return nil, nil, err
	}

	return post, &acc, nil
}

func (r *postRepository) ListDueIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `SELECT id FROM posts WHERE status = $1 AND scheduled_at <= $2 ORDER BY scheduled_at`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return ids, nil
}

// ClaimPending flips a post from PENDING to PUBLISHING in a single
// conditional update. At most one caller wins; everyone else sees false.
func (r *postRepository) ClaimPending(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now(), id, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = $2,
			platform_post_id = $3,
			error_message = NULL,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusSuccess, publishedAt, platformPostID, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE posts
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
