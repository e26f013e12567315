package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilot/postpilot/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, acc *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListExpiring(ctx context.Context, platform models.Platform, threshold time.Time) ([]*models.Account, error)
	UpdateTokens(ctx context.Context, id int64, update *models.AccountTokenUpdate) error
	Remove(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, user_id, platform, platform_account_id, username, access_token,
		refresh_token, access_token_expires_at, refresh_token_expires_at,
		long_lived_token_expires_at, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }, acc *models.Account) error {
	var username, refreshToken sql.NullString
	var accessExp, refreshExp, longLivedExp sql.NullTime

	err := row.Scan(&acc.ID, &acc.UserID, &acc.Platform, &acc.PlatformAccountID, &username,
		&acc.AccessToken, &refreshToken, &accessExp, &refreshExp, &longLivedExp,
		&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return err
	}

	acc.Username = username.String
	acc.RefreshToken = refreshToken.String
	if accessExp.Valid {
		acc.AccessTokenExpiresAt = &accessExp.Time
	}
	if refreshExp.Valid {
		acc.RefreshTokenExpiresAt = &refreshExp.Time
	}
	if longLivedExp.Valid {
		acc.LongLivedTokenExpiresAt = &longLivedExp.Time
	}
	return nil
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, acc *models.Account) (int64, error) {
	query := `
		INSERT INTO accounts (
			user_id,
			platform,
			platform_account_id,
			username,
			access_token,
			refresh_token,
			access_token_expires_at,
			refresh_token_expires_at,
			long_lived_token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (user_id, platform, platform_account_id)
		DO UPDATE SET
			username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, accounts.refresh_token),
			access_token_expires_at = EXCLUDED.access_token_expires_at,
			refresh_token_expires_at = EXCLUDED.refresh_token_expires_at,
			long_lived_token_expires_at = EXCLUDED.long_lived_token_expires_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query,
			acc.UserID, acc.Platform, acc.PlatformAccountID, acc.Username,
			acc.AccessToken, acc.RefreshToken,
			acc.AccessTokenExpiresAt, acc.RefreshTokenExpiresAt, acc.LongLivedTokenExpiresAt,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query,
			acc.UserID, acc.Platform, acc.PlatformAccountID, acc.Username,
			acc.AccessToken, acc.RefreshToken,
			acc.AccessTokenExpiresAt, acc.RefreshTokenExpiresAt, acc.LongLivedTokenExpiresAt,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var acc models.Account
	if err := scanAccount(row, &acc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &acc, nil
}

// ListExpiring returns accounts whose refresh-relevant expiry falls at or
// before threshold. Which timestamp is relevant depends on the platform:
// Instagram tracks a single long-lived token, TikTok rotates through a
// refresh token.
func (r *accountRepository) ListExpiring(ctx context.Context, platform models.Platform, threshold time.Time) ([]*models.Account, error) {
	var query string
	switch platform {
	case models.PlatformInstagram:
		query = `SELECT ` + accountColumns + ` FROM accounts
			WHERE platform = $1
			AND long_lived_token_expires_at IS NOT NULL
			AND long_lived_token_expires_at <= $2`
	case models.PlatformTiktok:
		query = `SELECT ` + accountColumns + ` FROM accounts
			WHERE platform = $1
			AND refresh_token IS NOT NULL
			AND refresh_token_expires_at IS NOT NULL
			AND refresh_token_expires_at <= $2`
	default:
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, platform, threshold)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var acc models.Account
		if err := scanAccount(rows, &acc); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &acc)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) UpdateTokens(ctx context.Context, id int64, update *models.AccountTokenUpdate) error {
	query := `
		UPDATE accounts
		SET
			access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			access_token_expires_at = COALESCE($4, access_token_expires_at),
			refresh_token_expires_at = COALESCE($5, refresh_token_expires_at),
			long_lived_token_expires_at = COALESCE($6, long_lived_token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id,
		update.AccessToken, update.RefreshToken,
		update.AccessTokenExpiresAt, update.RefreshTokenExpiresAt, update.LongLivedTokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; account may not exist", "account_id", id)
		return sql.ErrNoRows
	}

	return nil
}

// Remove deletes an account together with its posts. Post rows reference the
// account, so both deletes run in one transaction.
func (r *accountRepository) Remove(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE account_id = $1`, id); err != nil {
		slog.Info(err.Error())
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
