package models

import (
	"errors"
	"strconv"
	"time"
)

// UserID is the owning-user reference handed to this service by the auth
// layer. It is parsed and validated at the boundary instead of trusting a
// casted value.
type UserID int64

func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("user id is not a valid integer")
	}
	if id <= 0 {
		return 0, errors.New("user id must be positive")
	}
	return UserID(id), nil
}

type Platform string

const (
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformTiktok    Platform = "TIKTOK"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformInstagram, PlatformTiktok:
		return Platform(s), nil
	}
	return "", errors.New("unknown platform: " + s)
}

// Account holds one user's credential for one external platform identity.
// AccessToken and RefreshToken are stored as vault envelopes, never as
// plaintext. The tuple (user_id, platform, platform_account_id) is unique.
type Account struct {
	ID                      int64      `db:"id" json:"id"`
	UserID                  UserID     `db:"user_id" json:"user_id"`
	Platform                Platform   `db:"platform" json:"platform"`
	PlatformAccountID       string     `db:"platform_account_id" json:"platform_account_id"`
	Username                string     `db:"username" json:"username"`
	AccessToken             string     `db:"access_token" json:"-"`
	RefreshToken            string     `db:"refresh_token" json:"-"`
	AccessTokenExpiresAt    *time.Time `db:"access_token_expires_at" json:"access_token_expires_at"`
	RefreshTokenExpiresAt   *time.Time `db:"refresh_token_expires_at" json:"refresh_token_expires_at"`
	LongLivedTokenExpiresAt *time.Time `db:"long_lived_token_expires_at" json:"long_lived_token_expires_at"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// AccountTokenUpdate carries the fields a refresh cycle may rewrite. Nil
// pointers and empty strings leave the stored value untouched.
type AccountTokenUpdate struct {
	AccessToken             string
	RefreshToken            string
	AccessTokenExpiresAt    *time.Time
	RefreshTokenExpiresAt   *time.Time
	LongLivedTokenExpiresAt *time.Time
}
