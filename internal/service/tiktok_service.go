package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/transfer"
	"github.com/postpilot/postpilot/pkg/utils"
)

const tiktokAPIBaseURL = "https://open.tiktokapis.com"

type TiktokService interface {
	Publisher
	RefreshToken(ctx context.Context, acc *models.Account) error
}

type tiktokService struct {
	cfg     config.Config
	ar      repository.AccountRepository
	client  *http.Client
	baseURL string
}

func NewTiktokService(cfg config.Config, ar repository.AccountRepository) TiktokService {
	return &tiktokService{
		cfg:     cfg,
		ar:      ar,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: tiktokAPIBaseURL,
	}
}

// PublishPost fires TikTok's single-phase PULL_FROM_URL init call. The
// platform fetches the video asynchronously after accepting the request, so
// a returned publish ID means "accepted", not "live".
func (s *tiktokService) PublishPost(ctx context.Context, acc *models.Account, post *models.Post, accessToken string) (string, error) {
	publishReq := transfer.TiktokPublishRequest{
		Source:   "PULL_FROM_URL",
		VideoURL: post.MediaURL,
		Text:     post.Caption,
	}

	jsonData, err := json.Marshal(publishReq)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	reqURL := s.baseURL + "/v2/post/publish/initialize/"
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(strings.TrimSpace(string(respBody)))
	}

	var result transfer.TiktokPublishResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	publishID := result.Data.PublishID
	if publishID == "" {
		publishID = result.Data.VideoID
	}
	if publishID == "" {
		return "", errors.New("no publish ID returned from TikTok")
	}

	return publishID, nil
}

// RefreshToken trades the stored refresh token for a new token pair. TikTok
// may omit the new refresh token and its expiry; the previous values are
// kept in that case.
func (s *tiktokService) RefreshToken(ctx context.Context, acc *models.Account) error {
	if acc.RefreshToken == "" {
		return errors.New("account has no refresh token")
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	reqURL := s.baseURL + "/v2/oauth/token/"
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(s.cfg.TiktokClientKey + ":" + s.cfg.TiktokClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tiktok token refresh returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return err
	}

	if tokenResponse.AccessToken == "" {
		return errors.New("no access token returned from TikTok")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	update := models.AccountTokenUpdate{
		AccessToken: encryptedAccessToken,
	}
	if tokenResponse.ExpiresIn > 0 {
		expiresAt := GetExpiresAt(tokenResponse.ExpiresIn)
		update.AccessTokenExpiresAt = &expiresAt
	}
	if tokenResponse.RefreshToken != "" {
		encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.EncryptionKey))
		if err != nil {
			return err
		}
		update.RefreshToken = encryptedRefreshToken
	}
	if tokenResponse.RefreshExpiresIn > 0 {
		refreshExpiresAt := GetExpiresAt(tokenResponse.RefreshExpiresIn)
		update.RefreshTokenExpiresAt = &refreshExpiresAt
	}

	return s.ar.UpdateTokens(ctx, acc.ID, &update)
}
