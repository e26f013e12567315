package service

import (
	"bytes"
	"context"
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

const instagramGraphBaseURL = "https://graph.facebook.com/v19.0"

type InstagramService interface {
	Publisher
	RefreshToken(ctx context.Context, acc *models.Account) error
}

type instagramService struct {
	cfg     config.Config
	ar      repository.AccountRepository
	client  *http.Client
	baseURL string
}

func NewInstagramService(cfg config.Config, ar repository.AccountRepository) InstagramService {
	return &instagramService{
		cfg:     cfg,
		ar:      ar,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: instagramGraphBaseURL,
	}
}

// PublishPost runs the two-phase Graph API protocol: create a media
// container referencing the hosted image, then commit the container. A
// failure in either phase aborts the publish; a container created by a
// failed phase 2 is left behind on the platform side.
func (s *instagramService) PublishPost(ctx context.Context, acc *models.Account, post *models.Post, accessToken string) (string, error) {
	containerID, err := s.createContainer(ctx, acc.PlatformAccountID, post.MediaURL, post.Caption, accessToken)
	if err != nil {
		return "", err
	}

	mediaID, err := s.publishContainer(ctx, acc.PlatformAccountID, containerID, accessToken)
	if err != nil {
		return "", err
	}

	return mediaID, nil
}

func (s *instagramService) createContainer(ctx context.Context, accountID, mediaURL, caption, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media", s.baseURL, accountID)

	payload := map[string]string{
		"image_url":    mediaURL,
		"caption":      caption,
		"access_token": accessToken,
	}

	var result transfer.InstagramMediaResponse
	if err := s.postJSON(ctx, reqURL, payload, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", errors.New("no container ID returned from Instagram")
	}

	return result.ID, nil
}

func (s *instagramService) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media_publish", s.baseURL, accountID)

	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result transfer.InstagramMediaResponse
	if err := s.postJSON(ctx, reqURL, payload, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}

	return result.ID, nil
}

func (s *instagramService) postJSON(ctx context.Context, reqURL string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	// The platform's rejection text is surfaced to the caller untouched so
	// it lands verbatim on the post record.
	if resp.StatusCode != http.StatusOK {
		return errors.New(strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// RefreshToken exchanges the account's still-valid long-lived token for a
// fresh one. The Graph API refuses this exchange once the token has already
// expired, so refreshes must land inside the expiry window.
func (s *instagramService) RefreshToken(ctx context.Context, acc *models.Account) error {
	token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", s.cfg.InstagramAppID)
	params.Set("client_secret", s.cfg.InstagramAppSecret)
	params.Set("fb_exchange_token", token)

	reqURL := fmt.Sprintf("%s/oauth/access_token?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("instagram token exchange returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return err
	}

	if result.AccessToken == "" {
		return errors.New("no access token returned from Instagram")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	update := models.AccountTokenUpdate{
		AccessToken: encryptedAccessToken,
	}
	if result.ExpiresIn > 0 {
		expiresAt := GetExpiresAt(result.ExpiresIn)
		update.LongLivedTokenExpiresAt = &expiresAt
	}

	return s.ar.UpdateTokens(ctx, acc.ID, &update)
}
