package transfer

type TiktokPublishRequest struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
	Text     string `json:"text"`
}

type TiktokPublishResponse struct {
	Data  TiktokPublishData `json:"data"`
	Error TiktokError       `json:"error"`
}

// TikTok has answered with either field depending on API version; the
// adapter prefers publish_id.
type TiktokPublishData struct {
	PublishID string `json:"publish_id"`
	VideoID   string `json:"video_id"`
}

type TiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type TiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
}
