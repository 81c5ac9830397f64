package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// ExchangeErrorKind はOAuth交換失敗の種別を表す。
// ネットワーク障害・プロバイダーによる拒否・クレーム不正を呼び出し元が
// 区別できるようにする。いずれの種別もユーザーにはフラッシュメッセージ
// として表示され、サーバーエラーにはならない。
type ExchangeErrorKind string

const (
	// ExchangeErrNetwork は通信自体の失敗（接続不可、タイムアウト等）を示す。
	ExchangeErrNetwork ExchangeErrorKind = "network"
	// ExchangeErrProviderRejected はプロバイダーが非2xxを返したことを示す。
	ExchangeErrProviderRejected ExchangeErrorKind = "provider_rejected"
	// ExchangeErrMalformedClaims はレスポンスの解析失敗や必須クレーム欠落を示す。
	ExchangeErrMalformedClaims ExchangeErrorKind = "malformed_claims"
)

// ExchangeError はOAuth交換失敗の種別付きエラー。
type ExchangeError struct {
	Kind ExchangeErrorKind
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("oauth exchange failed (%s): %v", e.Kind, e.Err)
}

// Unwrap はラップされたエラーを返す。
func (e *ExchangeError) Unwrap() error { return e.Err }

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0（認可コードフロー）による認証を提供する。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleOAuthProvider{config: config}
}

// AuthCodeURL はGoogle OAuthの認証URLを生成する。
// スコープはopenid email profile。
func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// googleTokenResponse はGoogleのトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// 失敗はすべて*ExchangeErrorとして返し、種別で原因を区別できる。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*ProviderIdentity, error) {
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	return &ProviderIdentity{
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		AvatarURL: userInfo.Picture,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *GoogleOAuthProvider) exchangeToken(ctx context.Context, code string) (*googleTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("token request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Kind: ExchangeErrProviderRejected,
			Err:  fmt.Errorf("token exchange returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrMalformedClaims, Err: fmt.Errorf("failed to parse token response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return nil, &ExchangeError{Kind: ExchangeErrMalformedClaims, Err: fmt.Errorf("empty access token in response")}
	}

	return &tokenResp, nil
}

// fetchUserInfo はアクセストークンでGoogleのユーザー情報を取得する。
func (p *GoogleOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("failed to create user info request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("user info request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrNetwork, Err: fmt.Errorf("failed to read user info response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Kind: ExchangeErrProviderRejected,
			Err:  fmt.Errorf("user info fetch returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, &ExchangeError{Kind: ExchangeErrMalformedClaims, Err: fmt.Errorf("failed to parse user info response: %w", err)}
	}
	if userInfo.Email == "" {
		return nil, &ExchangeError{Kind: ExchangeErrMalformedClaims, Err: fmt.Errorf("empty email in user info response")}
	}

	return &userInfo, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
