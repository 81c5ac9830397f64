// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kabudash/internal/auth"
	"github.com/hitoshi/kabudash/internal/middleware"
	"github.com/hitoshi/kabudash/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginAuth(ctx context.Context, mode model.AuthMode) (cookieValue, authURL string, err error)
	HandleCallback(ctx context.Context, session *model.Session, state, code string) (*auth.CallbackResult, error)
	Logout(ctx context.Context, session *model.Session) error
}

// SessionSaver はフラッシュ消費後のセッション書き戻しに必要なインターフェース。
type SessionSaver interface {
	SaveSession(ctx context.Context, session *model.Session) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Signup はサインアップとしてGoogle OAuthフローを開始する。
// GET /auth/google/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.beginAuth(w, r, model.AuthModeSignup)
}

// Login はログインとしてGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.beginAuth(w, r, model.AuthModeLogin)
}

// beginAuth は認証モードを記録したセッションを発行し、プロバイダーへ転送する。
func (h *AuthHandler) beginAuth(w http.ResponseWriter, r *http.Request, mode model.AuthMode) {
	cookieValue, authURL, err := h.service.BeginAuth(r.Context(), mode)
	if err != nil {
		slog.Error("failed to begin auth flow", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, cookieValue)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 認証の成否はすべてフラッシュメッセージ付きのリダイレクトで返し、
// サーバーエラーになるのはセッションストア障害時のみ。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	result, err := h.service.HandleCallback(r.Context(), session, state, code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, result.CookieValue)
	http.Redirect(w, r, h.config.BaseURL+result.RedirectPath, http.StatusSeeOther)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if err := h.service.Logout(r.Context(), session); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		// ログアウト失敗してもCookieはクリアする
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, h.config.BaseURL+auth.PathLanding, http.StatusSeeOther)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if !session.Authenticated() {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"email":      session.User.Email,
		"name":       session.User.Name,
		"avatar_url": session.User.AvatarURL,
	})
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
