package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/kabudash/internal/auth"
	"github.com/hitoshi/kabudash/internal/middleware"
	"github.com/hitoshi/kabudash/internal/model"
)

// mockAuthService は関数フィールドで挙動を差し替えるAuthServiceInterfaceモック。
type mockAuthService struct {
	beginAuthFn      func(ctx context.Context, mode model.AuthMode) (string, string, error)
	handleCallbackFn func(ctx context.Context, session *model.Session, state, code string) (*auth.CallbackResult, error)
	logoutFn         func(ctx context.Context, session *model.Session) error
}

func (m *mockAuthService) BeginAuth(ctx context.Context, mode model.AuthMode) (string, string, error) {
	return m.beginAuthFn(ctx, mode)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, session *model.Session, state, code string) (*auth.CallbackResult, error) {
	return m.handleCallbackFn(ctx, session, state, code)
}

func (m *mockAuthService) Logout(ctx context.Context, session *model.Session) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, session)
	}
	return nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		CookieSecure:  false,
		SessionMaxAge: 3600,
	}
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Signup_SetsCookieAndRedirectsToProvider(t *testing.T) {
	var gotMode model.AuthMode
	service := &mockAuthService{
		beginAuthFn: func(ctx context.Context, mode model.AuthMode) (string, string, error) {
			gotMode = mode
			return "sid.sig", "https://oauth.example.com/auth?state=sid", nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	w := httptest.NewRecorder()
	h.Signup(w, httptest.NewRequest(http.MethodGet, "/auth/google/signup", nil))

	if gotMode != model.AuthModeSignup {
		t.Errorf("mode = %q, want signup", gotMode)
	}
	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if got := resp.Header.Get("Location"); got != "https://oauth.example.com/auth?state=sid" {
		t.Errorf("Location = %q", got)
	}
	cookie := findCookie(t, resp, middleware.SessionCookieName)
	if cookie == nil || cookie.Value != "sid.sig" {
		t.Error("session cookie should carry the signed session ID")
	}
	if cookie != nil && !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
}

func TestAuthHandler_Login_UsesLoginMode(t *testing.T) {
	var gotMode model.AuthMode
	service := &mockAuthService{
		beginAuthFn: func(ctx context.Context, mode model.AuthMode) (string, string, error) {
			gotMode = mode
			return "sid.sig", "https://oauth.example.com/auth", nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	h.Login(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if gotMode != model.AuthModeLogin {
		t.Errorf("mode = %q, want login", gotMode)
	}
}

func TestAuthHandler_Callback_RedirectsToResultPath(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, session *model.Session, state, code string) (*auth.CallbackResult, error) {
			if state != "sid-1" || code != "code-xyz" {
				t.Errorf("state = %q, code = %q", state, code)
			}
			return &auth.CallbackResult{
				Session:      &model.Session{ID: "sid-1", User: &model.SessionUser{Email: "taro@example.com"}},
				CookieValue:  "sid-1.newsig",
				RedirectPath: auth.PathDashboard,
			}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=sid-1&code=code-xyz", nil)
	w := httptest.NewRecorder()
	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:8080/api/dashboard" {
		t.Errorf("Location = %q", got)
	}
	if cookie := findCookie(t, resp, middleware.SessionCookieName); cookie == nil || cookie.Value != "sid-1.newsig" {
		t.Error("refreshed session cookie should be set")
	}
}

func TestAuthHandler_Callback_SessionStoreFailure_Returns500(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, session *model.Session, state, code string) (*auth.CallbackResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Result().StatusCode)
	}
}

func TestAuthHandler_Logout_ClearsCookieAndRedirectsToLanding(t *testing.T) {
	logoutCalled := false
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, session *model.Session) error {
			logoutCalled = true
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	session := &model.Session{ID: "sid-1", User: &model.SessionUser{Email: "taro@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), session))

	w := httptest.NewRecorder()
	h.Logout(w, req)

	if !logoutCalled {
		t.Error("service Logout should be called")
	}
	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:8080/api/landing" {
		t.Errorf("Location = %q", got)
	}
	cookie := findCookie(t, resp, middleware.SessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("session cookie should be cleared")
	}
}

func TestAuthHandler_Me_Authenticated_ReturnsUserJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	session := &model.Session{
		ID:   "sid-1",
		User: &model.SessionUser{Email: "taro@example.com", Name: "太郎", AvatarURL: "https://example.com/a.png"},
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), session))

	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["email"] != "taro@example.com" || body["name"] != "太郎" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthHandler_Me_Unauthenticated_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Result().StatusCode)
	}
}
