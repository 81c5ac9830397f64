// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kabudash/internal/model"
)

// SessionCookieName はセッションCookieの名前。
// 値は署名付きセッションID（auth.SignSessionID形式）。
const SessionCookieName = "kabudash_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionLoader は署名付きCookie値からセッションを復元するインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionLoader interface {
	SessionFromCookie(ctx context.Context, cookieValue string) (*model.Session, error)
}

// NewSessionLoaderMiddleware はCookieからセッションを復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない場合や署名不正・失効の場合もリクエストは通す。
// 認証の強制はNewRequireAuthMiddlewareが行う。
func NewSessionLoaderMiddleware(loader SessionLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := loader.SessionFromCookie(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// NewRequireAuthMiddleware は認証済みセッションを必須とするミドルウェアを返す。
// 未認証リクエストは401ではなくランディングページへリダイレクトする。
// landingPathには未認証時のリダイレクト先を指定する。
func NewRequireAuthMiddleware(landingPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if !session.Authenticated() {
				http.Redirect(w, r, landingPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションが注入されていない場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok {
		return nil
	}
	return session
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
