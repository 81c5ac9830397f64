// Package auth はGoogle OAuthによる認証フローとセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kabudash/internal/model"
	"github.com/hitoshi/kabudash/internal/repository"
	"github.com/hitoshi/kabudash/internal/security"
)

// リダイレクト先パス
const (
	PathLanding   = "/api/landing"
	PathDashboard = "/api/dashboard"
	PathStocksNew = "/api/stocks/new"
)

// ProviderIdentity はOAuthプロバイダーから取得したユーザーの身元情報。
type ProviderIdentity struct {
	Email     string
	Name      string
	AvatarURL string
}

// OAuthProvider はOAuthプロバイダーとのやり取りのインターフェースを定義する。
type OAuthProvider interface {
	// AuthCodeURL はstateを埋め込んだ認証URLを生成する。
	AuthCodeURL(state string) string

	// ExchangeCode は認可コードをユーザーの身元情報に交換する。
	// 失敗は*ExchangeErrorとして返す。
	ExchangeCode(ctx context.Context, code string) (*ProviderIdentity, error)
}

// CallbackResult はOAuthコールバック処理の結果。
// 処理後のセッション（保存済み）とリダイレクト先を持つ。
type CallbackResult struct {
	Session      *model.Session
	CookieValue  string
	RedirectPath string
}

// Service は認証のユースケースを実装する。
// サインアップ/ログインの開始、コールバックの分岐、ログアウトを担当する。
type Service struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	provider   OAuthProvider
	sanitizer  security.ProfileSanitizerService
	sessionTTL time.Duration
	secret     string
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	provider OAuthProvider,
	sanitizer security.ProfileSanitizerService,
	sessionTTL time.Duration,
	secret string,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		provider:   provider,
		sanitizer:  sanitizer,
		sessionTTL: sessionTTL,
		secret:     secret,
		logger:     logger,
	}
}

// newSession は空のセッションを生成する。IDはUUID v4。
func (s *Service) newSession() *model.Session {
	now := time.Now()
	return &model.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
}

// BeginAuth はOAuthフローを開始する。
// 認証モードを記録した新しいセッションを保存し、署名付きCookie値と
// プロバイダーの認証URLを返す。stateにはセッションIDを使用し、
// コールバック時にCookieのセッションと照合する。
func (s *Service) BeginAuth(ctx context.Context, mode model.AuthMode) (cookieValue, authURL string, err error) {
	if mode != model.AuthModeSignup && mode != model.AuthModeLogin {
		return "", "", fmt.Errorf("unknown auth mode: %q", mode)
	}

	session := s.newSession()
	session.AuthMode = mode
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return "", "", fmt.Errorf("failed to save pending session: %w", err)
	}

	return SignSessionID(session.ID, s.secret), s.provider.AuthCodeURL(session.ID), nil
}

// HandleCallback はOAuthコールバックを処理する。
// セッションに記録された認証モードに応じてサインアップ/ログインを分岐し、
// 処理後のセッションとリダイレクト先を返す。
// 交換失敗やモード不明はフラッシュメッセージに変換され、エラーとしては
// 返さない。返り値のerrorはセッションストア障害のみ。
func (s *Service) HandleCallback(ctx context.Context, session *model.Session, state, code string) (*CallbackResult, error) {
	// フロー未開始のコールバック。直接アクセスやセッション失効後の戻り。
	if session == nil || (session.AuthMode != model.AuthModeSignup && session.AuthMode != model.AuthModeLogin) {
		if session == nil {
			session = s.newSession()
		}
		s.logger.Warn("oauth callback without pending auth mode")
		return s.finish(ctx, session, model.NewInvalidAuthModeError().Message, PathLanding)
	}

	mode := session.AuthMode
	session.AuthMode = model.AuthModeNone

	if state != session.ID {
		s.logger.Warn("oauth callback state mismatch")
		return s.finish(ctx, session, model.NewAuthFailedError().Message, PathLanding)
	}

	identity, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		var exchErr *ExchangeError
		if errors.As(err, &exchErr) {
			s.logger.Error("oauth exchange failed", slog.String("kind", string(exchErr.Kind)), slog.Any("error", exchErr.Err))
		} else {
			s.logger.Error("oauth exchange failed", slog.Any("error", err))
		}
		return s.finish(ctx, session, model.NewAuthFailedError().Message, PathLanding)
	}

	switch mode {
	case model.AuthModeSignup:
		return s.completeSignup(ctx, session, identity)
	default:
		return s.completeLogin(ctx, session, identity)
	}
}

// completeSignup はサインアップのコールバックを完了する。
// 既存ユーザーの場合は新規作成せず、そのままログイン済みとして扱う。
func (s *Service) completeSignup(ctx context.Context, session *model.Session, identity *ProviderIdentity) (*CallbackResult, error) {
	existing, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if existing != nil {
		session.User = &model.SessionUser{
			Email:     existing.Email,
			Name:      existing.Name,
			AvatarURL: existing.AvatarURL,
		}
		s.logger.Info("signup for existing user treated as login", slog.String("email", existing.Email))
		return s.finish(ctx, session, "既に登録済みのため、ログインしました。", PathDashboard)
	}

	user := &model.User{
		ID:        uuid.NewString(),
		Email:     identity.Email,
		Name:      s.sanitizer.SanitizeName(identity.Name),
		AvatarURL: identity.AvatarURL,
		CreatedAt: time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session.User = &model.SessionUser{
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	session.IsNewUser = true
	s.logger.Info("user signed up", slog.String("email", user.Email))

	// 新規ユーザーは最初の銘柄登録フォームへ誘導する
	return s.finish(ctx, session, "", PathStocksNew)
}

// completeLogin はログインのコールバックを完了する。
// 未登録ユーザーの場合は認証済みにせず、ランディングへ戻す。
func (s *Service) completeLogin(ctx context.Context, session *model.Session, identity *ProviderIdentity) (*CallbackResult, error) {
	existing, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if existing == nil {
		s.logger.Info("login attempt for unregistered email", slog.String("email", identity.Email))
		return s.finish(ctx, session, model.NewNotRegisteredError().Message, PathLanding)
	}

	session.User = &model.SessionUser{
		Email:     existing.Email,
		Name:      existing.Name,
		AvatarURL: existing.AvatarURL,
	}
	s.logger.Info("user logged in", slog.String("email", existing.Email))
	return s.finish(ctx, session, "", PathDashboard)
}

// finish はフラッシュを設定したセッションを保存して結果を返す。
func (s *Service) finish(ctx context.Context, session *model.Session, flash, redirectPath string) (*CallbackResult, error) {
	session.Flash = flash
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &CallbackResult{
		Session:      session,
		CookieValue:  SignSessionID(session.ID, s.secret),
		RedirectPath: redirectPath,
	}, nil
}

// SessionFromCookie は署名付きCookie値からセッションを復元する。
// 署名不正・セッション不在の場合はnilを返す（エラーにしない）。
func (s *Service) SessionFromCookie(ctx context.Context, cookieValue string) (*model.Session, error) {
	sessionID, ok := VerifySessionID(cookieValue, s.secret)
	if !ok {
		return nil, nil
	}
	return s.sessions.FindByID(ctx, sessionID)
}

// SaveSession はセッションを保存し直す。フラッシュ消費後の書き戻しに使う。
func (s *Service) SaveSession(ctx context.Context, session *model.Session) error {
	return s.sessions.Save(ctx, session, s.sessionTTL)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	if session == nil {
		return nil
	}
	if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("user logged out", slog.String("session_id", session.ID))
	return nil
}
