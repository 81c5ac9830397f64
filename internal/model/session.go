package model

import "time"

// AuthMode は進行中のOAuthフローがサインアップとログインのどちらとして
// 開始されたかを表す。コールバックの分岐を決定する。
type AuthMode string

const (
	// AuthModeSignup はサインアップとして開始されたフローを示す。
	AuthModeSignup AuthMode = "signup"
	// AuthModeLogin はログインとして開始されたフローを示す。
	AuthModeLogin AuthMode = "login"
	// AuthModeNone はフロー未開始（またはクリア済み）を示す。
	AuthModeNone AuthMode = ""
)

// SessionUser はセッションに保持する認証済みユーザーのスナップショット。
type SessionUser struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Session はサーバーサイドのセッション状態を表す。
// 動的なキー・バリューではなく名前付きフィールドの明示的な構造体として持つ。
// ログイン/サインアップ開始時に作成され、OAuthコールバックで変化し、
// ログアウトで破棄される。
type Session struct {
	ID        string       `json:"id"`
	User      *SessionUser `json:"user,omitempty"`
	AuthMode  AuthMode     `json:"auth_mode,omitempty"`
	IsNewUser bool         `json:"is_new_user,omitempty"`
	Flash     string       `json:"flash,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Authenticated は認証済みユーザーを保持しているかどうかを返す。
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.User.Email != ""
}

// PopFlash はフラッシュメッセージを取り出してクリアする。
// 呼び出し元はクリア後のセッションを保存し直す責務を持つ。
func (s *Session) PopFlash() string {
	f := s.Flash
	s.Flash = ""
	return f
}
