package model

import "testing"

func TestSession_Authenticated(t *testing.T) {
	var nilSession *Session
	if nilSession.Authenticated() {
		t.Error("nil session must not be authenticated")
	}

	pending := &Session{ID: "sid-1", AuthMode: AuthModeLogin}
	if pending.Authenticated() {
		t.Error("pending session without a user must not be authenticated")
	}

	authed := &Session{ID: "sid-1", User: &SessionUser{Email: "taro@example.com"}}
	if !authed.Authenticated() {
		t.Error("session with a user should be authenticated")
	}
}

func TestSession_PopFlash_ReadOnce(t *testing.T) {
	s := &Session{ID: "sid-1", Flash: "認証に失敗しました。"}

	if got := s.PopFlash(); got != "認証に失敗しました。" {
		t.Errorf("first pop = %q", got)
	}
	if got := s.PopFlash(); got != "" {
		t.Errorf("second pop = %q, flash should be read-once", got)
	}
}
