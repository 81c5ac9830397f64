package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/kabudash/internal/middleware"
)

// LandingHandler は認証不要のランディングページのHTTPハンドラー。
type LandingHandler struct {
	sessions SessionSaver
}

// NewLandingHandler はLandingHandlerを生成する。
func NewLandingHandler(sessions SessionSaver) *LandingHandler {
	return &LandingHandler{sessions: sessions}
}

// landingPayload はランディングページのページデータ。
type landingPayload struct {
	Authenticated bool   `json:"authenticated"`
	Flash         string `json:"flash,omitempty"`
}

// Landing はランディングページのページデータを返す。
// GET /api/landing
// 認証失敗や未登録ログインのフラッシュメッセージはここで消費される。
func (h *LandingHandler) Landing(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	payload := landingPayload{
		Authenticated: session.Authenticated(),
		Flash:         popFlash(r.Context(), h.sessions, session),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
