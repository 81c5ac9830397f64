package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kabudash/internal/auth"
	"github.com/hitoshi/kabudash/internal/middleware"
	"github.com/hitoshi/kabudash/internal/model"
	"github.com/hitoshi/kabudash/internal/portfolio"
)

// PortfolioServiceInterface はポートフォリオハンドラーが必要とするサービスインターフェース。
type PortfolioServiceInterface interface {
	AddPosition(ctx context.Context, ownerEmail, symbol, buyPrice, quantity string) (*model.Position, error)
	ListPositions(ctx context.Context, ownerEmail string) ([]*model.Position, error)
	BuildDashboard(ctx context.Context, ownerEmail string) (*portfolio.Dashboard, error)
}

// PortfolioHandler は銘柄登録とダッシュボードのHTTPハンドラー。
// フォーム入力のPOSTを受け、結果はリダイレクト+フラッシュメッセージで返す。
type PortfolioHandler struct {
	service  PortfolioServiceInterface
	sessions SessionSaver
	baseURL  string
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(service PortfolioServiceInterface, sessions SessionSaver, baseURL string) *PortfolioHandler {
	return &PortfolioHandler{
		service:  service,
		sessions: sessions,
		baseURL:  baseURL,
	}
}

// holdingItem は銘柄登録フォームに併記する現在の保有ロット。
type holdingItem struct {
	Symbol   string `json:"symbol"`
	BuyPrice string `json:"buy_price"`
	Quantity int64  `json:"quantity"`
}

// stockFormPayload は銘柄登録フォームのページデータ。
type stockFormPayload struct {
	Flash     string        `json:"flash,omitempty"`
	IsNewUser bool          `json:"is_new_user,omitempty"`
	Holdings  []holdingItem `json:"holdings"`
}

// StockForm は銘柄登録フォームのページデータを返す。
// GET /api/stocks/new および GET /api/stocks/add
// 現在の保有ロット一覧を含む。フラッシュメッセージは読み取りと同時に消費される。
func (h *PortfolioHandler) StockForm(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	positions, err := h.service.ListPositions(r.Context(), session.User.Email)
	if err != nil {
		slog.Error("failed to list positions", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	holdings := make([]holdingItem, 0, len(positions))
	for _, p := range positions {
		holdings = append(holdings, holdingItem{
			Symbol:   p.Symbol,
			BuyPrice: p.BuyPrice.StringFixed(2),
			Quantity: p.Quantity,
		})
	}

	payload := stockFormPayload{
		Flash:     popFlash(r.Context(), h.sessions, session),
		IsNewUser: session.IsNewUser,
		Holdings:  holdings,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// CreateStock は銘柄登録フォームのPOSTを処理する。
// POST /api/stocks/new および POST /api/stocks/add
// 検証エラーはフラッシュメッセージを設定して同じフォームへ戻す。
// 成功時はダッシュボードへリダイレクトする。
func (h *PortfolioHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMalformedNumberError("form"))
		return
	}

	_, err := h.service.AddPosition(
		r.Context(),
		session.User.Email,
		r.PostFormValue("symbol"),
		r.PostFormValue("buy_price"),
		r.PostFormValue("quantity"),
	)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			session.Flash = apiErr.Message + " " + apiErr.Action
			if saveErr := h.sessions.SaveSession(r.Context(), session); saveErr != nil {
				slog.Error("failed to save flash message", slog.String("error", saveErr.Error()))
			}
			// 同じフォームへ戻す
			http.Redirect(w, r, h.baseURL+r.URL.Path, http.StatusSeeOther)
			return
		}
		slog.Error("failed to create position", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// 初回登録の誘導は最初の銘柄登録が済んだ時点で終える
	if session.IsNewUser {
		session.IsNewUser = false
		if saveErr := h.sessions.SaveSession(r.Context(), session); saveErr != nil {
			slog.Error("failed to update session", slog.String("error", saveErr.Error()))
		}
	}

	http.Redirect(w, r, h.baseURL+auth.PathDashboard, http.StatusSeeOther)
}

// dashboardPayload はダッシュボードのページデータ。
type dashboardPayload struct {
	User  map[string]string    `json:"user"`
	Flash string               `json:"flash,omitempty"`
	Data  *portfolio.Dashboard `json:"data"`
}

// Dashboard は保有ロット全件を評価したダッシュボードを返す。
// GET /api/dashboard
// 株価はロットごとに順次取得するため、保有数に比例して応答が遅くなる。
func (h *PortfolioHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	dashboard, err := h.service.BuildDashboard(r.Context(), session.User.Email)
	if err != nil {
		slog.Error("failed to build dashboard", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	payload := dashboardPayload{
		User: map[string]string{
			"email":      session.User.Email,
			"name":       session.User.Name,
			"avatar_url": session.User.AvatarURL,
		},
		Flash: popFlash(r.Context(), h.sessions, session),
		Data:  dashboard,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// popFlash はフラッシュメッセージを消費し、セッションを書き戻す。
// 書き戻しに失敗してもページ表示は継続する。
func popFlash(ctx context.Context, saver SessionSaver, session *model.Session) string {
	if session == nil || session.Flash == "" {
		return ""
	}
	flash := session.PopFlash()
	if err := saver.SaveSession(ctx, session); err != nil {
		slog.Error("failed to clear flash message", slog.String("error", err.Error()))
	}
	return flash
}
