package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kabudash/internal/auth"
	"github.com/hitoshi/kabudash/internal/metrics"
	"github.com/hitoshi/kabudash/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionLoader     middleware.SessionLoader
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Collector         *metrics.Collector
	Logger            *slog.Logger

	// ヘルスチェック対象の依存ストア
	HealthCheckers map[string]HealthChecker

	// 認証
	AuthService  AuthServiceInterface
	SessionSaver SessionSaver
	AuthConfig   AuthHandlerConfig

	// ポートフォリオ
	PortfolioService PortfolioServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery → CSRF → SessionLoader
//
// 認証必須ルートはさらにRequireAuth → RateLimit(General)を通る。
// /healthと/metricsはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	portfolioHandler := NewPortfolioHandler(deps.PortfolioService, deps.SessionSaver, deps.AuthConfig.BaseURL)
	landingHandler := NewLandingHandler(deps.SessionSaver)
	healthHandler := NewHealthHandler(deps.HealthCheckers)

	// --- 運用エンドポイント（ミドルウェアチェーンの外） ---
	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", deps.Collector.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionLoaderMiddleware(deps.SessionLoader))

		// --- 認証不要のルート ---

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
		r.Get("/api/landing", landingHandler.Landing)

		// 認証ルート（OAuthフロー）
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/signup", authHandler.Signup)
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: RequireAuth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware(deps.AuthConfig.BaseURL + auth.PathLanding))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// 銘柄登録フォーム。POSTには登録専用レート制限を追加
			r.Route("/api/stocks", func(r chi.Router) {
				r.Get("/new", portfolioHandler.StockForm)
				r.With(deps.RateLimiter.StockAddMiddleware()).Post("/new", portfolioHandler.CreateStock)
				r.Get("/add", portfolioHandler.StockForm)
				r.With(deps.RateLimiter.StockAddMiddleware()).Post("/add", portfolioHandler.CreateStock)
			})

			// ダッシュボード
			r.Get("/api/dashboard", portfolioHandler.Dashboard)
		})
	})

	return r
}
