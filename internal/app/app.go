// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/kabudash/internal/auth"
	"github.com/hitoshi/kabudash/internal/config"
	"github.com/hitoshi/kabudash/internal/database"
	"github.com/hitoshi/kabudash/internal/handler"
	"github.com/hitoshi/kabudash/internal/logger"
	"github.com/hitoshi/kabudash/internal/metrics"
	"github.com/hitoshi/kabudash/internal/middleware"
	"github.com/hitoshi/kabudash/internal/portfolio"
	"github.com/hitoshi/kabudash/internal/quote"
	"github.com/hitoshi/kabudash/internal/repository"
	"github.com/hitoshi/kabudash/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// ストア接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. ストア接続
	mongo, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to open mongodb: %w", err)
	}
	defer mongo.Close(context.Background())

	if err := mongo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	rdb, err := database.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer rdb.Close()

	slog.Info("store connections established")

	// 2. リポジトリの初期化
	userRepo := repository.NewMongoUserRepo(mongo.DB)
	positionRepo := repository.NewMongoPositionRepo(mongo.DB)
	sessionRepo := repository.NewRedisSessionRepo(rdb)

	// 3. セキュリティサービスとメトリクスの初期化
	sanitizer := security.NewProfileSanitizer()
	outboundGuard := security.NewOutboundGuard()
	collector := metrics.NewCollector()

	// 4. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		userRepo, sessionRepo, oauthProvider, sanitizer,
		time.Duration(cfg.SessionMaxAge)*time.Second,
		cfg.SessionSecret,
		slog.Default(),
	)

	quoteHTTPClient, err := outboundGuard.NewPinnedClient(cfg.QuoteAPIBaseURL, cfg.QuoteTimeout)
	if err != nil {
		return fmt.Errorf("failed to build quote API client: %w", err)
	}
	quoteClient := quote.NewClient(quoteHTTPClient, cfg.QuoteAPIBaseURL, cfg.QuoteAPIKey, collector, slog.Default())
	if cfg.QuoteAPIKey == "" {
		slog.Warn("QUOTE_API_KEY is not set: all quotes will be reported as unavailable")
	}

	portfolioService := portfolio.NewService(positionRepo, quoteClient, collector, slog.Default())

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralPerMin = cfg.RateLimitGeneral
	rateLimiterCfg.StockAddPerMin = cfg.RateLimitStockAdd
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionLoader:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Collector: collector,
		Logger:    slog.Default(),

		HealthCheckers: map[string]handler.HealthChecker{
			"mongodb": mongo,
			"redis":   database.NewRedisPinger(rdb),
		},

		AuthService:  authService,
		SessionSaver: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PortfolioService: portfolioService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
