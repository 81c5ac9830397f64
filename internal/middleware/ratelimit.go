package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralPerMin   int           // API全般のレート（req/min/user）
	StockAddPerMin  int           // 銘柄追加のレート（req/min/user）
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、銘柄追加 20 req/min/user。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralPerMin:   120,
		StockAddPerMin:  20,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// tierLimiter は1種類のレート制限をキー別に管理する。
type tierLimiter struct {
	name  string
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyLimiter
}

// newTierLimiter はtierLimiterを生成する。perMinは毎分の許容リクエスト数。
func newTierLimiter(name string, perMin int) *tierLimiter {
	return &tierLimiter{
		name:     name,
		rate:     rate.Limit(float64(perMin) / 60.0),
		burst:    perMin,
		limiters: make(map[string]*keyLimiter),
	}
}

// allow はキーのリミッターにトークンを要求する。
func (t *tierLimiter) allow(key string) bool {
	t.mu.Lock()
	kl, exists := t.limiters[key]
	if !exists {
		kl = &keyLimiter{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	t.mu.Unlock()

	return kl.limiter.Allow()
}

// cleanup は最終アクセス時刻がttlを超えたエントリを削除する。
func (t *tierLimiter) cleanup(ttl time.Duration) {
	now := time.Now()
	t.mu.Lock()
	for key, kl := range t.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(t.limiters, key)
		}
	}
	t.mu.Unlock()
}

// count は現在管理されているエントリ数を返す。テストおよびメトリクス用。
func (t *tierLimiter) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// RateLimiter はユーザーごとのレート制限を管理する。
// API全般のレート制限と銘柄追加のレート制限の2種類を提供する。
type RateLimiter struct {
	config   RateLimiterConfig
	general  *tierLimiter
	stockAdd *tierLimiter
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		general:  newTierLimiter("general", config.GeneralPerMin),
		stockAdd: newTierLimiter("stock_add", config.StockAddPerMin),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general)
}

// StockAddMiddleware は銘柄追加専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) StockAddMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.stockAdd)
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// StockAddLimiterCount は現在管理されている銘柄追加リミッターのエントリ数を返す。
func (rl *RateLimiter) StockAddLimiterCount() int {
	return rl.stockAdd.count()
}

// middleware は指定tierのレート制限ミドルウェアを生成する。
// キーは認証済みならユーザーemail、未認証ならリモートIP。
func (rl *RateLimiter) middleware(tier *tierLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r)

			if !tier.allow(key) {
				writeRateLimitResponse(w, tier.rate)
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", tier.name),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitKey はレート制限のキーを決定する。
func limitKey(r *http.Request) string {
	if session := SessionFromContext(r.Context()); session.Authenticated() {
		return "user:" + session.User.Email
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.cleanup(ttl)
			rl.stockAdd.cleanup(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "RATE_LIMIT_EXCEEDED",
		"message":  "リクエストが多すぎます。",
		"category": "system",
		"action":   "しばらく待ってから再度お試しください。",
	})
}
