// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 株価取得失敗の理由ラベル
const (
	QuoteFailReasonNetwork      = "network"
	QuoteFailReasonStatus       = "status"
	QuoteFailReasonParse        = "parse"
	QuoteFailReasonMissingField = "missing_field"
	QuoteFailReasonNoAPIKey     = "no_api_key"
)

// Collector はアプリケーションのメトリクスを保持する。
// グローバルレジストリではなく専用レジストリに登録し、
// テスト間の登録衝突を避ける。
type Collector struct {
	registry *prometheus.Registry

	quoteFetchSuccessTotal prometheus.Counter
	quoteFetchFailTotal    *prometheus.CounterVec
	quoteLatencySeconds    prometheus.Histogram
	positionsCreatedTotal  prometheus.Counter
	httpStatusTotal        *prometheus.CounterVec
}

// NewCollector はCollectorを生成し、全メトリクスを登録する。
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		quoteFetchSuccessTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kabudash_quote_fetch_success_total",
			Help: "株価取得の成功回数",
		}),
		quoteFetchFailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kabudash_quote_fetch_fail_total",
			Help: "株価取得の失敗回数（理由別）",
		}, []string{"reason"}),
		quoteLatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kabudash_quote_latency_seconds",
			Help:    "株価APIリクエストのレイテンシ",
			Buckets: prometheus.DefBuckets,
		}),
		positionsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kabudash_positions_created_total",
			Help: "登録された購入ロットの件数",
		}),
		httpStatusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kabudash_http_status_total",
			Help: "HTTPレスポンスのステータスコード別件数",
		}, []string{"status"}),
	}

	c.registry.MustRegister(
		c.quoteFetchSuccessTotal,
		c.quoteFetchFailTotal,
		c.quoteLatencySeconds,
		c.positionsCreatedTotal,
		c.httpStatusTotal,
	)
	return c
}

// IncQuoteFetchSuccess は株価取得の成功を記録する。
func (c *Collector) IncQuoteFetchSuccess() {
	c.quoteFetchSuccessTotal.Inc()
}

// IncQuoteFetchFail は株価取得の失敗を理由付きで記録する。
func (c *Collector) IncQuoteFetchFail(reason string) {
	c.quoteFetchFailTotal.WithLabelValues(reason).Inc()
}

// ObserveQuoteLatency は株価APIリクエストのレイテンシを記録する。
func (c *Collector) ObserveQuoteLatency(seconds float64) {
	c.quoteLatencySeconds.Observe(seconds)
}

// IncPositionsCreated は購入ロットの登録を記録する。
func (c *Collector) IncPositionsCreated() {
	c.positionsCreatedTotal.Inc()
}

// IncHTTPStatus はHTTPレスポンスのステータスコードを記録する。
func (c *Collector) IncHTTPStatus(status int) {
	c.httpStatusTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Handler は/metrics用のHTTPハンドラーを返す。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
