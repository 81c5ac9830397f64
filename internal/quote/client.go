// Package quote は外部株価APIからの現在値取得を提供する。
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/kabudash/internal/metrics"
)

// pricePath はレスポンスJSONから現在値を取り出すJSONPath。
// APIのレスポンスはネストしたオブジェクトで、価格は文字列として返る。
const pricePath = `$["Global Quote"]["05. price"]`

// Fetcher は銘柄の現在値取得のインターフェースを定義する。
type Fetcher interface {
	// FetchPrice は銘柄の現在値を取得する。
	// 取得できない場合（APIキー未設定、通信失敗、レスポンス不正等）は
	// ok=falseを返し、エラーにはしない。呼び出し元は「取得不能」として
	// 表示を継続する。
	FetchPrice(ctx context.Context, symbol string) (price decimal.Decimal, ok bool)
}

// Client は株価APIのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	collector  *metrics.Collector
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// httpClientには接続先を固定したクライアントを渡す。
// apiKeyが空の場合、全リクエストはAPIを呼ばずに取得不能を返す（縮退動作）。
func NewClient(httpClient *http.Client, baseURL, apiKey string, collector *metrics.Collector, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		collector:  collector,
		logger:     logger,
	}
}

// FetchPrice は銘柄の現在値を取得する。
// 失敗はすべてログとメトリクスに記録したうえでok=falseに縮退する。
func (c *Client) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	if c.apiKey == "" {
		c.collector.IncQuoteFetchFail(metrics.QuoteFailReasonNoAPIKey)
		c.logger.Debug("quote fetch skipped: no API key", slog.String("symbol", symbol))
		return decimal.Decimal{}, false
	}

	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {c.apiKey},
	}
	reqURL := c.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.collector.IncQuoteFetchFail(metrics.QuoteFailReasonNetwork)
		c.logger.Warn("quote request build failed", slog.String("symbol", symbol), slog.Any("error", err))
		return decimal.Decimal{}, false
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.collector.ObserveQuoteLatency(time.Since(start).Seconds())
	if err != nil {
		c.collector.IncQuoteFetchFail(metrics.QuoteFailReasonNetwork)
		c.logger.Warn("quote request failed", slog.String("symbol", symbol), slog.Any("error", err))
		return decimal.Decimal{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.collector.IncQuoteFetchFail(metrics.QuoteFailReasonStatus)
		c.logger.Warn("quote request returned non-OK status",
			slog.String("symbol", symbol), slog.Int("status", resp.StatusCode))
		return decimal.Decimal{}, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.collector.IncQuoteFetchFail(metrics.QuoteFailReasonNetwork)
		c.logger.Warn("quote response read failed", slog.String("symbol", symbol), slog.Any("error", err))
		return decimal.Decimal{}, false
	}

	price, err := extractPrice(body)
	if err != nil {
		reason := metrics.QuoteFailReasonMissingField
		if _, ok := err.(*parseError); ok {
			reason = metrics.QuoteFailReasonParse
		}
		c.collector.IncQuoteFetchFail(reason)
		c.logger.Warn("quote response unusable", slog.String("symbol", symbol), slog.Any("error", err))
		return decimal.Decimal{}, false
	}

	c.collector.IncQuoteFetchSuccess()
	return price, true
}

// parseError はレスポンスがJSONとして解釈できなかったことを示す。
type parseError struct{ err error }

func (e *parseError) Error() string { return fmt.Sprintf("failed to parse quote response: %v", e.err) }

// extractPrice はレスポンスJSONから価格文字列を取り出してdecimalに変換する。
// フィールド欠落（存在しない銘柄やレート制限時の空レスポンス）と
// JSON自体の不正を区別してエラーを返す。
func extractPrice(body []byte) (decimal.Decimal, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return decimal.Decimal{}, &parseError{err: err}
	}

	raw, err := jsonpath.Get(pricePath, doc)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price field not found: %w", err)
	}
	priceStr, ok := raw.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("price field is not a string: %T", raw)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price %q is not a number: %w", priceStr, err)
	}
	return price, nil
}

// compile-time interface check
var _ Fetcher = (*Client)(nil)
