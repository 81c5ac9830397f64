package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gatherOutput(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Result().StatusCode)
	}
	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(body)
}

func TestCollector_QuoteMetrics_AppearInOutput(t *testing.T) {
	c := NewCollector()
	c.IncQuoteFetchSuccess()
	c.IncQuoteFetchFail(QuoteFailReasonNetwork)
	c.ObserveQuoteLatency(0.25)

	out := gatherOutput(t, c)

	if !strings.Contains(out, "kabudash_quote_fetch_success_total 1") {
		t.Error("success counter should be exported")
	}
	if !strings.Contains(out, `kabudash_quote_fetch_fail_total{reason="network"} 1`) {
		t.Error("fail counter should carry the reason label")
	}
	if !strings.Contains(out, "kabudash_quote_latency_seconds") {
		t.Error("latency histogram should be exported")
	}
}

func TestCollector_HTTPStatusAndPositions(t *testing.T) {
	c := NewCollector()
	c.IncHTTPStatus(200)
	c.IncHTTPStatus(200)
	c.IncHTTPStatus(500)
	c.IncPositionsCreated()

	out := gatherOutput(t, c)

	if !strings.Contains(out, `kabudash_http_status_total{status="200"} 2`) {
		t.Error("status counter should aggregate by code")
	}
	if !strings.Contains(out, `kabudash_http_status_total{status="500"} 1`) {
		t.Error("500 responses should be counted separately")
	}
	if !strings.Contains(out, "kabudash_positions_created_total 1") {
		t.Error("positions counter should be exported")
	}
}

func TestCollector_IndependentRegistries(t *testing.T) {
	// 専用レジストリ同士は干渉しない（テスト間の登録衝突を防ぐ）
	a := NewCollector()
	b := NewCollector()
	a.IncQuoteFetchSuccess()

	if strings.Contains(gatherOutput(t, b), "kabudash_quote_fetch_success_total 1") {
		t.Error("collectors must not share state")
	}
}
