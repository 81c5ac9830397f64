package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// OutboundGuardService は外部APIへのアウトバウンドHTTPクライアント生成の
// インターフェースを定義する。
// 株価APIのリクエストURLには呼び出し元入力（銘柄コード）が埋め込まれるため、
// 接続先を設定済みのホストに固定したクライアントだけを払い出す。
type OutboundGuardService interface {
	// NewPinnedClient はbaseURLのホストにのみ接続できるHTTPクライアントを生成する。
	// プライベートIPやメタデータIPへのリクエストはsafeurlにより遮断され、
	// DNS再バインディング攻撃にはDialerレベルの検証で対応する。
	NewPinnedClient(baseURL string, timeout time.Duration) (*http.Client, error)
}

// outboundGuard はOutboundGuardServiceの実装。
type outboundGuard struct{}

// NewOutboundGuard はOutboundGuardServiceの新しいインスタンスを生成する。
func NewOutboundGuard() *outboundGuard {
	return &outboundGuard{}
}

// NewPinnedClient はbaseURLのホストにのみ接続できるHTTPクライアントを生成する。
func (g *outboundGuard) NewPinnedClient(baseURL string, timeout time.Duration) (*http.Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid outbound base URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("disallowed outbound scheme: %s", scheme)
	}
	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("empty host in outbound base URL: %s", baseURL)
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		SetAllowedHosts(host).
		Build()

	return safeurl.Client(config).Client, nil
}
