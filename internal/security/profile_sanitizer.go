// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizerService はOAuthプロバイダーから受け取ったプロフィール
// 文字列のサニタイズ機能のインターフェースを定義する。
// 表示名はプロバイダー側でユーザーが自由に設定できる外部入力であり、
// 保存前にマークアップを全て除去する。
type ProfileSanitizerService interface {
	// SanitizeName は表示名からHTMLタグを全て除去し、前後の空白を取り除いた
	// プレーンテキストを返す。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeName(raw string) string
}

// profileSanitizer はProfileSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerServiceの新しいインスタンスを生成する。
// プロフィール文字列にマークアップを許可する理由はないため、
// 許可リストが空のStrictPolicyを使用する。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeName は表示名をサニタイズしてプレーンテキストを返す。
func (s *profileSanitizer) SanitizeName(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
