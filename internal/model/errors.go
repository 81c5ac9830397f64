package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, quote, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmptySymbol     = "EMPTY_SYMBOL"
	ErrCodeMalformedNumber = "MALFORMED_NUMBER"
	ErrCodeOutOfRange      = "OUT_OF_RANGE"
	ErrCodeNotRegistered   = "NOT_REGISTERED"
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeInvalidAuthMode = "INVALID_AUTH_MODE"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
)

// stockInputAction は株式追加フォームの入力エラーに共通の対処方法。
// 数値として不正な入力とゼロ以下の入力はコードで区別するが、
// ユーザーに見せる文言は同一にする。
const stockInputAction = "購入価格は0より大きい数値、数量は0より大きい整数を入力してください。"

// NewEmptySymbolError は銘柄コード未入力エラーを生成する。
func NewEmptySymbolError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptySymbol,
		Message:  "銘柄コードが入力されていません。",
		Category: "validation",
		Action:   "銘柄コード（例: AAPL）を入力してください。",
	}
}

// NewMalformedNumberError は数値として解釈できない入力のエラーを生成する。
func NewMalformedNumberError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedNumber,
		Message:  fmt.Sprintf("入力値が不正です: %s", field),
		Category: "validation",
		Action:   stockInputAction,
	}
}

// NewOutOfRangeError はゼロ以下の値のエラーを生成する。
func NewOutOfRangeError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeOutOfRange,
		Message:  fmt.Sprintf("入力値が不正です: %s", field),
		Category: "validation",
		Action:   stockInputAction,
	}
}

// NewNotRegisteredError は未登録ユーザーのログイン試行エラーを生成する。
func NewNotRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistered,
		Message:  "このメールアドレスは登録されていません。",
		Category: "auth",
		Action:   "先にサインアップを行ってください。",
	}
}

// NewAuthFailedError は認証処理の失敗エラーを生成する。
// トークン交換やユーザー情報取得の失敗はすべてこのエラーに集約され、
// サーバーエラー画面ではなくフラッシュメッセージとして表示される。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidAuthModeError は認証モード不明のコールバックエラーを生成する。
func NewInvalidAuthModeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAuthMode,
		Message:  "認証フローの状態が不正です。",
		Category: "auth",
		Action:   "最初からやり直してください。",
	}
}

// NewUnauthorizedError は未認証アクセスのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}
