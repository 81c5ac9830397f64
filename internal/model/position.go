package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position は1ユーザーの1回の株式購入ロットを表す。
// 同一銘柄を複数回追加した場合もマージせず、ロットごとに独立したレコードになる。
// UserEmailは外部キーだがストア側で整合性を強制しない。参照先ユーザーが
// 存在しないレコードは「ポジションなし」として扱う（エラーにしない）。
type Position struct {
	ID           string
	UserEmail    string
	Symbol       string
	BuyPrice     decimal.Decimal
	Quantity     int64
	PurchaseDate time.Time
}
