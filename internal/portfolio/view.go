package portfolio

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// ValueUnavailable は算出不能な値の表示マーカー。
// 現在値が取得できない場合と、保存データの購入価格が0の場合に使われる。
const ValueUnavailable = "unavailable"

// Row はダッシュボードの1行。保有ロットと評価結果を表す。
// 金額はすべて表示用に小数2桁へ丸めた文字列。丸めは表示時のみで、
// 計算は保存された精度のまま行う。
type Row struct {
	Symbol        string `json:"symbol"`
	Quantity      int64  `json:"quantity"`
	BuyPrice      string `json:"buy_price"`
	CurrentPrice  string `json:"current_price"`
	ProfitLoss    string `json:"profit_loss"`
	ProfitLossPct string `json:"profit_loss_pct"`
}

// Dashboard はダッシュボードの集計結果。
type Dashboard struct {
	Rows []Row `json:"rows"`
	// TotalProfitLoss は評価できた行のみの損益合計。
	TotalProfitLoss string `json:"total_profit_loss"`
}

// BuildDashboard は所有者の全ロットを評価したダッシュボードを構築する。
// 現在値はロットごとに順次取得する。取得できない銘柄があっても全体は
// 失敗させず、該当行の評価値のみ取得不能マーカーにする。
func (s *Service) BuildDashboard(ctx context.Context, ownerEmail string) (*Dashboard, error) {
	positions, err := s.positions.ListByUserEmail(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{Rows: make([]Row, 0, len(positions))}
	total := decimal.Zero
	hasTotal := false

	for _, p := range positions {
		row := Row{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			BuyPrice:      p.BuyPrice.StringFixed(2),
			CurrentPrice:  ValueUnavailable,
			ProfitLoss:    ValueUnavailable,
			ProfitLossPct: ValueUnavailable,
		}

		current, ok := s.fetcher.FetchPrice(ctx, p.Symbol)
		if !ok {
			s.logger.Debug("dashboard row without quote", slog.String("symbol", p.Symbol))
			dashboard.Rows = append(dashboard.Rows, row)
			continue
		}

		row.CurrentPrice = current.StringFixed(2)

		// 損益 = (現在値 - 購入価格) × 数量
		profitLoss := current.Sub(p.BuyPrice).Mul(decimal.NewFromInt(p.Quantity))
		row.ProfitLoss = profitLoss.StringFixed(2)
		total = total.Add(profitLoss)
		hasTotal = true

		// 損益率 = (現在値 - 購入価格) / 購入価格 × 100
		// 保存データの購入価格が0の場合はゼロ除算を避けて取得不能にする
		if p.BuyPrice.IsPositive() {
			pct := current.Sub(p.BuyPrice).Div(p.BuyPrice).Mul(decimal.NewFromInt(100))
			row.ProfitLossPct = pct.StringFixed(2)
		}

		dashboard.Rows = append(dashboard.Rows, row)
	}

	if hasTotal || len(positions) == 0 {
		dashboard.TotalProfitLoss = total.StringFixed(2)
	} else {
		dashboard.TotalProfitLoss = ValueUnavailable
	}
	return dashboard, nil
}
