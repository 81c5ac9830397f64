// Package portfolio は購入ロットの登録とダッシュボード集計を提供する。
package portfolio

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/kabudash/internal/metrics"
	"github.com/hitoshi/kabudash/internal/model"
	"github.com/hitoshi/kabudash/internal/quote"
	"github.com/hitoshi/kabudash/internal/repository"
)

// Service はポートフォリオのユースケースを実装する。
type Service struct {
	positions repository.PositionRepository
	fetcher   quote.Fetcher
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	positions repository.PositionRepository,
	fetcher quote.Fetcher,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Service {
	return &Service{
		positions: positions,
		fetcher:   fetcher,
		collector: collector,
		logger:    logger,
	}
}

// AddPosition は購入ロットを1件登録する。
// 入力はフォーム値の生文字列で受け取り、ここで検証する。
//   - 銘柄コード: 必須。前後空白を除去し大文字に正規化する
//   - 購入価格: 0より大きい数値。精度は入力のまま保持する
//   - 数量: 0より大きい整数
//
// 同一銘柄の既存ロットがあってもマージせず、常に別レコードとして追加する。
func (s *Service) AddPosition(ctx context.Context, ownerEmail, symbol, buyPriceStr, quantityStr string) (*model.Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, model.NewEmptySymbolError()
	}

	buyPrice, err := decimal.NewFromString(strings.TrimSpace(buyPriceStr))
	if err != nil {
		return nil, model.NewMalformedNumberError("購入価格")
	}
	if !buyPrice.IsPositive() {
		return nil, model.NewOutOfRangeError("購入価格")
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(quantityStr), 10, 64)
	if err != nil {
		return nil, model.NewMalformedNumberError("数量")
	}
	if quantity <= 0 {
		return nil, model.NewOutOfRangeError("数量")
	}

	position := &model.Position{
		ID:           uuid.NewString(),
		UserEmail:    ownerEmail,
		Symbol:       symbol,
		BuyPrice:     buyPrice,
		Quantity:     quantity,
		PurchaseDate: time.Now(),
	}
	if err := s.positions.Create(ctx, position); err != nil {
		return nil, err
	}

	s.collector.IncPositionsCreated()
	s.logger.Info("position created",
		slog.String("owner", ownerEmail),
		slog.String("symbol", symbol),
		slog.Int64("quantity", quantity))
	return position, nil
}

// ListPositions は所有者の全ロットをストアの自然順で返す。
func (s *Service) ListPositions(ctx context.Context, ownerEmail string) ([]*model.Position, error) {
	return s.positions.ListByUserEmail(ctx, ownerEmail)
}
