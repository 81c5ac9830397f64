package portfolio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/kabudash/internal/metrics"
	"github.com/hitoshi/kabudash/internal/model"
)

// mockPositionRepo はロットをメモリに保持するPositionRepositoryモック。
type mockPositionRepo struct {
	positions []*model.Position
	createErr error
	listErr   error
}

func (m *mockPositionRepo) Create(ctx context.Context, position *model.Position) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.positions = append(m.positions, position)
	return nil
}

func (m *mockPositionRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Position, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*model.Position, 0)
	for _, p := range m.positions {
		if p.UserEmail == email {
			result = append(result, p)
		}
	}
	return result, nil
}

// mockFetcher は銘柄ごとの固定価格を返すFetcherモック。
type mockFetcher struct {
	prices map[string]string
	calls  []string
}

func (m *mockFetcher) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	m.calls = append(m.calls, symbol)
	raw, ok := m.prices[symbol]
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.RequireFromString(raw), true
}

func newTestPortfolioService(repo *mockPositionRepo, fetcher *mockFetcher) *Service {
	return NewService(repo, fetcher, metrics.NewCollector(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAddPosition_Success_NormalizesSymbol(t *testing.T) {
	repo := &mockPositionRepo{}
	svc := newTestPortfolioService(repo, &mockFetcher{})

	position, err := svc.AddPosition(context.Background(), "taro@example.com", "  aapl ", "150.25", "10")
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}

	if position.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", position.Symbol)
	}
	if position.UserEmail != "taro@example.com" {
		t.Errorf("owner = %q", position.UserEmail)
	}
	if position.Quantity != 10 {
		t.Errorf("quantity = %d, want 10", position.Quantity)
	}
	if len(repo.positions) != 1 {
		t.Fatalf("stored positions = %d, want 1", len(repo.positions))
	}
}

func TestAddPosition_PreservesPricePrecision(t *testing.T) {
	repo := &mockPositionRepo{}
	svc := newTestPortfolioService(repo, &mockFetcher{})

	position, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "150.123456789", "1")
	if err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}

	if position.BuyPrice.String() != "150.123456789" {
		t.Errorf("buy price = %s, precision must be preserved", position.BuyPrice.String())
	}
}

func TestAddPosition_SameSymbolTwice_CreatesSeparateLots(t *testing.T) {
	repo := &mockPositionRepo{}
	svc := newTestPortfolioService(repo, &mockFetcher{})

	for _, price := range []string{"100", "120"} {
		if _, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", price, "5"); err != nil {
			t.Fatalf("AddPosition failed: %v", err)
		}
	}

	if len(repo.positions) != 2 {
		t.Fatalf("stored positions = %d, want 2 separate lots", len(repo.positions))
	}
	if repo.positions[0].ID == repo.positions[1].ID {
		t.Error("each lot should get its own ID")
	}
}

func TestAddPosition_EmptySymbol_ReturnsEmptySymbolError(t *testing.T) {
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	_, err := svc.AddPosition(context.Background(), "taro@example.com", "   ", "100", "1")
	assertAPIErrorCode(t, err, model.ErrCodeEmptySymbol)
}

func TestAddPosition_MalformedPrice_ReturnsMalformedNumberError(t *testing.T) {
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	_, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "abc", "1")
	assertAPIErrorCode(t, err, model.ErrCodeMalformedNumber)
}

func TestAddPosition_NonPositivePrice_ReturnsOutOfRangeError(t *testing.T) {
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	for _, price := range []string{"0", "-5"} {
		_, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", price, "1")
		assertAPIErrorCode(t, err, model.ErrCodeOutOfRange)
	}
}

func TestAddPosition_MalformedQuantity_ReturnsMalformedNumberError(t *testing.T) {
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	for _, qty := range []string{"abc", "1.5"} {
		_, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "100", qty)
		assertAPIErrorCode(t, err, model.ErrCodeMalformedNumber)
	}
}

func TestAddPosition_NonPositiveQuantity_ReturnsOutOfRangeError(t *testing.T) {
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	for _, qty := range []string{"0", "-3"} {
		_, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "100", qty)
		assertAPIErrorCode(t, err, model.ErrCodeOutOfRange)
	}
}

func TestAddPosition_InputErrors_ShareUserFacingAction(t *testing.T) {
	// 数値不正とゼロ以下はコードで区別するが、ユーザーへの文言は同一
	svc := newTestPortfolioService(&mockPositionRepo{}, &mockFetcher{})

	_, malformedErr := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "abc", "1")
	_, rangeErr := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "0", "1")

	var apiMalformed, apiRange *model.APIError
	if !errors.As(malformedErr, &apiMalformed) || !errors.As(rangeErr, &apiRange) {
		t.Fatal("both errors should be APIErrors")
	}
	if apiMalformed.Action != apiRange.Action {
		t.Errorf("actions differ: %q vs %q", apiMalformed.Action, apiRange.Action)
	}
	if apiMalformed.Code == apiRange.Code {
		t.Error("codes should stay distinct")
	}
}

func TestAddPosition_RepoFailure_PropagatesError(t *testing.T) {
	repo := &mockPositionRepo{createErr: errors.New("insert failed")}
	svc := newTestPortfolioService(repo, &mockFetcher{})

	_, err := svc.AddPosition(context.Background(), "taro@example.com", "AAPL", "100", "1")
	if err == nil {
		t.Fatal("expected repo error to propagate")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Error("store failures must not be reported as validation errors")
	}
}

func assertAPIErrorCode(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != want {
		t.Errorf("code = %q, want %q", apiErr.Code, want)
	}
}
