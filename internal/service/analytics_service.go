package service

import (
	"context"
	"time"

	"receiptly/internal/dto"
	"receiptly/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// analyticsStore is the aggregate-query surface of the receipt repository.
type analyticsStore interface {
	SpendSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, int, error)
	MonthlyTrends(ctx context.Context, userID uuid.UUID, months int) ([]repository.MonthlySpend, error)
	TopStores(ctx context.Context, userID uuid.UUID, limit int) ([]repository.StoreSpend, error)
	CategoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]repository.CategorySpend, error)
}

type AnalyticsService struct {
	store  analyticsStore
	logger *zap.Logger
}

func NewAnalyticsService(store analyticsStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		logger: logger,
	}
}

func (s *AnalyticsService) Summary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*dto.SpendSummaryResponse, error) {
	total, count, err := s.store.SpendSummary(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	average := decimal.Zero
	if count > 0 {
		average = total.Div(decimal.NewFromInt(int64(count))).Round(2)
	}

	return &dto.SpendSummaryResponse{
		TotalSpend:   total.InexactFloat64(),
		ReceiptCount: count,
		AverageSpend: average.InexactFloat64(),
		From:         from.Format(time.RFC3339),
		To:           to.Format(time.RFC3339),
	}, nil
}

func (s *AnalyticsService) MonthlyTrends(ctx context.Context, userID uuid.UUID, months int) ([]dto.MonthlyTrendEntry, error) {
	trends, err := s.store.MonthlyTrends(ctx, userID, months)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.MonthlyTrendEntry, len(trends))
	for i, t := range trends {
		entries[i] = dto.MonthlyTrendEntry{
			Month:        t.Month.Format("2006-01"),
			TotalSpend:   t.TotalSpend.InexactFloat64(),
			ReceiptCount: t.ReceiptCount,
		}
	}

	return entries, nil
}

func (s *AnalyticsService) TopStores(ctx context.Context, userID uuid.UUID, limit int) ([]dto.TopStoreEntry, error) {
	stores, err := s.store.TopStores(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.TopStoreEntry, len(stores))
	for i, st := range stores {
		entries[i] = dto.TopStoreEntry{
			StoreName:    st.StoreName,
			TotalSpend:   st.TotalSpend.InexactFloat64(),
			ReceiptCount: st.ReceiptCount,
		}
	}

	return entries, nil
}

// CategoryBreakdown includes each category's share of the window's spend,
// rounded to four decimal places.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]dto.CategoryBreakdownEntry, error) {
	breakdown, err := s.store.CategoryBreakdown(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, b := range breakdown {
		total = total.Add(b.TotalSpend)
	}

	entries := make([]dto.CategoryBreakdownEntry, len(breakdown))
	for i, b := range breakdown {
		share := decimal.Zero
		if total.IsPositive() {
			share = b.TotalSpend.Div(total).Round(4)
		}
		entries[i] = dto.CategoryBreakdownEntry{
			CategoryID: b.CategoryID.String(),
			Category:   b.Category,
			TotalSpend: b.TotalSpend.InexactFloat64(),
			ItemCount:  b.ItemCount,
			Share:      share.InexactFloat64(),
		}
	}

	return entries, nil
}
