package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"receiptly/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type exportReceiptStore interface {
	ListProcessedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Receipt, error)
}

type ExportService struct {
	receiptRepo exportReceiptStore
	itemRepo    itemStore
	catRepo     receiptCategoryStore
	logger      *zap.Logger
}

func NewExportService(receiptRepo exportReceiptStore, itemRepo itemStore, catRepo receiptCategoryStore, logger *zap.Logger) *ExportService {
	return &ExportService{
		receiptRepo: receiptRepo,
		itemRepo:    itemRepo,
		catRepo:     catRepo,
		logger:      logger,
	}
}

var exportHeader = []string{
	"receipt_id", "store_name", "purchased_at", "receipt_total", "currency",
	"item_name", "category", "quantity", "unit_price", "item_total",
}

// ExportCSV renders one row per receipt item for processed receipts inside
// [from, to). Receipts without items still contribute a single row so the
// export totals match the account.
func (s *ExportService) ExportCSV(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]byte, error) {
	receipts, err := s.receiptRepo.ListProcessedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	categories, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	categoryName := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		categoryName[c.ID] = c.Name
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}

	for _, receipt := range receipts {
		items, err := s.itemRepo.ListByReceiptID(ctx, receipt.ID)
		if err != nil {
			return nil, err
		}

		purchasedAt := ""
		if receipt.PurchasedAt != nil {
			purchasedAt = receipt.PurchasedAt.Format(time.RFC3339)
		}
		base := []string{
			receipt.ID.String(),
			receipt.StoreName,
			purchasedAt,
			receipt.TotalAmount.StringFixed(2),
			receipt.Currency,
		}

		if len(items) == 0 {
			if err := w.Write(append(base, "", "", "", "", "")); err != nil {
				return nil, err
			}
			continue
		}

		for _, item := range items {
			row := append(append([]string{}, base...),
				item.Name,
				categoryName[item.CategoryID],
				strconv.Itoa(item.Quantity),
				item.UnitPrice.StringFixed(2),
				item.TotalPrice.StringFixed(2),
			)
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logger.Info("Receipts exported",
		zap.String("user_id", userID.String()),
		zap.Int("receipts", len(receipts)),
	)
	return buf.Bytes(), nil
}
