package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"receiptly/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeExportStore struct {
	receipts []*models.Receipt
}

func (f *fakeExportStore) ListProcessedBetween(_ context.Context, userID uuid.UUID, _, _ time.Time) ([]*models.Receipt, error) {
	var out []*models.Receipt
	for _, r := range f.receipts {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestExportCSVOneRowPerItem(t *testing.T) {
	userID := uuid.New()
	catStore := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	category := seedCategory(catStore, userID, "Dairy")

	purchased := time.Date(2025, 3, 14, 18, 22, 0, 0, time.UTC)
	receipt := &models.Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      models.ReceiptStatusProcessed,
		StoreName:   "Corner Grocer",
		TotalAmount: decimal.RequireFromString("6.98"),
		Currency:    "USD",
		PurchasedAt: &purchased,
	}

	itemStore := newFakeItemStore()
	itemStore.items[receipt.ID] = []*models.ReceiptItem{
		{ID: uuid.New(), ReceiptID: receipt.ID, CategoryID: category.ID, Name: "Milk", Quantity: 2,
			UnitPrice: decimal.RequireFromString("3.49"), TotalPrice: decimal.RequireFromString("6.98"), Currency: "USD"},
	}

	svc := NewExportService(&fakeExportStore{receipts: []*models.Receipt{receipt}}, itemStore, catStore, zap.NewNop())
	out, err := svc.ExportCSV(context.Background(), userID, purchased.AddDate(0, -1, 0), purchased.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}

	row := records[1]
	if row[1] != "Corner Grocer" || row[5] != "Milk" || row[6] != "Dairy" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[7] != "2" || row[8] != "3.49" || row[9] != "6.98" {
		t.Fatalf("unexpected amounts in row: %v", row)
	}
}

func TestExportCSVEmitsRowForItemlessReceipt(t *testing.T) {
	userID := uuid.New()
	catStore := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}

	receipt := &models.Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      models.ReceiptStatusProcessed,
		StoreName:   "Kiosk",
		TotalAmount: decimal.RequireFromString("1.50"),
		Currency:    "EUR",
	}

	svc := NewExportService(&fakeExportStore{receipts: []*models.Receipt{receipt}}, newFakeItemStore(), catStore, zap.NewNop())
	out, err := svc.ExportCSV(context.Background(), userID, time.Now().AddDate(0, -1, 0), time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if records[1][1] != "Kiosk" || records[1][5] != "" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}
