package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"receiptly/internal/extraction"
	"receiptly/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeReceiptStore struct {
	receipts map[uuid.UUID]*models.Receipt
}

func newFakeReceiptStore() *fakeReceiptStore {
	return &fakeReceiptStore{receipts: map[uuid.UUID]*models.Receipt{}}
}

func (f *fakeReceiptStore) Create(_ context.Context, r *models.Receipt) error {
	f.receipts[r.ID] = r
	return nil
}

func (f *fakeReceiptStore) GetByID(_ context.Context, id uuid.UUID) (*models.Receipt, error) {
	r, ok := f.receipts[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return r, nil
}

func (f *fakeReceiptStore) ListByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]*models.Receipt, error) {
	var out []*models.Receipt
	for _, r := range f.receipts {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReceiptStore) UpdateExtraction(_ context.Context, r *models.Receipt) error {
	f.receipts[r.ID] = r
	return nil
}

func (f *fakeReceiptStore) Update(_ context.Context, r *models.Receipt) error {
	f.receipts[r.ID] = r
	return nil
}

func (f *fakeReceiptStore) Delete(_ context.Context, _, id uuid.UUID) error {
	delete(f.receipts, id)
	return nil
}

type fakeItemStore struct {
	items map[uuid.UUID][]*models.ReceiptItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[uuid.UUID][]*models.ReceiptItem{}}
}

func (f *fakeItemStore) CreateBatch(_ context.Context, items []*models.ReceiptItem) error {
	for _, it := range items {
		f.items[it.ReceiptID] = append(f.items[it.ReceiptID], it)
	}
	return nil
}

func (f *fakeItemStore) ListByReceiptID(_ context.Context, receiptID uuid.UUID) ([]*models.ReceiptItem, error) {
	return f.items[receiptID], nil
}

func (f *fakeItemStore) DeleteByIDs(_ context.Context, receiptID uuid.UUID, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []*models.ReceiptItem
	for _, it := range f.items[receiptID] {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	f.items[receiptID] = kept
	return nil
}

func (f *fakeItemStore) DeleteByReceiptID(_ context.Context, receiptID uuid.UUID) error {
	delete(f.items, receiptID)
	return nil
}

type fakeReconciler struct {
	adjustments []extraction.Adjustment
	calls       int
}

func (f *fakeReconciler) Reconcile(_ context.Context, _ []byte, _ string, _ decimal.Decimal, _ []extraction.LineItem) ([]extraction.Adjustment, error) {
	f.calls++
	return f.adjustments, nil
}

type fakePipeline struct {
	result *extraction.Result
	err    error
}

func (f *fakePipeline) Run(_ context.Context, _ []byte, _ string, _ []extraction.CategoryCandidate) (*extraction.Result, error) {
	return f.result, f.err
}

func seedProcessedReceipt(t *testing.T, uploadDir string, receipts *fakeReceiptStore, items *fakeItemStore, userID uuid.UUID, total string) (*models.Receipt, []*models.ReceiptItem) {
	t.Helper()

	imageName := uuid.New().String() + ".png"
	if err := os.WriteFile(filepath.Join(uploadDir, imageName), []byte("png"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	receipt := &models.Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      models.ReceiptStatusProcessed,
		StoreName:   "Corner Grocer",
		TotalAmount: decimal.RequireFromString(total),
		Currency:    "USD",
		ImagePath:   "/uploads/" + imageName,
		ContentType: "image/png",
		CreatedAt:   time.Now(),
	}
	receipts.receipts[receipt.ID] = receipt

	lineItems := []*models.ReceiptItem{
		{ID: uuid.New(), ReceiptID: receipt.ID, Name: "Milk", Quantity: 1,
			UnitPrice: decimal.RequireFromString("3.49"), TotalPrice: decimal.RequireFromString("3.49"), Currency: "USD"},
		{ID: uuid.New(), ReceiptID: receipt.ID, Name: "Duplicate scan", Quantity: 1,
			UnitPrice: decimal.RequireFromString("7.00"), TotalPrice: decimal.RequireFromString("7.00"), Currency: "USD"},
	}
	items.items[receipt.ID] = lineItems
	return receipt, lineItems
}

func TestReconcileRemovesFlaggedItems(t *testing.T) {
	receipts := newFakeReceiptStore()
	itemStore := newFakeItemStore()
	catStore := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	userID := uuid.New()
	uploadDir := t.TempDir()
	receipt, lineItems := seedProcessedReceipt(t, uploadDir, receipts, itemStore, userID, "3.49")

	reconciler := &fakeReconciler{adjustments: []extraction.Adjustment{
		{ItemID: lineItems[1].ID.String(), Remove: true, Reason: "same item scanned twice"},
	}}
	svc := NewReceiptService(receipts, itemStore, catStore, &fakePipeline{}, reconciler, uploadDir, zap.NewNop())

	resp, err := svc.Reconcile(context.Background(), userID, receipt.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(resp.RemovedItems) != 1 || resp.RemovedItems[0].Name != "Duplicate scan" {
		t.Fatalf("unexpected removed items: %+v", resp.RemovedItems)
	}
	if got := len(itemStore.items[receipt.ID]); got != 1 {
		t.Fatalf("expected 1 item left, got %d", got)
	}
	if len(resp.Receipt.Items) != 1 || resp.Receipt.Items[0].Name != "Milk" {
		t.Fatalf("unexpected remaining items: %+v", resp.Receipt.Items)
	}
}

func TestReconcileRequiresProcessedReceipt(t *testing.T) {
	receipts := newFakeReceiptStore()
	itemStore := newFakeItemStore()
	catStore := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	userID := uuid.New()
	uploadDir := t.TempDir()
	receipt, _ := seedProcessedReceipt(t, uploadDir, receipts, itemStore, userID, "3.49")
	receipt.Status = models.ReceiptStatusPending

	reconciler := &fakeReconciler{}
	svc := NewReceiptService(receipts, itemStore, catStore, &fakePipeline{}, reconciler, uploadDir, zap.NewNop())

	if _, err := svc.Reconcile(context.Background(), userID, receipt.ID); !errors.Is(err, ErrReceiptNotProcessed) {
		t.Fatalf("expected ErrReceiptNotProcessed, got %v", err)
	}
	if reconciler.calls != 0 {
		t.Fatalf("reconciler should not be called, got %d calls", reconciler.calls)
	}
}

func TestReceiptAccessScopedToOwner(t *testing.T) {
	receipts := newFakeReceiptStore()
	itemStore := newFakeItemStore()
	catStore := &fakeCategoryStore{itemCounts: map[uuid.UUID]int64{}}
	owner := uuid.New()
	uploadDir := t.TempDir()
	receipt, _ := seedProcessedReceipt(t, uploadDir, receipts, itemStore, owner, "3.49")

	svc := NewReceiptService(receipts, itemStore, catStore, &fakePipeline{}, &fakeReconciler{}, uploadDir, zap.NewNop())

	if _, err := svc.Get(context.Background(), uuid.New(), receipt.ID); !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), uuid.New(), receipt.ID); !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound on delete, got %v", err)
	}
}
