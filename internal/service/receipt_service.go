package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"receiptly/internal/dto"
	"receiptly/internal/extraction"
	"receiptly/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptNotProcessed = errors.New("receipt has not been processed yet")
)

type receiptStore interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Receipt, error)
	UpdateExtraction(ctx context.Context, receipt *models.Receipt) error
	Update(ctx context.Context, receipt *models.Receipt) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type itemStore interface {
	CreateBatch(ctx context.Context, items []*models.ReceiptItem) error
	ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]*models.ReceiptItem, error)
	DeleteByIDs(ctx context.Context, receiptID uuid.UUID, ids []uuid.UUID) error
	DeleteByReceiptID(ctx context.Context, receiptID uuid.UUID) error
}

type receiptCategoryStore interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Category, error)
	CreateBatch(ctx context.Context, categories []*models.Category) error
}

type pipelineRunner interface {
	Run(ctx context.Context, imageData []byte, contentType string, existing []extraction.CategoryCandidate) (*extraction.Result, error)
}

type totalReconciler interface {
	Reconcile(ctx context.Context, imageData []byte, contentType string, declaredTotal decimal.Decimal, items []extraction.LineItem) ([]extraction.Adjustment, error)
}

type ReceiptService struct {
	receiptRepo receiptStore
	itemRepo    itemStore
	catRepo     receiptCategoryStore
	pipeline    pipelineRunner
	reconciler  totalReconciler
	uploadDir   string
	logger      *zap.Logger
}

func NewReceiptService(
	receiptRepo receiptStore,
	itemRepo itemStore,
	catRepo receiptCategoryStore,
	pipeline pipelineRunner,
	reconciler totalReconciler,
	uploadDir string,
	logger *zap.Logger,
) *ReceiptService {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &ReceiptService{
		receiptRepo: receiptRepo,
		itemRepo:    itemRepo,
		catRepo:     catRepo,
		pipeline:    pipeline,
		reconciler:  reconciler,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// Upload stores the image and creates a pending receipt record. Extraction
// happens in a separate Process call so slow model traffic never blocks the
// upload itself.
func (s *ReceiptService) Upload(ctx context.Context, userID uuid.UUID, file io.Reader, fileName, contentType string) (*dto.ReceiptResponse, error) {
	receiptID := uuid.New()
	storedName := receiptID.String() + filepath.Ext(fileName)
	filePath := filepath.Join(s.uploadDir, storedName)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	now := time.Now()
	receipt := &models.Receipt{
		ID:          receiptID,
		UserID:      userID,
		Status:      models.ReceiptStatusPending,
		FileName:    fileName,
		ImagePath:   "/uploads/" + storedName,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create receipt record: %w", err)
	}

	return receiptToResponse(receipt, nil, nil), nil
}

// Process runs the extraction pipeline on an uploaded receipt. Reprocessing
// a processed receipt replaces its items with the fresh extraction.
func (s *ReceiptService) Process(ctx context.Context, userID, receiptID uuid.UUID) (*dto.ProcessReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil || receipt.UserID != userID {
		return nil, ErrReceiptNotFound
	}

	imageData, err := os.ReadFile(filepath.Join(s.uploadDir, filepath.Base(receipt.ImagePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt image: %w", err)
	}

	categories, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing := make([]extraction.CategoryCandidate, len(categories))
	byName := make(map[string]*models.Category, len(categories))
	for i, c := range categories {
		existing[i] = extraction.CategoryCandidate{Name: c.Name, Description: c.Description}
		byName[extraction.NormalizeCategoryName(c.Name)] = c
	}

	result, err := s.pipeline.Run(ctx, imageData, receipt.ContentType, existing)
	if err != nil {
		return nil, err
	}

	// Persist categories this extraction introduced.
	now := time.Now()
	newCategories := make([]*models.Category, 0, len(result.NewCategories))
	newNames := make([]string, 0, len(result.NewCategories))
	for _, cand := range result.NewCategories {
		category := &models.Category{
			ID:          uuid.New(),
			UserID:      userID,
			Name:        cand.Name,
			Description: cand.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		newCategories = append(newCategories, category)
		newNames = append(newNames, category.Name)
		byName[extraction.NormalizeCategoryName(category.Name)] = category
	}
	if err := s.catRepo.CreateBatch(ctx, newCategories); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}

	items := make([]*models.ReceiptItem, 0, len(result.Items))
	for _, it := range result.Items {
		category, ok := byName[extraction.NormalizeCategoryName(it.Category.Name)]
		if !ok {
			return nil, fmt.Errorf("extracted item %q references unresolved category %q", it.Name, it.Category.Name)
		}
		items = append(items, &models.ReceiptItem{
			ID:         uuid.New(),
			ReceiptID:  receiptID,
			CategoryID: category.ID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Currency:   it.Currency,
			CreatedAt:  now,
		})
	}

	if err := s.itemRepo.DeleteByReceiptID(ctx, receiptID); err != nil {
		return nil, fmt.Errorf("failed to clear previous items: %w", err)
	}
	if err := s.itemRepo.CreateBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to save items: %w", err)
	}

	receipt.Status = models.ReceiptStatusProcessed
	receipt.StoreName = result.Receipt.StoreName
	receipt.TotalAmount = result.Receipt.TotalAmount
	receipt.Currency = result.Receipt.Currency
	receipt.PurchasedAt = result.Receipt.PurchasedAt
	if err := s.receiptRepo.UpdateExtraction(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to update receipt: %w", err)
	}

	s.logger.Info("Receipt processed",
		zap.String("receipt_id", receiptID.String()),
		zap.String("store", receipt.StoreName),
		zap.Int("items", len(items)),
		zap.Int("new_categories", len(newCategories)),
	)

	return &dto.ProcessReceiptResponse{
		Receipt:       *receiptToResponse(receipt, items, byName),
		NewCategories: newNames,
	}, nil
}

// Reconcile checks the receipt's declared total against the sum of its items
// and removes the items the model flags as extraction artifacts.
func (s *ReceiptService) Reconcile(ctx context.Context, userID, receiptID uuid.UUID) (*dto.ReconcileReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil || receipt.UserID != userID {
		return nil, ErrReceiptNotFound
	}
	if receipt.Status != models.ReceiptStatusProcessed {
		return nil, ErrReceiptNotProcessed
	}

	items, err := s.itemRepo.ListByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	imageData, err := os.ReadFile(filepath.Join(s.uploadDir, filepath.Base(receipt.ImagePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt image: %w", err)
	}

	lineItems := make([]extraction.LineItem, len(items))
	byID := make(map[string]*models.ReceiptItem, len(items))
	for i, item := range items {
		lineItems[i] = extraction.LineItem{
			ID:         item.ID.String(),
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Currency:   item.Currency,
		}
		byID[item.ID.String()] = item
	}

	adjustments, err := s.reconciler.Reconcile(ctx, imageData, receipt.ContentType, receipt.TotalAmount, lineItems)
	if err != nil {
		return nil, err
	}

	removed := make([]dto.RemovedItemSummary, 0, len(adjustments))
	removedIDs := make([]uuid.UUID, 0, len(adjustments))
	for _, adj := range adjustments {
		item, ok := byID[adj.ItemID]
		if !ok {
			continue
		}
		removedIDs = append(removedIDs, item.ID)
		removed = append(removed, dto.RemovedItemSummary{
			ID:     adj.ItemID,
			Name:   item.Name,
			Reason: adj.Reason,
		})
		delete(byID, adj.ItemID)
	}

	if err := s.itemRepo.DeleteByIDs(ctx, receiptID, removedIDs); err != nil {
		return nil, fmt.Errorf("failed to remove items: %w", err)
	}

	remaining := make([]*models.ReceiptItem, 0, len(byID))
	for _, item := range items {
		if _, ok := byID[item.ID.String()]; ok {
			remaining = append(remaining, item)
		}
	}

	if len(removed) > 0 {
		s.logger.Info("Receipt reconciled",
			zap.String("receipt_id", receiptID.String()),
			zap.Int("removed_items", len(removed)),
		)
	}

	categories, err := s.categoriesByName(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.ReconcileReceiptResponse{
		Receipt:      *receiptToResponse(receipt, remaining, categories),
		RemovedItems: removed,
	}, nil
}

func (s *ReceiptService) Get(ctx context.Context, userID, receiptID uuid.UUID) (*dto.ReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil || receipt.UserID != userID {
		return nil, ErrReceiptNotFound
	}

	items, err := s.itemRepo.ListByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	categories, err := s.categoriesByName(ctx, userID)
	if err != nil {
		return nil, err
	}

	return receiptToResponse(receipt, items, categories), nil
}

func (s *ReceiptService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*dto.ReceiptResponse, error) {
	receipts, err := s.receiptRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ReceiptResponse, len(receipts))
	for i, receipt := range receipts {
		responses[i] = receiptToResponse(receipt, nil, nil)
	}

	return responses, nil
}

func (s *ReceiptService) Update(ctx context.Context, userID, receiptID uuid.UUID, req *dto.UpdateReceiptRequest) (*dto.ReceiptResponse, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil || receipt.UserID != userID {
		return nil, ErrReceiptNotFound
	}

	if req.StoreName != nil {
		receipt.StoreName = *req.StoreName
	}
	if req.TotalAmount != nil {
		receipt.TotalAmount = decimal.NewFromFloat(*req.TotalAmount).Round(2)
	}
	if req.Currency != nil {
		receipt.Currency = extraction.StandardizeCurrency(*req.Currency)
	}
	if req.PurchasedAt != nil {
		ts, err := time.Parse(time.RFC3339, *req.PurchasedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid purchased_at: %w", err)
		}
		receipt.PurchasedAt = &ts
	}
	receipt.UpdatedAt = time.Now()

	if err := s.receiptRepo.Update(ctx, receipt); err != nil {
		return nil, err
	}

	return receiptToResponse(receipt, nil, nil), nil
}

func (s *ReceiptService) Delete(ctx context.Context, userID, receiptID uuid.UUID) error {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil || receipt.UserID != userID {
		return ErrReceiptNotFound
	}

	if err := s.itemRepo.DeleteByReceiptID(ctx, receiptID); err != nil {
		return err
	}
	if err := s.receiptRepo.Delete(ctx, userID, receiptID); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.uploadDir, filepath.Base(receipt.ImagePath))); err != nil {
		s.logger.Warn("Failed to remove receipt image", zap.Error(err))
	}

	return nil
}

func (s *ReceiptService) categoriesByName(ctx context.Context, userID uuid.UUID) (map[string]*models.Category, error) {
	categories, err := s.catRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		byName[extraction.NormalizeCategoryName(c.Name)] = c
	}
	return byName, nil
}

func receiptToResponse(receipt *models.Receipt, items []*models.ReceiptItem, categories map[string]*models.Category) *dto.ReceiptResponse {
	byID := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Name
	}

	resp := &dto.ReceiptResponse{
		ID:          receipt.ID.String(),
		Status:      string(receipt.Status),
		StoreName:   receipt.StoreName,
		TotalAmount: receipt.TotalAmount.InexactFloat64(),
		Currency:    receipt.Currency,
		FileName:    receipt.FileName,
		ImageURL:    receipt.ImagePath,
		CreatedAt:   receipt.CreatedAt.Format(time.RFC3339),
	}
	if receipt.PurchasedAt != nil {
		resp.PurchasedAt = receipt.PurchasedAt.Format(time.RFC3339)
	}

	for _, item := range items {
		resp.Items = append(resp.Items, dto.ReceiptItemResponse{
			ID:         item.ID.String(),
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.InexactFloat64(),
			TotalPrice: item.TotalPrice.InexactFloat64(),
			Currency:   item.Currency,
			CategoryID: item.CategoryID.String(),
			Category:   byID[item.CategoryID],
		})
	}

	return resp
}
