package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	// ReceiptStatusPending means the image is stored but not yet run through
	// the extraction pipeline.
	ReceiptStatusPending   ReceiptStatus = "pending"
	ReceiptStatusProcessed ReceiptStatus = "processed"
)

type Receipt struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Status      ReceiptStatus   `db:"status"`
	StoreName   string          `db:"store_name"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Currency    string          `db:"currency"`
	PurchasedAt *time.Time      `db:"purchased_at"`
	FileName    string          `db:"file_name"`
	ImagePath   string          `db:"image_path"`
	ContentType string          `db:"content_type"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ReceiptItem currency always equals its receipt's currency; the pipeline
// forces that before anything is persisted.
type ReceiptItem struct {
	ID         uuid.UUID       `db:"id"`
	ReceiptID  uuid.UUID       `db:"receipt_id"`
	CategoryID uuid.UUID       `db:"category_id"`
	Name       string          `db:"name"`
	Quantity   int             `db:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price"`
	Currency   string          `db:"currency"`
	CreatedAt  time.Time       `db:"created_at"`
}
