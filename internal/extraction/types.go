package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedReceipt is the receipt header as read off the image. PurchasedAt
// is nil when the model's date could not be parsed; a missing date is
// recoverable, a missing store name is not.
type ExtractedReceipt struct {
	StoreName   string
	TotalAmount decimal.Decimal
	Currency    string
	PurchasedAt *time.Time
}

// ExtractedItem is one line item. TotalAmount on the receipt is not forced
// to match the item sum here; repairing that inconsistency is exactly what
// reconciliation is for.
type ExtractedItem struct {
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Currency   string
	Category   CategoryCandidate
}

// Result is one completed extraction pass, handed to the caller to persist.
type Result struct {
	Receipt ExtractedReceipt
	Items   []ExtractedItem

	// NewCategories are the candidates decided during this pass, in the
	// order they were first proposed; the caller persists them and feeds
	// them back as existing categories on the next pass.
	NewCategories []CategoryCandidate

	// CategoryNames is the distinct set of category names the items
	// reference (existing and new), in first-use order.
	CategoryNames []string
}

// LineItem describes an already-persisted item for reconciliation, keyed by
// the caller's identifier.
type LineItem struct {
	ID         string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Currency   string
}

// Adjustment is the only edit reconciliation may propose: removal of an
// existing item. Remove is always true; the protocol has no other kind.
type Adjustment struct {
	ItemID string
	Remove bool
	Reason string
}
