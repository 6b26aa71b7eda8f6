package dto

type ReceiptItemResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
	CategoryID string  `json:"category_id"`
	Category   string  `json:"category"`
}

type ReceiptResponse struct {
	ID          string                `json:"id"`
	Status      string                `json:"status"`
	StoreName   string                `json:"store_name,omitempty"`
	TotalAmount float64               `json:"total_amount"`
	Currency    string                `json:"currency,omitempty"`
	PurchasedAt string                `json:"purchased_at,omitempty"`
	FileName    string                `json:"file_name"`
	ImageURL    string                `json:"image_url"`
	Items       []ReceiptItemResponse `json:"items,omitempty"`
	CreatedAt   string                `json:"created_at"`
}

type ProcessReceiptResponse struct {
	Receipt       ReceiptResponse `json:"receipt"`
	NewCategories []string        `json:"new_categories"`
}

type UpdateReceiptRequest struct {
	StoreName   *string  `json:"store_name"`
	TotalAmount *float64 `json:"total_amount"`
	Currency    *string  `json:"currency"`
	PurchasedAt *string  `json:"purchased_at"`
}

type ReconcileReceiptResponse struct {
	Receipt      ReceiptResponse      `json:"receipt"`
	RemovedItems []RemovedItemSummary `json:"removed_items"`
}

type RemovedItemSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
