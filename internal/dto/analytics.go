package dto

type SpendSummaryResponse struct {
	TotalSpend   float64 `json:"total_spend"`
	ReceiptCount int     `json:"receipt_count"`
	AverageSpend float64 `json:"average_spend"`
	From         string  `json:"from"`
	To           string  `json:"to"`
}

type MonthlyTrendEntry struct {
	Month        string  `json:"month"`
	TotalSpend   float64 `json:"total_spend"`
	ReceiptCount int     `json:"receipt_count"`
}

type TopStoreEntry struct {
	StoreName    string  `json:"store_name"`
	TotalSpend   float64 `json:"total_spend"`
	ReceiptCount int     `json:"receipt_count"`
}

type CategoryBreakdownEntry struct {
	CategoryID string  `json:"category_id"`
	Category   string  `json:"category"`
	TotalSpend float64 `json:"total_spend"`
	ItemCount  int     `json:"item_count"`
	Share      float64 `json:"share"`
}
