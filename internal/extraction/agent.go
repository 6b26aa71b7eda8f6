package extraction

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"receiptly/internal/vision"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// maxRetries bounds how many times a failed model call is reattempted;
	// with the initial attempt that is maxRetries+1 calls total.
	maxRetries = 3

	// purchasedAtLayout is the date-time format the prompt demands.
	purchasedAtLayout = "2006-01-02 15:04:05"
)

// initialBackoff is a variable so tests can run the retry loop quickly.
var initialBackoff = 500 * time.Millisecond

// Agent turns a receipt image into validated structured data via one vision
// model call (plus retries).
type Agent struct {
	client  vision.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewAgent(client vision.Client, timeout time.Duration, logger *zap.Logger) *Agent {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Agent{client: client, timeout: timeout, logger: logger}
}

// Extract runs the extraction call. The existing categories, when supplied,
// are injected into the prompt so the model reuses the caller's taxonomy.
func (a *Agent) Extract(ctx context.Context, imagePNG []byte, existing []CategoryCandidate) (*ExtractedReceipt, []ExtractedItem, error) {
	req := vision.Request{
		System:   extractionSystemPrompt,
		Prompt:   buildExtractionPrompt(existing),
		ImagePNG: imagePNG,
	}

	var receipt *ExtractedReceipt
	var items []ExtractedItem
	err := runWithRetries(ctx, a.client, req, a.timeout, a.logger, func(text string) error {
		r, its, perr := a.parseExtraction(text)
		if perr != nil {
			return perr
		}
		receipt, items = r, its
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	a.logger.Info("Receipt extracted",
		zap.String("store", receipt.StoreName),
		zap.String("total", receipt.TotalAmount.StringFixed(2)),
		zap.Int("items", len(items)),
	)
	return receipt, items, nil
}

// Wire shape of the model's extraction response. Pointers distinguish
// "missing" from zero values so shape validation can be exact.
type rawExtraction struct {
	StoreName   *string   `json:"store_name"`
	PurchasedAt *string   `json:"purchased_at"`
	TotalAmount *float64  `json:"total_amount"`
	Currency    *string   `json:"currency"`
	Items       []rawItem `json:"items"`
}

type rawItem struct {
	Name     *string      `json:"name"`
	Price    *float64     `json:"price"`
	Quantity *float64     `json:"quantity"`
	Category *rawCategory `json:"category"`
}

type rawCategory struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *Agent) parseExtraction(text string) (*ExtractedReceipt, []ExtractedItem, error) {
	jsonStr, err := extractJSON(text, '{', '}')
	if err != nil {
		return nil, nil, err
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, nil, newError(KindValidationFailure, "unmarshaling extraction response: %v", err)
	}

	if raw.StoreName == nil || strings.TrimSpace(*raw.StoreName) == "" {
		return nil, nil, newError(KindValidationFailure, "model response missing store_name")
	}
	if raw.TotalAmount == nil {
		return nil, nil, newError(KindValidationFailure, "model response missing total_amount")
	}
	if *raw.TotalAmount < 0 {
		return nil, nil, newError(KindValidationFailure, "model reported negative total_amount %v", *raw.TotalAmount)
	}
	if raw.Currency == nil || strings.TrimSpace(*raw.Currency) == "" {
		return nil, nil, newError(KindValidationFailure, "model response missing currency")
	}

	receipt := &ExtractedReceipt{
		StoreName:   strings.TrimSpace(*raw.StoreName),
		TotalAmount: decimal.NewFromFloat(*raw.TotalAmount).Round(2),
		Currency:    strings.TrimSpace(*raw.Currency),
	}

	// A date the model got wrong is recoverable; drop it and proceed.
	if raw.PurchasedAt != nil && *raw.PurchasedAt != "" {
		if ts, perr := time.Parse(purchasedAtLayout, *raw.PurchasedAt); perr == nil {
			receipt.PurchasedAt = &ts
		} else {
			a.logger.Warn("Unparseable purchase date, proceeding without it",
				zap.String("raw", *raw.PurchasedAt))
		}
	}

	items := make([]ExtractedItem, 0, len(raw.Items))
	for i, it := range raw.Items {
		if it.Name == nil || strings.TrimSpace(*it.Name) == "" {
			return nil, nil, newError(KindValidationFailure, "item %d missing name", i)
		}
		if it.Price == nil {
			return nil, nil, newError(KindValidationFailure, "item %d missing price", i)
		}
		if *it.Price < 0 {
			return nil, nil, newError(KindValidationFailure, "item %d has negative price", i)
		}
		if it.Category == nil || strings.TrimSpace(it.Category.Name) == "" {
			return nil, nil, newError(KindValidationFailure, "item %d missing category", i)
		}

		quantity, unitPrice, totalPrice := deriveItemAmounts(*it.Price, it.Quantity)

		items = append(items, ExtractedItem{
			Name:       strings.TrimSpace(*it.Name),
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Currency:   receipt.Currency,
			Category: CategoryCandidate{
				Name:        strings.TrimSpace(it.Category.Name),
				Description: strings.TrimSpace(it.Category.Description),
			},
		})
	}

	return receipt, items, nil
}

// deriveItemAmounts normalizes the model's price/quantity pair. The reported
// price is the line total. A fractional quantity that is a whole number
// (2.0) becomes that integer; any other quantity (missing, zero, 1.37 kg of
// produce) collapses to 1. Unit price is back-derived and rounded to two
// decimals so repeated extractions do not accumulate float drift.
func deriveItemAmounts(price float64, quantity *float64) (int, decimal.Decimal, decimal.Decimal) {
	totalPrice := decimal.NewFromFloat(price).Round(2)

	qty := 1
	if quantity != nil && *quantity > 0 {
		if q := decimal.NewFromFloat(*quantity); q.IsInteger() {
			qty = int(q.IntPart())
		}
	}

	unitPrice := totalPrice.Div(decimal.NewFromInt(int64(qty))).Round(2)
	return qty, unitPrice, totalPrice
}

// extractJSON pulls the first well-delimited JSON value out of a model
// response, tolerating markdown fences and surrounding chatter.
func extractJSON(text string, open, closing byte) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, closing)
	if start == -1 || end == -1 || end < start {
		return "", newError(KindValidationFailure, "no JSON payload found in model response")
	}
	return text[start : end+1], nil
}

// runWithRetries drives the model call loop. Transient transport errors and
// malformed responses are retried with exponential backoff; fatal transport
// errors surface immediately. handle parses the response and returns a
// validation-kind error to trigger a retry.
func runWithRetries(ctx context.Context, client vision.Client, req vision.Request, timeout time.Duration, logger *zap.Logger, handle func(string) error) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying model call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return &Error{Kind: KindTransientFailure, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := client.Generate(callCtx, req)
		cancel()

		if err != nil {
			if !vision.IsTransient(err) {
				return &Error{Kind: KindFatalFailure, Err: err}
			}
			lastErr = err
			continue
		}

		if err := handle(text); err != nil {
			if KindOf(err) != KindValidationFailure {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}

	if KindOf(lastErr) == KindValidationFailure {
		return lastErr
	}
	return &Error{Kind: KindTransientFailure, Err: lastErr}
}
