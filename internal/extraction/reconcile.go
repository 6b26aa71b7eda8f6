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

const maxReasonLength = 180

// reconcileTolerance is the largest |declared total - item sum| treated as
// rounding noise rather than a real discrepancy.
var reconcileTolerance = decimal.RequireFromString("0.05")

// Reconciler asks the model which line items to drop when the extracted
// items do not add up to the receipt's declared total. It only ever removes
// items, never invents or edits them.
type Reconciler struct {
	client  vision.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewReconciler(client vision.Client, timeout time.Duration, logger *zap.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Reconciler{client: client, timeout: timeout, logger: logger}
}

// Reconcile returns the removals needed to bring the item sum in line with
// declaredTotal. When the sum is already within tolerance no model call is
// made and the result is empty. When the model's proposal still leaves the
// sum out of tolerance the proposal is discarded rather than applied.
// The original receipt image goes back to the model so it can tell real
// items from extraction artifacts.
func (r *Reconciler) Reconcile(ctx context.Context, imageData []byte, contentType string, declaredTotal decimal.Decimal, items []LineItem) ([]Adjustment, error) {
	sum := sumLineItems(items)
	if withinTolerance(declaredTotal, sum) {
		return nil, nil
	}

	png, err := prepareImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Reconciling receipt total",
		zap.String("declared", declaredTotal.StringFixed(2)),
		zap.String("item_sum", sum.StringFixed(2)),
		zap.Int("items", len(items)),
	)

	req := vision.Request{
		System:   reconcileSystemPrompt,
		Prompt:   buildReconcilePrompt(declaredTotal, items),
		ImagePNG: png,
	}

	var adjustments []Adjustment
	err = runWithRetries(ctx, r.client, req, r.timeout, r.logger, func(text string) error {
		parsed, perr := parseAdjustments(text, items)
		if perr != nil {
			return perr
		}
		adjustments = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	remaining := decimal.Zero
	removed := make(map[string]bool, len(adjustments))
	for _, adj := range adjustments {
		removed[adj.ItemID] = true
	}
	for _, it := range items {
		if !removed[it.ID] {
			remaining = remaining.Add(it.TotalPrice)
		}
	}
	if !withinTolerance(declaredTotal, remaining) {
		r.logger.Warn("Reconciliation proposal does not close the gap, discarding it",
			zap.String("declared", declaredTotal.StringFixed(2)),
			zap.String("sum_after_removals", remaining.StringFixed(2)),
			zap.Int("proposed_removals", len(adjustments)),
		)
		return nil, nil
	}

	return adjustments, nil
}

func sumLineItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}

func withinTolerance(declared, sum decimal.Decimal) bool {
	return declared.Sub(sum).Abs().LessThanOrEqual(reconcileTolerance)
}

type rawAdjustment struct {
	ItemID string `json:"item_id"`
	Remove bool   `json:"remove"`
	Reason string `json:"reason"`
}

// parseAdjustments validates the model's proposal against the actual item
// list: unknown and duplicate ids are dropped, reasons are clamped, and the
// remove flag is forced on since removal is the only supported operation.
func parseAdjustments(text string, items []LineItem) ([]Adjustment, error) {
	jsonStr, err := extractJSON(text, '[', ']')
	if err != nil {
		return nil, err
	}

	var raw []rawAdjustment
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, newError(KindValidationFailure, "unmarshaling reconciliation response: %v", err)
	}

	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}

	seen := make(map[string]bool, len(raw))
	adjustments := make([]Adjustment, 0, len(raw))
	for _, a := range raw {
		id := strings.TrimSpace(a.ItemID)
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true

		reason := strings.TrimSpace(a.Reason)
		// Clamp by runes, not bytes; a byte slice could split a multi-byte
		// character and leak invalid UTF-8 into the API response.
		if runes := []rune(reason); len(runes) > maxReasonLength {
			reason = string(runes[:maxReasonLength])
		}
		adjustments = append(adjustments, Adjustment{
			ItemID: id,
			Remove: true,
			Reason: reason,
		})
	}
	return adjustments, nil
}
