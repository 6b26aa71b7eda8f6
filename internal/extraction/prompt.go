package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// extractionSystemPrompt encodes the formatting contract and the category
// taxonomy. Shared by every backend; providers only differ in transport.
const extractionSystemPrompt = `You are a receipt analysis engine. You read photographed store receipts and return structured data. Receipts may be printed in any language (including English, Russian, German, Spanish, Japanese); read item names in their original language and do not translate them.

Extract the following from the receipt image:

1. store_name: the merchant or store name, usually the largest text at the top of the receipt. Required.

2. purchased_at: the transaction date and time in exactly this format: "YYYY-MM-DD HH:MM:SS". If the receipt shows no time, use "00:00:00" for the time part. If there is no date at all, use null.

3. total_amount: the final amount due (look for TOTAL, Grand Total, Amount Due, ИТОГО, SUMME, or similar). A number, not a string. Required.

4. currency: the receipt currency as an ISO 4217 code (USD, EUR, RUB, GBP, JPY, ...). Map symbols to codes: $ -> USD, € -> EUR, ₽ or "руб" -> RUB, £ -> GBP, ¥ -> JPY. Required.

5. items: every line item, each with:
   - name: the item name as printed
   - price: the line total for this item (a number)
   - quantity: the purchased quantity (a number; may be fractional for weighed goods)
   - category: {"name": ..., "description": ...}

Categorization rules. Prefer these top-level categories:
Produce, Dairy, Meat & Seafood, Bakery, Beverages, Deli, Dry Goods & Pantry, Frozen, Snacks, Household, Personal Care, Health, Pet Supplies, Electronics, Clothing, Other.
Exceptions: for Beverages, Deli, and Dry Goods & Pantry you may use a more specific subcategory when the items clearly warrant it (for example "Coffee & Tea", "Alcohol", "Cured Meats", "Baking Supplies"). Category descriptions must be specific to what the category contains, never a generic placeholder.

Return ONLY a JSON object in this exact shape, with no markdown code fences and no commentary:
{
  "store_name": "...",
  "purchased_at": "YYYY-MM-DD HH:MM:SS",
  "total_amount": 0.00,
  "currency": "USD",
  "items": [
    {"name": "...", "price": 0.00, "quantity": 1, "category": {"name": "...", "description": "..."}}
  ]
}`

// buildExtractionPrompt is the per-call user instruction. When the caller
// already has a taxonomy, it is injected so the model reuses entries instead
// of inventing near-duplicates.
func buildExtractionPrompt(existing []CategoryCandidate) string {
	var sb strings.Builder
	sb.WriteString("Analyze this receipt image and extract the structured data.")

	if len(existing) > 0 {
		sb.WriteString("\n\nThe user already has these categories. STRONGLY prefer reusing one of them (matching by meaning, not exact spelling) over creating a new category. Only create a new category when nothing below fits, and then give it a detailed, specific description:\n")
		for _, c := range existing {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, c.Description))
		}
	}

	return sb.String()
}

// reconcileSystemPrompt pins down the removal-only protocol. The model is a
// second opinion on an already-extracted list, never a second extractor.
const reconcileSystemPrompt = `You are auditing a previously extracted receipt. You receive the original receipt image, the receipt's declared total (ground truth), and the list of already-extracted line items with their identifiers.

The extracted item totals do not add up to the declared total. Your ONLY job is to identify which of the listed items are duplicates or noise (loyalty lines, subtotals read as items, the same item extracted twice) whose removal makes the remaining items sum to the declared total.

Hard rules:
- You may ONLY flag items from the provided list, referenced by their exact "id".
- You may NEVER add an item, and NEVER change the name, price or quantity of any item.
- If you cannot confidently tell which items are duplicated or noise, return an empty array. Never guess.
- "reason" is a short human explanation (at most 180 characters), optional.

Return ONLY a JSON array in this exact shape, with no markdown code fences and no commentary:
[
  {"item_id": "...", "remove": true, "reason": "..."}
]
Return [] if no removals are warranted.`

// buildReconcilePrompt renders the declared total and the item list for the
// audit call.
func buildReconcilePrompt(declaredTotal decimal.Decimal, items []LineItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Declared receipt total: %s\n\nExtracted items:\n", declaredTotal.StringFixed(2))
	for _, it := range items {
		fmt.Fprintf(&sb, "- id=%s name=%q quantity=%d unit_price=%s total_price=%s %s\n",
			it.ID, it.Name, it.Quantity, it.UnitPrice.StringFixed(2), it.TotalPrice.StringFixed(2), it.Currency)
	}
	sb.WriteString("\nIdentify duplicated or noise items to remove so the remaining items sum to the declared total.")
	return sb.String()
}
