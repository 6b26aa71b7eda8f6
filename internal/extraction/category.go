package extraction

import "strings"

// CategoryCandidate is a category as the model proposes it: a display name
// and a description detailed enough to guide future classification.
type CategoryCandidate struct {
	Name        string
	Description string
}

// CategoryResolution is the outcome of matching a proposed category against
// the caller's taxonomy: exactly one of Existing or Create is set.
type CategoryResolution struct {
	// Existing points into the caller-supplied list when the proposal
	// matches a known category by normalized name.
	Existing *CategoryCandidate
	// Create holds the candidate to persist when nothing matched.
	Create *CategoryCandidate
}

// NormalizeCategoryName produces the comparison key for category names:
// trimmed, lowercased, internal whitespace collapsed. "Dairy ", "dairy" and
// "DAIRY" all collapse to the same key, which is what keeps repeated
// extractions converging on a stable taxonomy instead of sprouting
// near-duplicates.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ResolveCategory decides whether the proposed category reuses an existing
// entry or needs to be created. Pure function: the caller owns the existing
// list and is responsible for persisting any Create result before relying on
// it in a later call.
func ResolveCategory(proposed CategoryCandidate, existing []CategoryCandidate) CategoryResolution {
	key := NormalizeCategoryName(proposed.Name)
	for i := range existing {
		if NormalizeCategoryName(existing[i].Name) == key {
			return CategoryResolution{Existing: &existing[i]}
		}
	}

	created := CategoryCandidate{
		Name:        strings.Join(strings.Fields(proposed.Name), " "),
		Description: strings.TrimSpace(proposed.Description),
	}
	return CategoryResolution{Create: &created}
}
