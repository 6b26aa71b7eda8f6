package extraction

import (
	"context"

	"go.uber.org/zap"
)

// Pipeline runs the full image-to-structured-receipt flow: image
// normalization, model extraction, category resolution against the caller's
// existing taxonomy, and currency standardization.
type Pipeline struct {
	agent  *Agent
	logger *zap.Logger
}

func NewPipeline(agent *Agent, logger *zap.Logger) *Pipeline {
	return &Pipeline{agent: agent, logger: logger}
}

// Run processes one receipt image. existing lists the categories the caller
// already has; categories the model proposes that are not in that list come
// back in Result.NewCategories, deduplicated case-insensitively within the
// pass so two items sharing a fresh category yield one candidate.
func (p *Pipeline) Run(ctx context.Context, imageData []byte, contentType string, existing []CategoryCandidate) (*Result, error) {
	png, err := prepareImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	receipt, items, err := p.agent.Extract(ctx, png, existing)
	if err != nil {
		return nil, err
	}

	receipt.Currency = StandardizeCurrency(receipt.Currency)

	// Categories resolved so far this pass, existing ones included, so the
	// second "Dairy" item reuses the first's candidate instead of spawning a
	// duplicate.
	pool := make([]CategoryCandidate, len(existing))
	copy(pool, existing)

	result := &Result{Receipt: *receipt}
	seenNames := make(map[string]bool, len(items))

	for i := range items {
		res := ResolveCategory(items[i].Category, pool)
		var resolved CategoryCandidate
		switch {
		case res.Existing != nil:
			resolved = *res.Existing
		default:
			resolved = *res.Create
			pool = append(pool, resolved)
			result.NewCategories = append(result.NewCategories, resolved)
		}
		items[i].Category = resolved
		items[i].Currency = receipt.Currency

		if key := NormalizeCategoryName(resolved.Name); !seenNames[key] {
			seenNames[key] = true
			result.CategoryNames = append(result.CategoryNames, resolved.Name)
		}
	}

	result.Items = items
	return result, nil
}
