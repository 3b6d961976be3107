package dedupe

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// DefaultThreshold is the similarity score above which two leads are
// considered the same real-world entity.
const DefaultThreshold = 0.85

// Embedder turns text into a fixed-dimension vector for similarity
// comparison.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Filter decides novel-vs-duplicate for incoming leads. It exclusively
// owns its index; records are admitted one at a time, so the
// read-then-insert sequence below is only safe for sequential use.
type Filter struct {
	embedder  Embedder
	threshold float64
	index     index
}

// NewFilter creates a Filter. A non-positive threshold gets
// DefaultThreshold.
func NewFilter(embedder Embedder, threshold float64) *Filter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Filter{embedder: embedder, threshold: threshold}
}

// IsDuplicate reports whether lead is a near-duplicate of a previously
// accepted lead. Novel leads are admitted into the index as a side
// effect; duplicates never are. An embedding failure counts as
// non-duplicate and is not indexed, so a lead is never dropped because
// the embedder was down.
func (f *Filter) IsDuplicate(ctx context.Context, lead model.Lead) bool {
	vec, err := f.embedder.EmbedText(ctx, lead.DedupeKey())
	if err != nil || len(vec) == 0 {
		zap.L().Warn("dedupe: embedding failed, passing lead through",
			zap.String("lead", lead.Name),
			zap.Error(err),
		)
		return false
	}

	dist, ok := f.index.nearest(vec)
	if !ok {
		f.index.add(vec)
		return false
	}

	similarity := 1 / (1 + dist)
	if similarity > f.threshold {
		zap.L().Debug("dedupe: duplicate detected",
			zap.String("lead", lead.Name),
			zap.Float64("similarity", similarity),
		)
		return true
	}

	f.index.add(vec)
	return false
}

// IndexSize returns the number of admitted leads.
func (f *Filter) IndexSize() int {
	return f.index.size()
}
