// Package sink persists accepted leads. The store is append-only: a lead
// is written at most once and never updated afterwards.
package sink

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Sink is the append-only lead store. Append may fail per-lead without
// aborting a run; ReadAll is for reporting surfaces only and is never
// required mid-run.
type Sink interface {
	Append(ctx context.Context, lead model.Lead) error
	ReadAll(ctx context.Context) ([]model.Lead, error)
	Close() error
}
