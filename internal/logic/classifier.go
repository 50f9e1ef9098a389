package logic

import (
	"context"

	"github.com/cloakgate/cloakgate/internal/models"
	"github.com/cloakgate/cloakgate/internal/observability"
	"github.com/cloakgate/cloakgate/internal/signals"
	"go.uber.org/zap"
)

// ReasonClean is the verdict reason when no filter fires.
const ReasonClean = "clean traffic"

// Verdict is the classifier's output: the bot flag plus a human-readable
// reason naming the filter that produced it and, where available, the
// triggering signal value.
type Verdict struct {
	IsBot  bool   `json:"is_bot"`
	Reason string `json:"reason"`
}

// Filter is one stage of the classification chain. Returning nil means "no
// opinion"; a non-nil Verdict is terminal and stops the chain.
type Filter interface {
	Name() string
	Evaluate(ctx context.Context, sig signals.Bundle, c models.Campaign) *Verdict
}

// Classifier evaluates a fixed, ordered filter chain. Exactly one filter
// produces the terminal verdict; once a filter fires, later filters are never
// evaluated. The order is part of the contract: cheap local checks run before
// the network-backed reputation check.
type Classifier struct {
	filters []Filter
	metrics observability.MetricsRegistry
}

// NewClassifier builds the standard chain: bot user agent, desktop
// restriction, referrer restriction, reputation. lookuper may be a disabled
// client; the reputation filter then skips itself.
func NewClassifier(lookuper Lookuper, logger *zap.Logger, metrics observability.MetricsRegistry) *Classifier {
	return &Classifier{
		filters: []Filter{
			botUserAgentFilter{},
			desktopFilter{},
			referrerFilter{},
			&reputationFilter{client: lookuper, logger: logger},
		},
		metrics: metrics,
	}
}

// Classify runs the chain and returns the first terminal verdict, or the
// clean verdict when nothing fires. Deterministic for identical inputs except
// for the reputation lookup's transient availability.
func (c *Classifier) Classify(ctx context.Context, sig signals.Bundle, campaign models.Campaign) Verdict {
	for _, f := range c.filters {
		if v := f.Evaluate(ctx, sig, campaign); v != nil {
			c.metrics.IncrementFilterBlocks(f.Name())
			return *v
		}
	}
	return Verdict{IsBot: false, Reason: ReasonClean}
}
