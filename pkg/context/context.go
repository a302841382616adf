package context

import (
	"math/rand"
	"time"

	"mpimeasure/pkg/comm"
	"mpimeasure/pkg/config"
	"mpimeasure/pkg/measure"
)

// OperationContext holds rank-scoped data for one measured workload run.
type OperationContext struct {
	Config     *config.Config     // The run configuration
	Info       comm.Info          // The group position of this rank.
	Instrument measure.Instrument // The instrument of this rank, possibly a Nop.

	rnd *rand.Rand
}

// NewContext creates a new OperationContext. The jitter source is seeded from
// the configured seed and the rank so every rank draws its own sequence.
func NewContext(cfg *config.Config, info comm.Info, in measure.Instrument) *OperationContext {
	return &OperationContext{
		Config:     cfg,
		Info:       info,
		Instrument: in,
		rnd:        rand.New(rand.NewSource(cfg.Seed + int64(info.Rank))),
	}
}

// Work returns the synthetic work of this rank for one column: the base
// work stretched by the rank's share of the imbalance, with up to 10% jitter.
func (c *OperationContext) Work() time.Duration {
	base := float64(c.Config.Work)
	if base <= 0 {
		return 0
	}
	share := 0.0
	if c.Info.Size > 1 {
		share = float64(c.Info.Rank) / float64(c.Info.Size-1)
	}
	jitter := 1 + 0.1*c.rnd.Float64()
	return time.Duration(base * (1 + c.Config.Imbalance*share) * jitter)
}
