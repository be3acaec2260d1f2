package transaction

import "time"

// Options controls the timing of a Driver's apply/verify/rollback cycle.
// Values mirror spec.md §4.6's fixed defaults rather than per-call flags.
type Options struct {
	// CheckpointTimeout bounds how long a checkpoint may remain open
	// before the backend is expected to auto-revert it.
	CheckpointTimeout time.Duration
	// SettleTimeout bounds the post-apply re-query/compare loop.
	SettleTimeout time.Duration
	// SettlePoll is the interval between settle re-queries.
	SettlePoll time.Duration
}

const (
	DefaultCheckpointTimeout = 60 * time.Second
	DefaultSettleTimeout     = 2 * time.Second
	DefaultSettlePoll        = 200 * time.Millisecond
)

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{
		CheckpointTimeout: DefaultCheckpointTimeout,
		SettleTimeout:     DefaultSettleTimeout,
		SettlePoll:        DefaultSettlePoll,
	}
}

func (o Options) withDefaults() Options {
	if o.CheckpointTimeout <= 0 {
		o.CheckpointTimeout = DefaultCheckpointTimeout
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = DefaultSettleTimeout
	}
	if o.SettlePoll <= 0 {
		o.SettlePoll = DefaultSettlePoll
	}
	return o
}
