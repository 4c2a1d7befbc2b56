package manager

import (
	"context"

	"github.com/rs/zerolog"
)

// Reaper evicts the slot once it has been idle longer than the manager's
// idle timeout. It goes through the public Evict path only.
type Reaper struct {
	m   *Manager
	log zerolog.Logger
}

// NewReaper returns a reaper for m using m's idle timeout and reap interval.
func NewReaper(m *Manager) *Reaper {
	return &Reaper{m: m, log: m.log.With().Str("component", "reaper").Logger()}
}

// Run ticks every reap interval until ctx ends.
func (r *Reaper) Run(ctx context.Context) {
	t := r.m.clock.Ticker(r.m.reapInterval)
	defer t.Stop()
	r.log.Info().Dur("interval", r.m.reapInterval).Dur("idle_timeout", r.m.idleTimeout).Msg("idle reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one reap check and reports whether a model was evicted.
func (r *Reaper) Tick(ctx context.Context) bool {
	snap := r.m.Snapshot()
	if snap.Model == "" || snap.Idle <= r.m.idleTimeout {
		return false
	}
	evicted, err := r.m.Evict(ctx, IfIdleLonger(r.m.idleTimeout))
	if err != nil {
		return false
	}
	if evicted {
		r.log.Info().Str("model", snap.Model).Dur("idle", snap.Idle).Msg("offloaded idle model")
	}
	return evicted
}
