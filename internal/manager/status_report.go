package manager

import (
	"context"

	"asrd/pkg/types"
)

// Snapshot returns a read-only view of the slot. It never waits on a load.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:    m.state,
		LastUsed: m.lastUsed,
		Idle:     m.idleFor(m.clock.Now()),
		Loading:  m.loading,
		Err:      m.err,
	}
	if m.cur != nil {
		s.Model = m.cur.Request.Model
		s.Precision = m.cur.Request.Precision
		s.Kind = m.cur.Kind
	}
	return s
}

// Status builds the status surface. Accelerator telemetry is collected after
// the slot read, with a short timeout; any failure leaves GPU nil.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	snap := m.Snapshot()
	now := m.clock.Now()
	resp := types.StatusResponse{
		Precision:      string(snap.Precision),
		IdleSeconds:    int(snap.Idle.Seconds()),
		IdleTimeout:    int(m.idleTimeout.Seconds()),
		State:          string(snap.State),
		LoadingModel:   snap.Loading,
		LastError:      snap.Err,
		LoadsTotal:     m.loads.Load(),
		EvictionsTotal: m.evictions.Load(),
		CacheHitsTotal: m.hits.Load(),
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if snap.Model != "" {
		id := snap.Model
		resp.ModelLoaded = &id
	}
	resp.GPU = m.gpu(ctx)
	return resp
}

func (m *Manager) gpu(ctx context.Context) *types.GPUInfo {
	if m.telemetry == nil {
		return nil
	}
	tctx, cancel := context.WithTimeout(ctx, m.telemetryTimeout)
	defer cancel()
	gpus, err := m.telemetry.Collect(tctx)
	if err != nil || len(gpus) == 0 {
		if err != nil {
			m.log.Debug().Err(err).Msg("gpu telemetry unavailable")
		}
		return nil
	}
	g := gpus[0]
	return &g
}
