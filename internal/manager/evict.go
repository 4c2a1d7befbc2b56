package manager

import (
	"context"
	"time"
)

type evictOptions struct {
	idleLonger time.Duration
	only       *LoadedModel
	reason     string
}

// EvictOption customises a single Evict call.
type EvictOption func(*evictOptions)

// IfIdleLonger evicts only if the slot has been unused for more than d,
// measured after the slot lock is held.
func IfIdleLonger(d time.Duration) EvictOption {
	return func(o *evictOptions) {
		o.idleLonger = d
		o.reason = reasonIdle
	}
}

// IfCurrent evicts only if lm still occupies the slot. Sessions use it to
// drop a handle whose backend died, without touching a newer load.
func IfCurrent(lm *LoadedModel) EvictOption {
	return func(o *evictOptions) {
		o.only = lm
		o.reason = reasonStale
	}
}

// Evict unloads the model in the slot and reports whether anything was
// evicted. Evicting an empty slot is a no-op. The only error is ctx ending
// while waiting for the slot lock.
func (m *Manager) Evict(ctx context.Context, opts ...EvictOption) (bool, error) {
	o := evictOptions{reason: reasonManual}
	for _, fn := range opts {
		fn(&o)
	}

	unlock, err := m.lockSlot(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	m.mu.Lock()
	cur := m.cur
	if cur == nil {
		m.mu.Unlock()
		return false, nil
	}
	if o.only != nil && o.only.gen != cur.gen {
		m.mu.Unlock()
		return false, nil
	}
	if o.idleLonger > 0 {
		if idle := m.idleFor(m.clock.Now()); idle <= o.idleLonger {
			m.mu.Unlock()
			m.log.Debug().Str("model", cur.Request.Model).Dur("idle", idle).Msg("evict skipped; slot in use")
			m.publisher.Publish(Event{Name: EventEvictSkipped, ModelID: cur.Request.Model, Fields: map[string]any{"idle_ms": idle.Milliseconds()}})
			return false, nil
		}
	}
	m.state = StateUnloading
	m.mu.Unlock()

	m.unloadLocked(cur, o.reason)
	return true, nil
}

// unloadLocked releases lm and clears the slot. Caller holds the slot lock.
// The slot is cleared even when the backend unload fails.
func (m *Manager) unloadLocked(lm *LoadedModel, reason string) {
	m.mu.Lock()
	m.state = StateUnloading
	m.mu.Unlock()

	model := lm.Request.Model
	m.log.Info().Str("model", model).Str("reason", reason).Msg("unloading model")
	m.publisher.Publish(Event{Name: EventUnloadStart, ModelID: model, Fields: map[string]any{"reason": reason}})

	err := lm.Handle.Unload()

	m.mu.Lock()
	if m.cur == lm {
		m.cur = nil
	}
	m.state = StateEmpty
	m.mu.Unlock()

	m.evictions.Add(1)
	slotEvictionsTotal.WithLabelValues(reason).Inc()
	slotLoaded.Set(0)

	if err != nil {
		m.log.Warn().Err(err).Str("model", model).Msg("backend unload failed; slot cleared")
		m.publisher.Publish(Event{Name: EventUnloadError, ModelID: model, Fields: map[string]any{"error": err.Error()}})
		return
	}
	m.publisher.Publish(Event{Name: EventUnloadDone, ModelID: model, Fields: map[string]any{"reason": reason}})
}
