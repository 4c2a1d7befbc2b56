package manager

import (
	"context"
	"time"
)

// Acquire returns a ready model for req, loading or swapping as needed.
//
// A request equivalent to the loaded model is served from the slot without
// any backend call. A different model is unloaded first, then the requested
// one is loaded; on failure the slot is left empty. Invalid or unknown
// requests are rejected before the slot lock is taken.
//
// A load that has started runs to completion even if ctx is cancelled; the
// slot is updated and the caller receives ctx.Err().
func (m *Manager) Acquire(ctx context.Context, req LoadRequest) (*LoadedModel, error) {
	req, err := m.normalize(req)
	if err != nil {
		return nil, err
	}
	path, err := m.resolve(req.Model)
	if err != nil {
		return nil, err
	}
	if m.backend == nil {
		return nil, loadFailedError{model: req.Model, err: errNoBackend}
	}

	unlock, err := m.lockSlot(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if cur := m.cur; cur != nil && cur.Request.Equivalent(req) {
		m.lastUsed = m.clock.Now()
		m.mu.Unlock()
		m.hits.Add(1)
		slotCacheHitsTotal.Inc()
		m.publisher.Publish(Event{Name: EventCacheHit, ModelID: req.Model})
		return cur, nil
	}
	prev := m.cur
	m.mu.Unlock()

	if prev != nil {
		m.unloadLocked(prev, reasonSwap)
	}

	lm, err := m.loadLocked(ctx, req, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lm, nil
}

// loadLocked materializes req. Caller holds the slot lock and the slot is empty.
func (m *Manager) loadLocked(ctx context.Context, req LoadRequest, path string) (*LoadedModel, error) {
	m.mu.Lock()
	m.state = StateLoading
	m.loading = req.String()
	m.err = ""
	m.mu.Unlock()

	m.log.Info().Str("model", req.Model).Str("precision", string(req.Precision)).Str("path", path).Msg("loading model")
	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: req.Model, Fields: map[string]any{"precision": string(req.Precision)}})

	start := m.clock.Now()
	// a started load finishes even if the caller goes away
	h, err := m.backend.Load(context.WithoutCancel(ctx), m.spec(req, path))
	dur := m.clock.Since(start)
	slotLoadDuration.Observe(dur.Seconds())

	if err != nil {
		lf := loadFailedError{model: req.Model, err: err}
		m.mu.Lock()
		m.state = StateEmpty
		m.loading = ""
		m.err = lf.Error()
		m.mu.Unlock()
		slotLoadsTotal.WithLabelValues("error").Inc()
		m.log.Error().Err(err).Str("model", req.Model).Dur("elapsed", dur).Msg("model load failed")
		m.publisher.Publish(Event{Name: EventLoadFailed, ModelID: req.Model, Fields: map[string]any{"error": err.Error()}})
		return nil, lf
	}

	now := m.clock.Now()
	m.mu.Lock()
	m.gen++
	lm := &LoadedModel{
		Request:  req,
		Handle:   h,
		Kind:     kindOf(h),
		LoadedAt: now,
		gen:      m.gen,
		m:        m,
	}
	m.cur = lm
	m.lastUsed = now
	m.state = StateReady
	m.loading = ""
	m.mu.Unlock()

	m.loads.Add(1)
	slotLoadsTotal.WithLabelValues("ok").Inc()
	slotLoaded.Set(1)
	m.log.Info().Str("model", req.Model).Str("kind", lm.Kind.String()).Dur("elapsed", dur).Msg("model ready")
	m.publisher.Publish(Event{Name: EventLoadDone, ModelID: req.Model, Fields: map[string]any{"kind": lm.Kind.String(), "load_ms": dur.Milliseconds()}})
	return lm, nil
}

// touch refreshes lastUsed if generation gen still occupies the slot.
func (m *Manager) touch(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.gen != gen {
		return false
	}
	m.lastUsed = m.clock.Now()
	return true
}

// idleFor reports how long the slot has gone unused, counting across
// evictions. Caller holds mu.
func (m *Manager) idleFor(now time.Time) time.Duration {
	if m.lastUsed.IsZero() {
		return 0
	}
	if d := now.Sub(m.lastUsed); d > 0 {
		return d
	}
	return 0
}
