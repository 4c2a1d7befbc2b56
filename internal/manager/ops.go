package manager

import "context"

// Preload acquires req in the background. The returned channel receives the
// result once and is then closed.
func (m *Manager) Preload(ctx context.Context, req LoadRequest) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := m.Acquire(ctx, req)
		if err != nil {
			m.log.Warn().Err(err).Str("model", req.Model).Msg("preload failed")
		}
		done <- err
	}()
	return done
}

// Close evicts the slot and stops accepting new acquires. Safe to call more
// than once.
func (m *Manager) Close(ctx context.Context) error {
	unlock, err := m.lockSlot(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	m.mu.Lock()
	m.closed = true
	cur := m.cur
	m.mu.Unlock()
	if cur != nil {
		m.unloadLocked(cur, reasonShutdown)
	}
	return nil
}
