package manager

import "context"

// lockSlot takes the slot lock, giving up without side effects if ctx ends
// first. Returns the release func to be deferred.
func (m *Manager) lockSlot(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case m.slot <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
	// select picks randomly when both cases are ready
	if err := ctx.Err(); err != nil {
		<-m.slot
		return func() {}, err
	}
	return func() { <-m.slot }, nil
}
