package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"asrd/internal/backend/backendtest"
	"asrd/pkg/types"
)

// newTestManager returns a manager over a fresh fake backend and mock clock.
func newTestManager(t *testing.T, mod ...func(*ManagerConfig)) (*Manager, *backendtest.Backend, *clock.Mock) {
	t.Helper()
	b := backendtest.New()
	mc := clock.NewMock()
	mc.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := ManagerConfig{
		Backend:      b,
		IdleTimeout:  10 * time.Minute,
		ReapInterval: time.Minute,
		Clock:        mc,
		Publisher:    NewMemoryPublisher(),
	}
	for _, fn := range mod {
		fn(&cfg)
	}
	return NewWithConfig(cfg), b, mc
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func req(model string) LoadRequest { return LoadRequest{Model: model, Precision: PrecisionBF16} }

// staticResolver knows a fixed set of models.
type staticResolver map[string]string

func (r staticResolver) Resolve(model string) (string, error) {
	p, ok := r[model]
	if !ok {
		return "", ErrModelNotFound(model)
	}
	return p, nil
}

// fakeCollector returns canned telemetry.
type fakeCollector struct {
	gpus      []types.GPUInfo
	err       error
	available bool
}

func (f fakeCollector) Collect(ctx context.Context) ([]types.GPUInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.gpus, nil
}

func (f fakeCollector) Available() bool { return f.available }

// slowCollector blocks until ctx ends.
type slowCollector struct{}

func (slowCollector) Collect(ctx context.Context) ([]types.GPUInfo, error) {
	<-ctx.Done()
	return nil, errors.Join(errors.New("nvidia-smi timed out"), ctx.Err())
}
