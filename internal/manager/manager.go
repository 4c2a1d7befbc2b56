package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"asrd/internal/backend"
	"asrd/internal/telemetry"
)

type Manager struct {
	// slot is held for every slot mutation, including backend load/unload.
	slot chan struct{}

	// mu guards the slot fields below; held only briefly.
	mu       sync.RWMutex
	state    State
	cur      *LoadedModel
	lastUsed time.Time
	loading  string
	err      string
	gen      uint64
	closed   bool

	backend          backend.Backend
	resolver         PathResolver
	telemetry        telemetry.Collector
	telemetryTimeout time.Duration
	idleTimeout      time.Duration
	reapInterval     time.Duration
	defaultPrecision Precision
	device           string
	alignerPath      string
	maxBatchSize     int
	maxNewTokens     int
	workerBin        string

	clock     clock.Clock
	log       zerolog.Logger
	publisher EventPublisher
	startTime time.Time

	loads     atomic.Uint64
	evictions atomic.Uint64
	hits      atomic.Uint64
}

// New constructs a Manager over b with package defaults.
func New(b backend.Backend) *Manager {
	return NewWithConfig(ManagerConfig{Backend: b})
}

// Ready reports whether the manager accepts new work.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed && m.backend != nil
}

func (m *Manager) IdleTimeout() time.Duration { return m.idleTimeout }

func (m *Manager) ReapInterval() time.Duration { return m.reapInterval }

func (m *Manager) DefaultPrecision() Precision { return m.defaultPrecision }
