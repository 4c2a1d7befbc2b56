package manager

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"asrd/internal/backend"
	"asrd/internal/telemetry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	DefaultIdleTimeout      = 600 * time.Second
	DefaultReapInterval     = 60 * time.Second
	defaultTelemetryTimeout = telemetry.DefaultTimeout
	defaultPrecision        = PrecisionBF16
)

// PathResolver maps a model identifier to its storage location.
type PathResolver interface {
	Resolve(model string) (string, error)
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Backend backend.Backend
	// Resolver is consulted before taking the slot lock. When nil the model
	// identifier is used as the path.
	Resolver PathResolver
	// Telemetry is optional; status omits the gpu field without it.
	Telemetry        telemetry.Collector
	TelemetryTimeout time.Duration

	IdleTimeout      time.Duration
	ReapInterval     time.Duration
	DefaultPrecision Precision

	// Load parameters passed through to the backend.
	Device       string
	AlignerPath  string
	MaxBatchSize int
	MaxNewTokens int

	// WorkerBin is only reported by SanityCheck.
	WorkerBin string

	Clock     clock.Clock
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		slot:         make(chan struct{}, 1),
		state:        StateEmpty,
		backend:      cfg.Backend,
		resolver:     cfg.Resolver,
		telemetry:    cfg.Telemetry,
		device:       cfg.Device,
		alignerPath:  cfg.AlignerPath,
		maxBatchSize: cfg.MaxBatchSize,
		maxNewTokens: cfg.MaxNewTokens,
		workerBin:    cfg.WorkerBin,
	}
	// Apply defaults if unset
	m.idleTimeout = cfg.IdleTimeout
	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	m.reapInterval = cfg.ReapInterval
	if m.reapInterval <= 0 {
		m.reapInterval = DefaultReapInterval
	}
	m.telemetryTimeout = cfg.TelemetryTimeout
	if m.telemetryTimeout <= 0 {
		m.telemetryTimeout = defaultTelemetryTimeout
	}
	m.defaultPrecision = cfg.DefaultPrecision
	if m.defaultPrecision == "" {
		m.defaultPrecision = defaultPrecision
	}
	m.clock = cfg.Clock
	if m.clock == nil {
		m.clock = clock.New()
	}
	m.log = zerolog.Nop()
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	m.publisher = cfg.Publisher
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	m.startTime = m.clock.Now()
	return m
}
