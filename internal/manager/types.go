package manager

import (
	"fmt"
	"strings"
	"time"

	"asrd/internal/backend"
)

// State represents the lifecycle state of the slot.
type State string

const (
	StateEmpty     State = "empty"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateUnloading State = "unloading"
)

// Precision is the numeric precision a model is loaded with.
type Precision string

const (
	PrecisionBF16 Precision = "bf16"
	PrecisionFP16 Precision = "fp16"
)

// ParsePrecision accepts bf16/bfloat16 and fp16/float16/half.
// Empty input yields an empty Precision (caller applies the default).
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "bf16", "bfloat16":
		return PrecisionBF16, nil
	case "fp16", "float16", "half":
		return PrecisionFP16, nil
	default:
		return "", ErrInvalidRequest(fmt.Sprintf("unsupported precision %q (want bf16 or fp16)", s))
	}
}

// DType is the name the model runtime expects.
func (p Precision) DType() string {
	if p == PrecisionFP16 {
		return "float16"
	}
	return "bfloat16"
}

// LoadRequest identifies a model variant.
type LoadRequest struct {
	Model     string
	Precision Precision
}

// Equivalent reports whether r and o name the same loaded variant.
func (r LoadRequest) Equivalent(o LoadRequest) bool {
	return r.Model == o.Model && r.Precision == o.Precision
}

func (r LoadRequest) String() string { return r.Model + "@" + string(r.Precision) }

// Kind is the capability variant of a loaded model, fixed at load time.
type Kind int

const (
	KindBasic Kind = iota
	KindStreaming
)

func (k Kind) String() string {
	if k == KindStreaming {
		return "streaming"
	}
	return "basic"
}

// LoadedModel is the slot's view of a backend handle. The same pointer is
// returned for every Acquire served from the cache. It stays usable until the
// next eviction or swap; after that Handle calls fail with
// backend.ErrHandleClosed and Valid reports false.
type LoadedModel struct {
	Request  LoadRequest
	Handle   backend.Handle
	Kind     Kind
	LoadedAt time.Time

	gen uint64
	m   *Manager
}

// Streaming returns the streaming variant of the handle, if the model has one.
func (lm *LoadedModel) Streaming() (backend.StreamingHandle, bool) {
	if lm.Kind != KindStreaming {
		return nil, false
	}
	return backend.AsStreaming(lm.Handle)
}

// Touch refreshes the slot's last-used time if lm still occupies it.
func (lm *LoadedModel) Touch() bool { return lm.m.touch(lm.gen) }

// Valid reports whether lm is still the model in the slot.
func (lm *LoadedModel) Valid() bool {
	lm.m.mu.RLock()
	defer lm.m.mu.RUnlock()
	return lm.m.cur != nil && lm.m.cur.gen == lm.gen
}

func kindOf(h backend.Handle) Kind {
	if _, ok := backend.AsStreaming(h); ok {
		return KindStreaming
	}
	return KindBasic
}

// Snapshot is a read-only projection of the slot.
type Snapshot struct {
	State State
	// Model is empty when the slot is empty.
	Model     string
	Precision Precision
	Kind      Kind
	LastUsed  time.Time
	// Idle is zero when the slot was never used. It keeps counting after
	// an eviction.
	Idle    time.Duration
	Loading string
	Err     string
}
