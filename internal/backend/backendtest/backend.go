// Package backendtest provides a scripted in-memory backend.Backend that
// records every load, unload and inference call, for use in tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"asrd/internal/backend"
)

// Operation names recorded in Calls.
const (
	OpLoad   = "load"
	OpUnload = "unload"
	OpInfer  = "infer"
)

// Call is one recorded backend interaction.
type Call struct {
	Op    string
	Model string
	// Gen identifies the handle (1 for the first successful load, ...).
	Gen int
}

// Backend is a fake model runtime. The zero value is not usable; use New.
type Backend struct {
	mu        sync.Mutex
	calls     []Call
	loadErr   map[string]error
	unloadErr error
	inferErr  error
	streaming map[string]bool
	delay     time.Duration
	gate      chan struct{}
	inferGate chan struct{}
	inFlight  int
	maxFlight int
	gen       int
	live      int
	maxLive   int

	// BeforeLoad, when set, runs at the start of every Load.
	BeforeLoad func(spec backend.Spec)
}

// New returns an empty fake backend.
func New() *Backend {
	return &Backend{loadErr: map[string]error{}, streaming: map[string]bool{}}
}

// SetLoadError makes loads of model fail with err until cleared with nil.
func (b *Backend) SetLoadError(model string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.loadErr, model)
		return
	}
	b.loadErr[model] = err
}

// SetUnloadError makes every Unload return err (the handle is still released).
func (b *Backend) SetUnloadError(err error) {
	b.mu.Lock()
	b.unloadErr = err
	b.mu.Unlock()
}

// SetInferError makes every Transcribe return err.
func (b *Backend) SetInferError(err error) {
	b.mu.Lock()
	b.inferErr = err
	b.mu.Unlock()
}

// SetStreaming controls whether handles for model support streaming.
func (b *Backend) SetStreaming(model string, on bool) {
	b.mu.Lock()
	b.streaming[model] = on
	b.mu.Unlock()
}

// SetLoadDelay adds latency to every load.
func (b *Backend) SetLoadDelay(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

// BlockLoads holds every subsequent Load until the returned func is called.
func (b *Backend) BlockLoads() (release func()) {
	g := make(chan struct{})
	b.mu.Lock()
	b.gate = g
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gate == g {
				b.gate = nil
			}
			b.mu.Unlock()
			close(g)
		})
	}
}

// BlockInference holds every subsequent Transcribe until the returned func
// is called.
func (b *Backend) BlockInference() (release func()) {
	g := make(chan struct{})
	b.mu.Lock()
	b.inferGate = g
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.inferGate == g {
				b.inferGate = nil
			}
			b.mu.Unlock()
			close(g)
		})
	}
}

// InFlight is the number of Transcribe calls currently running.
func (b *Backend) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// MaxInFlight is the highest InFlight value ever observed.
func (b *Backend) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxFlight
}

// Calls returns a copy of the recorded calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Count returns how many calls of op were recorded.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Live is the number of handles loaded and not yet unloaded.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// MaxLive is the highest Live value ever observed.
func (b *Backend) MaxLive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxLive
}

func (b *Backend) record(c Call) {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
}

// Load implements backend.Backend.
func (b *Backend) Load(ctx context.Context, spec backend.Spec) (backend.Handle, error) {
	if b.BeforeLoad != nil {
		b.BeforeLoad(spec)
	}
	b.mu.Lock()
	gate, delay := b.gate, b.delay
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.loadErr[spec.Model]; err != nil {
		b.calls = append(b.calls, Call{Op: OpLoad, Model: spec.Model})
		return nil, err
	}
	b.gen++
	b.live++
	if b.live > b.maxLive {
		b.maxLive = b.live
	}
	b.calls = append(b.calls, Call{Op: OpLoad, Model: spec.Model, Gen: b.gen})
	h := &Handle{b: b, Spec: spec, Gen: b.gen}
	if b.streaming[spec.Model] {
		return &StreamingHandle{Handle: h}, nil
	}
	return h, nil
}

// Handle is a fake loaded model.
type Handle struct {
	b      *Backend
	Spec   backend.Spec
	Gen    int
	closed atomic.Bool
}

// Closed reports whether Unload was called.
func (h *Handle) Closed() bool { return h.closed.Load() }

// Transcribe returns "<model>:<audio path>" as text.
func (h *Handle) Transcribe(ctx context.Context, req backend.Request) (backend.Result, error) {
	if h.closed.Load() {
		return backend.Result{}, backend.ErrHandleClosed
	}
	h.b.record(Call{Op: OpInfer, Model: h.Spec.Model, Gen: h.Gen})
	h.b.mu.Lock()
	err, gate := h.b.inferErr, h.b.inferGate
	h.b.inFlight++
	if h.b.inFlight > h.b.maxFlight {
		h.b.maxFlight = h.b.inFlight
	}
	h.b.mu.Unlock()
	defer func() {
		h.b.mu.Lock()
		h.b.inFlight--
		h.b.mu.Unlock()
	}()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return backend.Result{}, ctx.Err()
		}
	}
	if err != nil {
		return backend.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return backend.Result{}, err
	}
	lang := req.Language
	if lang == "" {
		lang = "English"
	}
	return backend.Result{
		Text:            h.Spec.Model + ":" + req.AudioPath,
		Language:        lang,
		DurationSeconds: 2,
	}, nil
}

// Unload implements backend.Handle.
func (h *Handle) Unload() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.b.mu.Lock()
	defer h.b.mu.Unlock()
	h.b.live--
	h.b.calls = append(h.b.calls, Call{Op: OpUnload, Model: h.Spec.Model, Gen: h.Gen})
	return h.b.unloadErr
}

// StreamingHandle is a fake handle with incremental recognition.
type StreamingHandle struct {
	*Handle
}

// StreamState counts the samples seen so far.
type StreamState struct {
	Language string
	Samples  int
}

// Text implements backend.StreamState.
func (s StreamState) Text() string { return fmt.Sprintf("samples=%d", s.Samples) }

// InitStream implements backend.StreamingHandle.
func (h *StreamingHandle) InitStream(ctx context.Context, language string) (backend.StreamState, error) {
	if h.closed.Load() {
		return nil, backend.ErrHandleClosed
	}
	return StreamState{Language: language}, nil
}

// StreamStep implements backend.StreamingHandle.
func (h *StreamingHandle) StreamStep(ctx context.Context, st backend.StreamState, pcm []float32) (backend.StreamState, error) {
	if h.closed.Load() {
		return nil, backend.ErrHandleClosed
	}
	s, ok := st.(StreamState)
	if !ok {
		return nil, fmt.Errorf("unexpected stream state %T", st)
	}
	h.b.record(Call{Op: OpInfer, Model: h.Spec.Model, Gen: h.Gen})
	s.Samples += len(pcm)
	return s, nil
}

// FinishStream implements backend.StreamingHandle.
func (h *StreamingHandle) FinishStream(ctx context.Context, st backend.StreamState) (backend.Result, error) {
	if h.closed.Load() {
		return backend.Result{}, backend.ErrHandleClosed
	}
	s, ok := st.(StreamState)
	if !ok {
		return backend.Result{}, fmt.Errorf("unexpected stream state %T", st)
	}
	lang := s.Language
	if lang == "" {
		lang = "English"
	}
	return backend.Result{Text: fmt.Sprintf("final samples=%d", s.Samples), Language: lang}, nil
}
