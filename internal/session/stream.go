package session

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"asrd/internal/backend"
	"asrd/internal/catalog"
	"asrd/internal/manager"
)

var (
	// ErrStreamInvalidated is returned once the stream's model has been
	// evicted or swapped out of the slot.
	ErrStreamInvalidated = errors.New("stream invalidated: model was unloaded")
	// ErrStreamClosed is returned by calls after Finish or Close.
	ErrStreamClosed = errors.New("stream closed")
)

// StreamConfig opens a streaming session.
type StreamConfig struct {
	Model     string
	Precision string
	Language  string
}

// Stream is one incremental recognition session. It holds a reference to
// the acquired model for its lifetime and refreshes the slot on every chunk.
// Methods are safe for concurrent use but are applied in call order.
type Stream struct {
	mu     sync.Mutex
	lm     *manager.LoadedModel
	sh     backend.StreamingHandle
	state  backend.StreamState
	rem    []byte
	closed bool
}

// OpenStream acquires the model and initialises streaming state. A model
// without incremental recognition yields a capability-unavailable error.
func (s *Service) OpenStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	lm, err := s.m.Acquire(ctx, s.loadRequest(cfg.Model, cfg.Precision))
	if err != nil {
		return nil, err
	}
	sh, ok := lm.Streaming()
	if !ok {
		return nil, manager.ErrCapabilityUnavailable(lm.Request.Model, "streaming")
	}
	st, err := sh.InitStream(ctx, catalog.NormalizeLanguage(cfg.Language))
	if err != nil {
		if errors.Is(err, backend.ErrHandleClosed) {
			return nil, ErrStreamInvalidated
		}
		return nil, err
	}
	lm.Touch()
	s.log.Debug().Str("model", lm.Request.Model).Msg("stream opened")
	return &Stream{lm: lm, sh: sh, state: st}, nil
}

// Model is the id of the model serving the stream.
func (st *Stream) Model() string { return st.lm.Request.Model }

// Push feeds little-endian int16 PCM and returns the transcript so far.
// A trailing odd byte is kept for the next chunk.
func (st *Stream) Push(ctx context.Context, pcm []byte) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.check(); err != nil {
		return "", err
	}
	buf := append(st.rem, pcm...)
	n := len(buf) &^ 1
	st.rem = append([]byte(nil), buf[n:]...)
	if n == 0 {
		return st.state.Text(), nil
	}
	next, err := st.sh.StreamStep(ctx, st.state, PCM16ToFloat32(buf[:n]))
	if err != nil {
		return "", st.mapErr(err)
	}
	st.state = next
	st.lm.Touch()
	return next.Text(), nil
}

// Finish flushes the decoder and returns the final result. The stream is
// closed afterwards.
func (st *Stream) Finish(ctx context.Context) (backend.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.check(); err != nil {
		return backend.Result{}, err
	}
	st.closed = true
	res, err := st.sh.FinishStream(ctx, st.state)
	if err != nil {
		return backend.Result{}, st.mapErr(err)
	}
	st.lm.Touch()
	return res, nil
}

// Close abandons the stream. The model stays loaded for reuse.
func (st *Stream) Close() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

func (st *Stream) check() error {
	if st.closed {
		return ErrStreamClosed
	}
	if !st.lm.Valid() {
		st.closed = true
		return ErrStreamInvalidated
	}
	return nil
}

func (st *Stream) mapErr(err error) error {
	if errors.Is(err, backend.ErrHandleClosed) || !st.lm.Valid() {
		st.closed = true
		return ErrStreamInvalidated
	}
	return err
}

// PCM16ToFloat32 converts little-endian signed 16-bit samples to [-1, 1).
// A trailing odd byte is ignored.
func PCM16ToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768
	}
	return out
}
