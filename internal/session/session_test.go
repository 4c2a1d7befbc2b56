package session

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asrd/internal/backend"
	"asrd/internal/backend/backendtest"
	"asrd/internal/manager"
)

func newTestService(t *testing.T) (*Service, *manager.Manager, *backendtest.Backend) {
	t.Helper()
	b := backendtest.New()
	m := manager.NewWithConfig(manager.ManagerConfig{Backend: b})
	return New(Options{Manager: m, DefaultModel: "A"}), m, b
}

func audioFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF0000WAVE"), 0o644))
	return p
}

func pcm(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestTranscribeDefaultModel(t *testing.T) {
	s, m, b := newTestService(t)
	p := audioFile(t)

	res, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: p, Language: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "A:"+p, res.Text)
	assert.Equal(t, "English", res.Language)
	assert.Equal(t, "A", res.Model)
	assert.Equal(t, "A", m.Snapshot().Model)
	assert.Equal(t, 1, b.Count(backendtest.OpInfer))

	res, err = s.Transcribe(ctxT(t), FileRequest{AudioPath: p, Model: "B", Language: "japanese", Precision: "float16"})
	require.NoError(t, err)
	assert.Equal(t, "Japanese", res.Language)
	assert.Equal(t, "B", res.Model)
	assert.Equal(t, manager.PrecisionFP16, m.Snapshot().Precision)
}

func TestTranscribeInputNotFoundLeavesSlot(t *testing.T) {
	s, m, b := newTestService(t)
	_, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: filepath.Join(t.TempDir(), "missing.wav")})
	require.Error(t, err)
	assert.True(t, manager.IsInputNotFound(err))
	assert.Empty(t, b.Calls())
	assert.Equal(t, manager.StateEmpty, m.Snapshot().State)
}

func TestTranscribeLoadFailed(t *testing.T) {
	s, _, b := newTestService(t)
	b.SetLoadError("A", errors.New("CUDA out of memory"))
	_, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: audioFile(t)})
	assert.True(t, manager.IsLoadFailed(err))
}

func TestTranscribeInferErrorWrapped(t *testing.T) {
	s, _, b := newTestService(t)
	boom := errors.New("decoder exploded")
	b.SetInferError(boom)
	_, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: audioFile(t)})
	assert.ErrorIs(t, err, boom)
}

// A handle that dies under the slot is dropped and re-acquired once.
func TestTranscribeRetriesStaleHandle(t *testing.T) {
	s, m, b := newTestService(t)
	ctx := ctxT(t)
	lm, err := m.Acquire(ctx, manager.LoadRequest{Model: "A"})
	require.NoError(t, err)
	// Closing the handle outside the manager simulates a crashed worker.
	require.NoError(t, lm.Handle.Unload())

	res, err := s.Transcribe(ctx, FileRequest{AudioPath: audioFile(t)})
	require.NoError(t, err)
	assert.Equal(t, "A", res.Model)
	assert.Equal(t, 2, b.Count(backendtest.OpLoad))
	assert.False(t, lm.Valid())
}

func TestTranscribeGivesUpAfterOneRetry(t *testing.T) {
	s, _, b := newTestService(t)
	b.SetInferError(backend.ErrHandleClosed)
	_, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: audioFile(t)})
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrHandleClosed)
	assert.Equal(t, 2, b.Count(backendtest.OpInfer))
}

func TestTranscribeSameModelRunsConcurrently(t *testing.T) {
	s, m, b := newTestService(t)
	p := audioFile(t)
	ctx := ctxT(t)
	_, err := s.Transcribe(ctx, FileRequest{AudioPath: p})
	require.NoError(t, err)

	release := b.BlockInference()
	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := s.Transcribe(ctx, FileRequest{AudioPath: p})
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return b.InFlight() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, manager.StateReady, m.Snapshot().State)

	// offload waits only for the slot lock, not for the blocked inferences
	evicted, err := s.Offload(ctx)
	require.NoError(t, err)
	assert.True(t, evicted)

	release()
	for range 2 {
		<-errs
	}
	assert.Equal(t, 2, b.MaxInFlight())
	assert.Equal(t, 1, b.Count(backendtest.OpLoad))
}

func TestStreamCapabilityUnavailable(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.OpenStream(ctxT(t), StreamConfig{Model: "A"})
	require.Error(t, err)
	assert.True(t, manager.IsCapabilityUnavailable(err))
}

func TestStreamPushFinish(t *testing.T) {
	s, m, b := newTestService(t)
	b.SetStreaming("S", true)
	ctx := ctxT(t)

	st, err := s.OpenStream(ctx, StreamConfig{Model: "S", Language: "Auto"})
	require.NoError(t, err)
	assert.Equal(t, "S", st.Model())

	text, err := st.Push(ctx, pcm(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "samples=3", text)

	// odd trailing byte is carried into the next chunk
	chunk := pcm(4, 5)
	text, err = st.Push(ctx, chunk[:3])
	require.NoError(t, err)
	assert.Equal(t, "samples=4", text)
	text, err = st.Push(ctx, chunk[3:])
	require.NoError(t, err)
	assert.Equal(t, "samples=5", text)

	res, err := st.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, "final samples=5", res.Text)
	assert.Equal(t, "English", res.Language)

	_, err = st.Push(ctx, pcm(1))
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, "S", m.Snapshot().Model, "model stays loaded after the stream")
}

func TestStreamInvalidatedByEviction(t *testing.T) {
	s, m, b := newTestService(t)
	b.SetStreaming("S", true)
	ctx := ctxT(t)

	st, err := s.OpenStream(ctx, StreamConfig{Model: "S"})
	require.NoError(t, err)
	_, err = m.Acquire(ctx, manager.LoadRequest{Model: "A"})
	require.NoError(t, err)

	_, err = st.Push(ctx, pcm(1))
	assert.ErrorIs(t, err, ErrStreamInvalidated)
	_, err = st.Finish(ctx)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestStreamTouchesSlot(t *testing.T) {
	b := backendtest.New()
	b.SetStreaming("S", true)
	m := manager.NewWithConfig(manager.ManagerConfig{Backend: b})
	s := New(Options{Manager: m})
	ctx := ctxT(t)

	st, err := s.OpenStream(ctx, StreamConfig{Model: "S"})
	require.NoError(t, err)
	before := m.Snapshot().LastUsed
	time.Sleep(5 * time.Millisecond)
	_, err = st.Push(ctx, pcm(1, 2))
	require.NoError(t, err)
	assert.True(t, m.Snapshot().LastUsed.After(before))
	st.Close()
	_, err = st.Push(ctx, pcm(1))
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestPCM16ToFloat32(t *testing.T) {
	got := PCM16ToFloat32(append(pcm(0, 16384, -32768, 32767), 0x01))
	require.Len(t, got, 4)
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(0.5), got[1])
	assert.Equal(t, float32(-1), got[2])
	assert.InDelta(t, 1.0, got[3], 1e-4)
}

func TestServiceStatusAndCatalog(t *testing.T) {
	s, _, _ := newTestService(t)
	st := s.ServiceStatus(ctxT(t))
	assert.Nil(t, st.ModelLoaded)
	assert.Len(t, st.SupportedLanguages, 30)
	assert.Len(t, st.Dialects, 22)
	assert.Equal(t, []string{"Qwen3-ASR-1.7B", "Qwen3-ASR-0.6B"}, st.AvailableModels)
	assert.Len(t, s.Languages().Languages, 30)
	assert.True(t, s.Ready())
	assert.Equal(t, "A", s.DefaultModel())

	_, err := s.Transcribe(ctxT(t), FileRequest{AudioPath: audioFile(t)})
	require.NoError(t, err)
	evicted, err := s.Offload(ctxT(t))
	require.NoError(t, err)
	assert.True(t, evicted)
	evicted, err = s.Offload(ctxT(t))
	require.NoError(t, err)
	assert.False(t, evicted)
	assert.Nil(t, s.Status(ctxT(t)).ModelLoaded)
}
