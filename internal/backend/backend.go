// Package backend defines the model runtime capability the slot manager drives
// and ships the subprocess worker implementation used in production.
//
// A Backend materializes one model on the accelerator and returns a Handle.
// Handles that can transcribe incrementally also implement StreamingHandle;
// callers decide the variant once, right after Load.
package backend

import (
	"context"
	"errors"

	"asrd/pkg/types"
)

// ErrHandleClosed is returned by every Handle method after Unload.
var ErrHandleClosed = errors.New("model handle closed")

// Spec carries everything needed to materialize a model.
type Spec struct {
	// Model is the identifier requested by clients (e.g. Qwen3-ASR-1.7B).
	Model string
	// Path is the resolved storage location (local dir or hub repo id).
	Path string
	// Precision is the worker dtype name: bfloat16 or float16.
	Precision    string
	Device       string
	AlignerPath  string
	MaxBatchSize int
	MaxNewTokens int
}

// Request describes one transcription.
type Request struct {
	AudioPath string
	// Language hint; empty lets the model detect it.
	Language   string
	Timestamps bool
}

// Result is the output of a transcription.
type Result struct {
	Text            string
	Language        string
	DurationSeconds float64
	Timestamps      []types.Timestamp
}

// Backend loads models.
type Backend interface {
	Load(ctx context.Context, spec Spec) (Handle, error)
}

// Handle is a loaded, ready-to-infer model. Transcribe may be called
// concurrently; Unload is called exactly once by the owner.
type Handle interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	Unload() error
}

// StreamState is opaque per-stream decoder state owned by the backend.
type StreamState interface {
	// Text is the transcript decoded so far.
	Text() string
}

// StreamingHandle is a Handle that supports incremental recognition.
type StreamingHandle interface {
	Handle
	InitStream(ctx context.Context, language string) (StreamState, error)
	StreamStep(ctx context.Context, st StreamState, pcm []float32) (StreamState, error)
	FinishStream(ctx context.Context, st StreamState) (Result, error)
}

// AsStreaming reports whether h supports incremental recognition.
func AsStreaming(h Handle) (StreamingHandle, bool) {
	sh, ok := h.(StreamingHandle)
	return sh, ok
}
