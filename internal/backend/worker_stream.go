package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vmihailenco/msgpack/v5"
)

const msgpackContentType = "application/x-msgpack"

// streamingWorkerHandle is returned when the worker advertises streaming
// support in its health payload.
type streamingWorkerHandle struct {
	*workerHandle
}

// workerStream is the decoder state kept by the worker, referenced by id.
type workerStream struct {
	id   string
	text string
}

func (s *workerStream) Text() string { return s.text }

type streamStartRequest struct {
	Language string `json:"language,omitempty"`
}

type streamStartResponse struct {
	StreamID string `json:"stream_id"`
}

// streamChunk is msgpack encoded; float32 PCM at 16kHz mono.
type streamChunk struct {
	PCM []float32 `msgpack:"pcm"`
}

type streamChunkResponse struct {
	Text string `json:"text"`
}

func (h *streamingWorkerHandle) InitStream(ctx context.Context, language string) (StreamState, error) {
	var resp streamStartResponse
	if err := h.do(ctx, "/v1/streams", "application/json", mustJSON(streamStartRequest{Language: language}), &resp); err != nil {
		return nil, err
	}
	if resp.StreamID == "" {
		return nil, fmt.Errorf("worker returned empty stream id")
	}
	return &workerStream{id: resp.StreamID}, nil
}

func (h *streamingWorkerHandle) StreamStep(ctx context.Context, st StreamState, pcm []float32) (StreamState, error) {
	ws, err := asWorkerStream(st)
	if err != nil {
		return nil, err
	}
	body, err := msgpack.Marshal(streamChunk{PCM: pcm})
	if err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	var resp streamChunkResponse
	if err := h.do(ctx, "/v1/streams/"+url.PathEscape(ws.id)+"/chunk", msgpackContentType, body, &resp); err != nil {
		return nil, err
	}
	return &workerStream{id: ws.id, text: resp.Text}, nil
}

func (h *streamingWorkerHandle) FinishStream(ctx context.Context, st StreamState) (Result, error) {
	ws, err := asWorkerStream(st)
	if err != nil {
		return Result{}, err
	}
	var wr workerResult
	if err := h.do(ctx, "/v1/streams/"+url.PathEscape(ws.id)+"/finish", "application/json", []byte("{}"), &wr); err != nil {
		return Result{}, err
	}
	return wr.toResult(), nil
}

func asWorkerStream(st StreamState) (*workerStream, error) {
	ws, ok := st.(*workerStream)
	if !ok || ws == nil {
		return nil, fmt.Errorf("stream state %T does not belong to this worker", st)
	}
	return ws, nil
}
