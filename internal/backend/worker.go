package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"asrd/pkg/types"
)

const (
	defaultReadyTimeout = 10 * time.Minute
	defaultStopGrace    = 2 * time.Second
	stderrTailBytes     = 4096
)

// ErrWorkerNotConfigured signals that no worker binary was configured.
var ErrWorkerNotConfigured = errors.New("asr worker binary not configured")

// WorkerConfig configures the subprocess worker backend.
type WorkerConfig struct {
	// Bin is the worker executable (typically a small python entrypoint
	// wrapping the model library).
	Bin string
	// ExtraArgs are appended to every worker invocation.
	ExtraArgs []string
	Host      string
	// Optional port range; a random free port is used when unset.
	PortStart int
	PortEnd   int
	// ReadyTimeout bounds how long a worker may take to load weights.
	ReadyTimeout time.Duration
	// StopGrace is the SIGTERM grace period before SIGKILL.
	StopGrace time.Duration
	Logger    *zerolog.Logger
}

// WorkerBackend spawns one worker process per loaded model and talks to it
// over loopback HTTP. The slot manager guarantees at most one is alive.
type WorkerBackend struct {
	cfg        WorkerConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewWorkerBackend constructs a subprocess-backed Backend.
func NewWorkerBackend(cfg WorkerConfig) *WorkerBackend {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	lg := zerolog.Nop()
	if cfg.Logger != nil {
		lg = cfg.Logger.With().Str("component", "worker").Logger()
	}
	// Timeout=0: every call carries its own context deadline.
	return &WorkerBackend{cfg: cfg, httpClient: &http.Client{Timeout: 0}, log: lg}
}

// workerHealth is the worker's GET /health payload.
type workerHealth struct {
	Status    string `json:"status"`
	Streaming bool   `json:"streaming"`
}

// Load starts a worker for spec and waits until it reports healthy.
func (b *WorkerBackend) Load(ctx context.Context, spec Spec) (Handle, error) {
	if strings.TrimSpace(b.cfg.Bin) == "" {
		return nil, ErrWorkerNotConfigured
	}
	if strings.TrimSpace(spec.Path) == "" {
		return nil, errors.New("model path is empty")
	}
	var (
		port int
		err  error
	)
	if b.cfg.PortStart > 0 && b.cfg.PortEnd >= b.cfg.PortStart {
		port, err = pickPortInRange(b.cfg.Host, b.cfg.PortStart, b.cfg.PortEnd)
	} else {
		port, err = pickFreePort(b.cfg.Host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", b.cfg.Host, port)

	cmd := exec.Command(b.cfg.Bin, workerArgs(spec, b.cfg.Host, port, b.cfg.ExtraArgs)...)
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	p := &workerProc{cmd: cmd, exited: make(chan struct{})}
	go p.wait()
	b.log.Info().Str("model", spec.Model).Int("pid", cmd.Process.Pid).Int("port", port).Msg("worker started")

	health, err := b.waitReady(ctx, p, baseURL, stderr)
	if err != nil {
		p.stop(b.cfg.StopGrace)
		return nil, err
	}
	b.log.Info().Str("model", spec.Model).Int("pid", cmd.Process.Pid).Bool("streaming", health.Streaming).Msg("worker ready")

	h := &workerHandle{b: b, proc: p, baseURL: baseURL, model: spec.Model}
	if health.Streaming {
		return &streamingWorkerHandle{workerHandle: h}, nil
	}
	return h, nil
}

func workerArgs(spec Spec, host string, port int, extra []string) []string {
	args := []string{
		"--model", spec.Path,
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	if spec.Precision != "" {
		args = append(args, "--dtype", spec.Precision)
	}
	if spec.Device != "" {
		args = append(args, "--device", spec.Device)
	}
	if spec.AlignerPath != "" {
		args = append(args, "--aligner", spec.AlignerPath)
	}
	if spec.MaxBatchSize > 0 {
		args = append(args, "--max-batch-size", strconv.Itoa(spec.MaxBatchSize))
	}
	if spec.MaxNewTokens > 0 {
		args = append(args, "--max-new-tokens", strconv.Itoa(spec.MaxNewTokens))
	}
	return append(args, extra...)
}

func (b *WorkerBackend) waitReady(ctx context.Context, p *workerProc, baseURL string, stderr *tailBuffer) (workerHealth, error) {
	deadline := time.Now().Add(b.cfg.ReadyTimeout)
	for {
		if time.Now().After(deadline) {
			return workerHealth{}, fmt.Errorf("worker not ready after %s: %s", b.cfg.ReadyTimeout, baseURL)
		}
		select {
		case <-p.exited:
			if p.exitErr != nil {
				return workerHealth{}, fmt.Errorf("worker exited early: %v; stderr tail: %s", p.exitErr, stderr.String())
			}
			return workerHealth{}, fmt.Errorf("worker exited before ready; stderr tail: %s", stderr.String())
		case <-ctx.Done():
			return workerHealth{}, ctx.Err()
		default:
		}
		if h, ok := b.health(ctx, baseURL); ok {
			return h, nil
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return workerHealth{}, ctx.Err()
		}
	}
}

// health reports the worker status; 503 means weights are still loading.
func (b *WorkerBackend) health(ctx context.Context, baseURL string) (workerHealth, bool) {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return workerHealth{}, false
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return workerHealth{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return workerHealth{}, false
	}
	var h workerHealth
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return workerHealth{}, false
	}
	return h, true
}

// workerProc tracks a spawned worker and its exit.
type workerProc struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	exitErr error
}

func (p *workerProc) wait() {
	p.exitErr = p.cmd.Wait()
	close(p.exited)
}

// stop sends SIGTERM, then SIGKILL after grace.
func (p *workerProc) stop(grace time.Duration) {
	select {
	case <-p.exited:
		return
	default:
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(grace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
}

type workerHandle struct {
	b       *WorkerBackend
	proc    *workerProc
	baseURL string
	model   string
	closed  atomic.Bool
}

type transcribeRequest struct {
	AudioPath        string `json:"audio_path"`
	Language         string `json:"language,omitempty"`
	ReturnTimestamps bool   `json:"return_timestamps"`
}

type workerResult struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamps      []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"timestamps"`
}

func (r workerResult) toResult() Result {
	out := Result{Text: r.Text, Language: r.Language, DurationSeconds: r.DurationSeconds}
	for _, ts := range r.Timestamps {
		out.Timestamps = append(out.Timestamps, types.Timestamp{Text: ts.Text, Start: ts.Start, End: ts.End})
	}
	return out
}

func (h *workerHandle) Transcribe(ctx context.Context, req Request) (Result, error) {
	var wr workerResult
	err := h.do(ctx, "/v1/transcribe", "application/json", mustJSON(transcribeRequest{
		AudioPath:        req.AudioPath,
		Language:         req.Language,
		ReturnTimestamps: req.Timestamps,
	}), &wr)
	if err != nil {
		return Result{}, err
	}
	return wr.toResult(), nil
}

func (h *workerHandle) Unload() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.proc.stop(h.b.cfg.StopGrace)
	h.b.log.Info().Str("model", h.model).Int("pid", h.proc.cmd.Process.Pid).Msg("worker stopped")
	if err := h.proc.exitErr; err != nil && !isSignalExit(err) {
		return fmt.Errorf("worker exit: %w", err)
	}
	return nil
}

// do posts body to the worker and decodes a JSON response into out.
func (h *workerHandle) do(ctx context.Context, path, contentType string, body []byte, out any) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := h.b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if h.closed.Load() {
			return ErrHandleClosed
		}
		select {
		case <-h.proc.exited:
			return fmt.Errorf("%w: worker exited", ErrHandleClosed)
		default:
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("worker http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// isSignalExit reports whether err is the exit caused by our own SIGTERM/SIGKILL.
func isSignalExit(err error) bool {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return false
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return true
	}
	return false
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
