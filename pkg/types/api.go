package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: file too large (max 200MB)
	Error string `json:"error" example:"file too large (max 200MB)"`
	// HTTP status code.
	// example: 413
	Code int `json:"code" example:"413"`
}

// StatusResponse is returned by GET /api/status and embedded in /health.
type StatusResponse struct {
	// Identifier of the model occupying the GPU slot, null when empty.
	// example: Qwen3-ASR-1.7B
	ModelLoaded *string `json:"model_loaded" example:"Qwen3-ASR-1.7B"`
	// Numeric precision of the loaded model.
	// example: bf16
	Precision string `json:"precision,omitempty" example:"bf16"`
	// Seconds since the slot was last used; 0 when never used.
	// example: 42
	IdleSeconds int `json:"idle_seconds" example:"42"`
	// Idle threshold after which the model is offloaded.
	// example: 600
	IdleTimeout int `json:"idle_timeout" example:"600"`
	// Slot state: empty, loading, ready or unloading.
	// example: ready
	State string `json:"state" example:"ready"`
	// Model currently being loaded, if any.
	LoadingModel string `json:"loading_model,omitempty"`
	// Last load error observed by the manager.
	LastError string `json:"last_error,omitempty"`
	// Total successful model loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total evictions (manual, swap, idle, shutdown).
	// example: 2
	EvictionsTotal uint64 `json:"evictions_total" example:"2"`
	// Acquires served from the already-loaded model.
	// example: 120
	CacheHitsTotal uint64 `json:"cache_hits_total" example:"120"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Accelerator telemetry; omitted when unavailable.
	GPU *GPUInfo `json:"gpu,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	StatusResponse
}

// ServiceStatusResponse extends StatusResponse with catalog information.
type ServiceStatusResponse struct {
	StatusResponse
	SupportedLanguages []string `json:"supported_languages"`
	Dialects           []string `json:"dialects"`
	AvailableModels    []string `json:"available_models"`
}

// LanguagesResponse is returned by GET /api/languages.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
	Dialects  []string `json:"dialects"`
}

// OffloadResponse is returned by POST /api/gpu-offload.
type OffloadResponse struct {
	// example: offloaded
	Status string `json:"status" example:"offloaded"`
	// Whether a model was actually released.
	// example: true
	Evicted bool `json:"evicted" example:"true"`
	StatusResponse
}

// TranscribeResponse is returned by POST /api/transcribe.
type TranscribeResponse struct {
	// example: hello world
	Text string `json:"text" example:"hello world"`
	// Detected or requested language.
	// example: English
	Language string `json:"language" example:"English"`
	// Audio duration in seconds; 0 when unknown.
	// example: 3.52
	DurationSeconds float64 `json:"duration_seconds" example:"3.52"`
	// Inference time in seconds.
	// example: 0.41
	ProcessTimeSeconds float64 `json:"process_time_seconds" example:"0.41"`
	// Real time factor (process time / duration).
	// example: 0.1165
	RTF float64 `json:"rtf" example:"0.1165"`
	// Word or segment timestamps when requested.
	Timestamps []Timestamp `json:"timestamps,omitempty"`
}

// StreamConfig is the first message a streaming client sends.
type StreamConfig struct {
	// example: Qwen3-ASR-1.7B
	Model string `json:"model,omitempty" example:"Qwen3-ASR-1.7B"`
	// bf16 or fp16 (bfloat16 and float16 accepted).
	// example: bf16
	DType string `json:"dtype,omitempty" example:"bf16"`
	// Language hint; empty or "auto" for detection.
	// example: English
	Language string `json:"language,omitempty" example:"English"`
}

// Stream message types sent by the server.
const (
	StreamReady   = "ready"
	StreamPartial = "partial"
	StreamFinal   = "final"
	StreamError   = "error"
	StreamEnd     = "end"
)

// StreamMessage is a server-to-client (or end-of-audio client) message.
type StreamMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
}
