package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"asrd/internal/session"
	"asrd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Transcribe(ctx context.Context, req session.FileRequest) (session.FileResult, error)
	OpenStream(ctx context.Context, cfg session.StreamConfig) (*session.Stream, error)
	Offload(ctx context.Context) (bool, error)
	Status(ctx context.Context) types.StatusResponse
	ServiceStatus(ctx context.Context) types.ServiceStatusResponse
	Languages() types.LanguagesResponse
	DefaultModel() string
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		origins := corsAllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"X-Time-Load", "X-Time-Process", "X-Time-Total", "X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/", handleIndex)

	r.Group(func(r chi.Router) {
		// Compression for JSON endpoints
		r.Use(middleware.Compress(5))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.HealthResponse{
				Status:         "healthy",
				Version:        version,
				StatusResponse: svc.Status(r.Context()),
			})
		})

		r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.ServiceStatus(r.Context()))
		})

		r.Get("/api/languages", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Languages())
		})

		r.Post("/api/gpu-offload", func(w http.ResponseWriter, r *http.Request) {
			evicted, err := svc.Offload(r.Context())
			if err != nil {
				if r.Context().Err() != nil {
					return
				}
				writeJSONError(w, statusForError(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, types.OffloadResponse{
				Status:         "offloaded",
				Evicted:        evicted,
				StatusResponse: svc.Status(r.Context()),
			})
		})
	})

	r.Post("/api/transcribe", transcribeHandler(svc))
	r.Get("/api/transcribe/stream", streamHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}
