package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"asrd/internal/catalog"
	"asrd/internal/session"
	"asrd/pkg/types"
)

func TestIndexPage(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := serve(NewMux(svc), httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestHealthHandler(t *testing.T) {
	svc, _, _ := newTestService(t)
	SetVersion("9.9.9")
	t.Cleanup(func() { SetVersion("1.0.0") })

	w := serve(NewMux(svc), httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "healthy" || body.Version != "9.9.9" {
		t.Fatalf("body=%+v", body)
	}
	if body.ModelLoaded != nil || body.State != "empty" {
		t.Fatalf("expected empty slot: %+v", body.StatusResponse)
	}
	if !strings.Contains(w.Body.String(), `"model_loaded":null`) {
		t.Fatalf("model_loaded should be null: %s", w.Body.String())
	}
}

func TestStatusHandlerIncludesCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := serve(NewMux(svc), httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ServiceStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.SupportedLanguages) != len(catalog.Languages()) {
		t.Fatalf("languages=%d", len(body.SupportedLanguages))
	}
	if len(body.AvailableModels) != 2 {
		t.Fatalf("models=%v", body.AvailableModels)
	}
	if body.IdleTimeout != 600 {
		t.Fatalf("idle_timeout=%d", body.IdleTimeout)
	}
}

func TestLanguagesHandler(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := serve(NewMux(svc), httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.LanguagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Languages) == 0 || len(body.Dialects) == 0 {
		t.Fatalf("body=%+v", body)
	}
}

func TestOffloadHandler(t *testing.T) {
	svc, m, b := newTestService(t)
	if _, err := svc.Transcribe(context.Background(), session.FileRequest{AudioPath: writeTemp(t, wavHeader())}); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if m.Snapshot().Model != "A" {
		t.Fatalf("model not loaded")
	}
	h := NewMux(svc)

	w := serve(h, httptest.NewRequest(http.MethodPost, "/api/gpu-offload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.OffloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "offloaded" || !body.Evicted || loadedModel(body.StatusResponse) != "" {
		t.Fatalf("body=%+v", body)
	}
	if b.Live() != 0 {
		t.Fatalf("live handles=%d", b.Live())
	}

	w = serve(h, httptest.NewRequest(http.MethodPost, "/api/gpu-offload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("second offload status=%d", w.Code)
	}
	body = types.OffloadResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Evicted {
		t.Fatalf("empty slot reported evicted")
	}
}

func TestOffloadRejectsGet(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := serve(NewMux(svc), httptest.NewRequest(http.MethodGet, "/api/gpu-offload", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestOffloadError(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewMux(errService{Service: svc, offloadErr: context.DeadlineExceeded})
	w := serve(h, httptest.NewRequest(http.MethodPost, "/api/gpu-offload", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHealthzReadyz(t *testing.T) {
	svc, m, _ := newTestService(t)
	h := NewMux(svc)

	if w := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz=%d %q", w.Code, w.Body.String())
	}
	if w := serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil)); w.Code != http.StatusOK {
		t.Fatalf("readyz=%d", w.Code)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if w := serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz after close=%d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	svc, _, _ := newTestService(t)
	SetCORSOptions(true, []string{"http://app.local"})
	t.Cleanup(func() { SetCORSOptions(false, nil) })

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "http://app.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(NewMux(svc), req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}
