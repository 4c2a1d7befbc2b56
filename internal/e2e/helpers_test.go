// Package e2e drives the full stack (registry, slot manager, sessions and
// the HTTP API) over a real listener with a scripted backend.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"asrd/internal/backend/backendtest"
	"asrd/internal/catalog"
	"asrd/internal/httpapi"
	"asrd/internal/manager"
	"asrd/internal/registry"
	"asrd/internal/session"
	"asrd/pkg/types"
)

type stack struct {
	srv     *httptest.Server
	mgr     *manager.Manager
	backend *backendtest.Backend
	clock   *clock.Mock
	pub     *manager.MemoryPublisher
}

// createTempModelsDir creates one directory per model holding a config.json
// so the registry picks it up as a local checkpoint.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
		if err := os.WriteFile(filepath.Join(p, "config.json"), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config for %s: %v", n, err)
		}
	}
	return dir
}

func newStack(t *testing.T, modelsDir string) *stack {
	t.Helper()
	reg, err := registry.New(registry.Options{
		Models:    catalog.Models(),
		Dir:       modelsDir,
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	mc := clock.NewMock()
	mc.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := backendtest.New()
	pub := manager.NewMemoryPublisher()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Backend:     b,
		Resolver:    reg,
		IdleTimeout: 10 * time.Minute,
		Clock:       mc,
		Publisher:   pub,
	})
	svc := session.New(session.Options{Manager: mgr, Models: reg, DefaultModel: catalog.ModelLarge})
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, mgr: mgr, backend: b, clock: mc, pub: pub}
}

func wavHeader() []byte {
	return []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x80\x3e\x00\x00\x00\x7d\x00\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
}

func audioRequest(url string, fields map[string]string) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", "clip.wav")
	if err != nil {
		return nil, err
	}
	_, _ = fw.Write(wavHeader())
	_ = mw.Close()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func postAudio(t *testing.T, url string, fields map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := audioRequest(url, fields)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpPost(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func status(t *testing.T, base string) types.StatusResponse {
	t.Helper()
	resp, body := httpGet(t, base+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/status %d %s", resp.StatusCode, body)
	}
	var st types.ServiceStatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v body=%s", err, body)
	}
	return st.StatusResponse
}

func loaded(st types.StatusResponse) string {
	if st.ModelLoaded == nil {
		return ""
	}
	return *st.ModelLoaded
}
