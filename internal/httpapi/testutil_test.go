package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"asrd/internal/backend/backendtest"
	"asrd/internal/manager"
	"asrd/internal/session"
	"asrd/pkg/types"
)

func newTestService(t *testing.T) (*session.Service, *manager.Manager, *backendtest.Backend) {
	t.Helper()
	b := backendtest.New()
	m := manager.NewWithConfig(manager.ManagerConfig{Backend: b})
	return session.New(session.Options{Manager: m, DefaultModel: "A"}), m, b
}

// errService overrides selected calls of a real service with fixed errors.
type errService struct {
	*session.Service
	transcribeErr error
	offloadErr    error
}

func (s errService) Transcribe(ctx context.Context, req session.FileRequest) (session.FileResult, error) {
	if s.transcribeErr != nil {
		return session.FileResult{}, s.transcribeErr
	}
	return s.Service.Transcribe(ctx, req)
}

func (s errService) Offload(ctx context.Context) (bool, error) {
	if s.offloadErr != nil {
		return false, s.offloadErr
	}
	return s.Service.Offload(ctx)
}

var _ Service = errService{}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

// wavHeader is a 44-byte PCM WAV header with an empty data chunk.
func wavHeader() []byte {
	return []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x80\x3e\x00\x00\x00\x7d\x00\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
}

func multipartRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func loadedModel(st types.StatusResponse) string {
	if st.ModelLoaded == nil {
		return ""
	}
	return *st.ModelLoaded
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}
