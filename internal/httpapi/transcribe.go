package httpapi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"asrd/internal/session"
	"asrd/pkg/types"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to disk.
const multipartMemory = 32 << 20

// acceptedMedia reports whether a sniffed type can plausibly be decoded
// as audio by the worker.
func acceptedMedia(m *mimetype.MIME) bool {
	// undetected binary is handed to the worker as is
	if m.Is("application/octet-stream") {
		return true
	}
	for ; m != nil; m = m.Parent() {
		s := m.String()
		if strings.HasPrefix(s, "audio/") || strings.HasPrefix(s, "video/") {
			return true
		}
		switch m.Extension() {
		case ".ogg", ".webm", ".mkv", ".mp4":
			return true
		}
	}
	return false
}

func tooLargeMsg() string {
	return fmt.Sprintf("file too large (max %dMB)", maxUploadBytes>>20)
}

// transcribeHandler godoc
// @Summary      Transcribe an audio file
// @Tags         transcribe
// @Accept       multipart/form-data
// @Produce      json
// @Param        file               formData  file    true   "Audio file"
// @Param        language           formData  string  false  "Language hint or auto"
// @Param        model              formData  string  false  "Model id"
// @Param        return_timestamps  formData  bool    false  "Include timestamps"
// @Param        dtype              formData  string  false  "bf16 or fp16"
// @Success      200  {object}  types.TranscribeResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      413  {object}  types.ErrorResponse
// @Failure      415  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /api/transcribe [post]
func transcribeHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		// multipart framing needs a little room beyond the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+maxBodyBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
				writeJSONError(w, http.StatusRequestEntityTooLarge, tooLargeMsg())
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		if hdr.Size > maxUploadBytes {
			writeJSONError(w, http.StatusRequestEntityTooLarge, tooLargeMsg())
			return
		}

		mt, err := mimetype.DetectReader(file)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "unreadable upload")
			return
		}
		if !acceptedMedia(mt) {
			writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported media type "+mt.String())
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "rewind upload")
			return
		}

		wantTS := false
		if v := r.FormValue("return_timestamps"); v != "" {
			wantTS, err = strconv.ParseBool(v)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "return_timestamps must be a boolean")
				return
			}
		}

		ext := filepath.Ext(hdr.Filename)
		if ext == "" {
			ext = mt.Extension()
		}
		tmp := filepath.Join(os.TempDir(), "asrd_"+uuid.NewString()+ext)
		n, err := saveUpload(tmp, file)
		defer os.Remove(tmp)
		if err != nil {
			logError(r, err, "save upload")
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		uploadBytes.Observe(float64(n))
		logDebug(r, "upload stored", map[string]any{"path": tmp, "bytes": n, "mime": mt.String()})

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		res, err := svc.Transcribe(ctx, session.FileRequest{
			AudioPath:  tmp,
			Model:      r.FormValue("model"),
			Precision:  r.FormValue("dtype"),
			Language:   r.FormValue("language"),
			Timestamps: wantTS,
		})
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeJSONError(w, statusForError(err), err.Error())
			return
		}

		proc := res.ProcessTime.Seconds()
		resp := types.TranscribeResponse{
			Text:               res.Text,
			Language:           res.Language,
			DurationSeconds:    round(res.DurationSeconds, 2),
			ProcessTimeSeconds: round(proc, 3),
		}
		if res.DurationSeconds > 0 {
			resp.RTF = round(proc/res.DurationSeconds, 4)
		}
		if wantTS && len(res.Timestamps) > 0 {
			resp.Timestamps = res.Timestamps
		}
		w.Header().Set("X-Time-Load", fmt.Sprintf("%.3f", res.LoadTime.Seconds()))
		w.Header().Set("X-Time-Process", fmt.Sprintf("%.3f", proc))
		w.Header().Set("X-Time-Total", fmt.Sprintf("%.3f", time.Since(t0).Seconds()))
		writeJSON(w, http.StatusOK, resp)
	}
}

func saveUpload(path string, src io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
