//go:build ignore

// fake_worker mimics the ASR worker protocol for backend tests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

func main() {
	model := flag.String("model", "", "")
	host := flag.String("host", "127.0.0.1", "")
	port := flag.Int("port", 0, "")
	dtype := flag.String("dtype", "", "")
	_ = flag.String("device", "", "")
	_ = flag.String("aligner", "", "")
	_ = flag.Int("max-batch-size", 0, "")
	_ = flag.Int("max-new-tokens", 0, "")
	flag.Parse()

	if os.Getenv("FAKE_WORKER_EXIT") == "1" {
		fmt.Fprintln(os.Stderr, "CUDA out of memory")
		os.Exit(1)
	}
	streaming := os.Getenv("FAKE_WORKER_STREAMING") == "1"

	var (
		mu      sync.Mutex
		streams = map[string]int{}
		nextID  int
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "streaming": streaming})
	})
	mux.HandleFunc("/v1/transcribe", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AudioPath        string `json:"audio_path"`
			Language         string `json:"language"`
			ReturnTimestamps bool   `json:"return_timestamps"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lang := req.Language
		if lang == "" {
			lang = "English"
		}
		resp := map[string]any{
			"text":             fmt.Sprintf("%s|%s|%s", *model, *dtype, req.AudioPath),
			"language":         lang,
			"duration_seconds": 1.5,
		}
		if req.ReturnTimestamps {
			resp["timestamps"] = []map[string]any{{"text": "hello", "start": 0.0, "end": 0.5}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/streams", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		nextID++
		id := fmt.Sprintf("s%d", nextID)
		streams[id] = 0
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"stream_id": id})
	})
	mux.HandleFunc("/v1/streams/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/v1/streams/")
		id, action, _ := strings.Cut(rest, "/")
		mu.Lock()
		n, ok := streams[id]
		mu.Unlock()
		if !ok {
			http.Error(w, "unknown stream", http.StatusNotFound)
			return
		}
		switch action {
		case "chunk":
			b, _ := io.ReadAll(r.Body)
			var chunk struct {
				PCM []float32 `msgpack:"pcm"`
			}
			if err := msgpack.Unmarshal(b, &chunk); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			streams[id] = n + len(chunk.PCM)
			n = streams[id]
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"text": fmt.Sprintf("samples=%d", n)})
		case "finish":
			mu.Lock()
			delete(streams, id)
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"text": fmt.Sprintf("final samples=%d", n), "language": "English"})
		default:
			http.NotFound(w, r)
		}
	})

	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	_ = http.Serve(l, mux)
}
