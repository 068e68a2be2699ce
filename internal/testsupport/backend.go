package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"atlas/internal/gateway"
)

// Backend is a scriptable fake of the content-generation API. Every gateway
// endpoint has a benign default response; tests override individual routes
// with Handle or JSON and inspect traffic with Calls and LastBody.
type Backend struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	bodies   map[string][]byte
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
		bodies:   make(map[string][]byte),
	}
	b.installDefaults()
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the API base URL to place in backend.base_url.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// Close shuts the server down early, simulating an unreachable backend.
func (b *Backend) Close() {
	b.server.Close()
}

// Handle replaces the handler for method and path (relative to /api).
func (b *Backend) Handle(method, path string, handler http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[routeKey(method, path)] = handler
}

// JSON makes a route answer with a fixed status and JSON payload.
func (b *Backend) JSON(method, path string, status int, payload any) {
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, payload)
	})
}

// Sequence makes a route answer with each payload in turn, repeating the
// last one once the list is exhausted.
func (b *Backend) Sequence(method, path string, payloads ...any) {
	var (
		mu   sync.Mutex
		next int
	)
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		idx := next
		if next < len(payloads)-1 {
			next++
		}
		mu.Unlock()
		if len(payloads) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, payloads[idx])
	})
}

// Calls reports how many requests hit method and path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[routeKey(method, path)]
}

// LastBody returns the most recent request body sent to method and path.
func (b *Backend) LastBody(method, path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.bodies[routeKey(method, path)]...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	key := routeKey(r.Method, path)
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls[key]++
	b.bodies[key] = body
	handler := b.handlers[key]
	b.mu.Unlock()

	if handler == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	handler(w, r)
}

func (b *Backend) installDefaults() {
	ok := gateway.AckResponse{Success: true}
	idle := "idle"
	zero := 0.0
	b.handlers[routeKey(http.MethodPost, "/chat")] = jsonHandler(gateway.ChatResponse{Response: "Merhaba"})
	b.handlers[routeKey(http.MethodPost, "/image")] = jsonHandler(gateway.ImageResponse{
		Success: true, ImageURL: "/static/image.png", Original: "kedi", Duration: 1.5,
	})
	b.handlers[routeKey(http.MethodPost, "/tts")] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	}
	b.handlers[routeKey(http.MethodPost, "/stt")] = jsonHandler(map[string]string{"text": "merhaba"})
	b.handlers[routeKey(http.MethodPost, "/news/generate")] = jsonHandler(gateway.NewsResponse{
		Success: true, ImageURL: "/static/news.png", ImagePath: "/tmp/news.png",
		Caption: "caption", NewsSummary: "summary", Prompt: "prompt", Duration: 2,
	})
	b.handlers[routeKey(http.MethodGet, "/progress")] = jsonHandler(gateway.ProgressResponse{Progress: &zero})
	b.handlers[routeKey(http.MethodPost, "/carousel/generate")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodGet, "/carousel/progress")] = jsonHandler(gateway.CarouselProgress{Status: &idle})
	b.handlers[routeKey(http.MethodPost, "/agent/run")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodGet, "/agent/progress")] = jsonHandler(gateway.AgentProgress{Status: &idle})
	b.handlers[routeKey(http.MethodPost, "/agent/cancel")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodPost, "/news/video_generate")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodGet, "/news/video_progress")] = jsonHandler(gateway.VideoProgress{Status: &idle})
	b.handlers[routeKey(http.MethodPost, "/instagram/upload")] = jsonHandler(gateway.UploadResponse{Success: true, Message: "ok"})
	b.handlers[routeKey(http.MethodPost, "/carousel/upload")] = jsonHandler(gateway.UploadResponse{Success: true, Message: "ok"})
	b.handlers[routeKey(http.MethodPost, "/instagram/credentials")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodPost, "/instagram/session/reset")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodGet, "/instagram/graph/config")] = jsonHandler(gateway.GraphConfigStatus{
		Success: true, RequiredCount: 6,
	})
	b.handlers[routeKey(http.MethodPost, "/instagram/graph/config")] = jsonHandler(ok)
	b.handlers[routeKey(http.MethodGet, "/instagram/graph/token")] = jsonHandler(gateway.TokenStatus{Message: "Token yok"})
	b.handlers[routeKey(http.MethodGet, "/instagram/imgbb")] = jsonHandler(gateway.ImgBBConfig{Success: true})
	b.handlers[routeKey(http.MethodPost, "/instagram/imgbb")] = jsonHandler(ok)
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " /" + strings.Trim(path, "/")
}

func jsonHandler(payload any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
