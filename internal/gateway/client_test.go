package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atlas/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{BaseURL: server.URL + "/api"}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := New(cfg, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestChatPostsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("expected request id header")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["message"] != "merhaba" {
			t.Fatalf("unexpected message %q", body["message"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "selam"})
	}, nil)

	resp, err := client.Chat(context.Background(), "merhaba")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Response != "selam" {
		t.Fatalf("unexpected response %q", resp.Response)
	}
}

func TestRequestIDFromContextIsForwarded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-ID"); got != "req-42" {
			t.Fatalf("unexpected request id %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"progress": 0.5})
	}, nil)

	ctx := services.WithRequestID(context.Background(), "req-42")
	resp, err := client.SingleProgress(ctx)
	if err != nil {
		t.Fatalf("SingleProgress returned error: %v", err)
	}
	if resp.Progress == nil || *resp.Progress != 0.5 {
		t.Fatalf("unexpected progress %+v", resp.Progress)
	}
}

func TestStartAgentSendsLiveFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agent/run" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("live") != "true" {
			t.Fatalf("expected live=true, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}, nil)

	ack, err := client.StartAgent(context.Background(), true)
	if err != nil {
		t.Fatalf("StartAgent returned error: %v", err)
	}
	if !ack.Success {
		t.Fatal("expected success ack")
	}
}

func TestAgentProgressKeepsFieldPresence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"running","stage":"risk","cancel_requested":false,"error":null}`)
	}, nil)

	p, err := client.AgentProgress(context.Background())
	if err != nil {
		t.Fatalf("AgentProgress returned error: %v", err)
	}
	if p.Status == nil || *p.Status != "running" {
		t.Fatalf("expected status present, got %+v", p.Status)
	}
	if p.Percent != nil {
		t.Fatal("expected percent absent")
	}
	if p.CurrentTask != nil {
		t.Fatal("expected current_task absent")
	}
	if p.Logs != nil {
		t.Fatal("expected logs absent")
	}
	if p.Error != nil {
		t.Fatal("expected null error to decode as absent")
	}
	if p.CancelRequested == nil || *p.CancelRequested {
		t.Fatal("expected cancel_requested present and false")
	}
}

func TestServerErrorCarriesDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "SD offline"})
	}, nil)

	_, err := client.UploadSingle(context.Background(), "/tmp/a.png", "caption")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for 5xx, got %v", err)
	}
	if got := BackendMessage(err); got != "SD offline" {
		t.Fatalf("unexpected backend message %q", got)
	}
}

func TestClientErrorIsValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"msg":"field required"}]}`)
	}, nil)

	_, err := client.SaveCredentials(context.Background(), Credentials{Username: "u"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !strings.Contains(BackendMessage(err), "field required") {
		t.Fatalf("expected structured detail in message, got %q", BackendMessage(err))
	}
}

func TestPollTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(cfg *Config) {
		cfg.PollTimeout = 50 * time.Millisecond
	})
	defer close(release)

	started := time.Now()
	_, err := client.VideoProgress(context.Background())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if time.Since(started) > 2*time.Second {
		t.Fatal("poll timeout was not applied")
	}
}

func TestUnreachableBackendIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Config{BaseURL: url + "/api"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.CarouselProgress(context.Background())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestSpeechToTextUploadsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stt" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "voice_input.wav" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFF" {
			t.Fatalf("unexpected audio payload %q", data)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "bir kedi çiz"})
	}, nil)

	text, err := client.SpeechToText(context.Background(), []byte("RIFF"))
	if err != nil {
		t.Fatalf("SpeechToText returned error: %v", err)
	}
	if text != "bir kedi çiz" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextToSpeechReturnsAudio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0x49, 0x44, 0x33})
	}, nil)

	audio, contentType, err := client.TextToSpeech(context.Background(), "merhaba")
	if err != nil {
		t.Fatalf("TextToSpeech returned error: %v", err)
	}
	if contentType != "audio/mpeg" || len(audio) != 3 {
		t.Fatalf("unexpected audio %q %d", contentType, len(audio))
	}
}

func TestUploadCarouselSendsPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ImagePaths []string `json:"image_paths"`
			Caption    string   `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.ImagePaths) != 2 || body.Caption != "c" {
			t.Fatalf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "login_required"})
	}, nil)

	resp, err := client.UploadCarousel(context.Background(), []string{"a", "b"}, "c")
	if err != nil {
		t.Fatalf("UploadCarousel returned error: %v", err)
	}
	if resp.Success || resp.Message != "login_required" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
