package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"atlas/internal/gateway"
)

var errUnreachable = errors.New("connection refused")

// fakeBackend answers every call with a benign default unless the matching
// function field is set. Fields must be assigned before the session starts.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	chat             func(message string) (gateway.ChatResponse, error)
	image            func(prompt string) (gateway.ImageResponse, error)
	tts              func(text string) ([]byte, string, error)
	stt              func(audio []byte) (string, error)
	startSingle      func(ctx context.Context) (gateway.NewsResponse, error)
	singleProgress   func() (gateway.ProgressResponse, error)
	startCarousel    func() (gateway.AckResponse, error)
	carouselProgress func() (gateway.CarouselProgress, error)
	startAgent       func(live bool) (gateway.AckResponse, error)
	agentProgress    func() (gateway.AgentProgress, error)
	cancelAgent      func(ctx context.Context) (gateway.AckResponse, error)
	startVideo       func() (gateway.AckResponse, error)
	videoProgress    func() (gateway.VideoProgress, error)
	uploadSingle     func(path, caption string) (gateway.UploadResponse, error)
	uploadCarousel   func(paths []string, caption string) (gateway.UploadResponse, error)
	saveCredentials  func(creds gateway.Credentials) (gateway.AckResponse, error)
	resetSession     func() (gateway.AckResponse, error)
	graphStatus      func() (gateway.GraphConfigStatus, error)
	saveGraph        func(cfg gateway.GraphConfig) (gateway.AckResponse, error)
	tokenStatus      func() (gateway.TokenStatus, error)
	imgbb            func() (gateway.ImgBBConfig, error)
	saveImgBB        func(key string) (gateway.AckResponse, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

var ackOK = gateway.AckResponse{Success: true}

func (f *fakeBackend) Chat(_ context.Context, message string) (gateway.ChatResponse, error) {
	f.record("chat")
	if f.chat != nil {
		return f.chat(message)
	}
	return gateway.ChatResponse{Response: "yanit: " + message}, nil
}

func (f *fakeBackend) GenerateImage(_ context.Context, prompt string) (gateway.ImageResponse, error) {
	f.record("image")
	if f.image != nil {
		return f.image(prompt)
	}
	return gateway.ImageResponse{Success: true, ImageURL: "/static/chat.png", Original: prompt, Duration: 3.2}, nil
}

func (f *fakeBackend) TextToSpeech(_ context.Context, text string) ([]byte, string, error) {
	f.record("tts")
	if f.tts != nil {
		return f.tts(text)
	}
	return []byte("audio:" + text), "audio/mpeg", nil
}

func (f *fakeBackend) SpeechToText(_ context.Context, audio []byte) (string, error) {
	f.record("stt")
	if f.stt != nil {
		return f.stt(audio)
	}
	return "merhaba", nil
}

func (f *fakeBackend) StartSingle(ctx context.Context) (gateway.NewsResponse, error) {
	f.record("start_single")
	if f.startSingle != nil {
		return f.startSingle(ctx)
	}
	return newsOK(), nil
}

func (f *fakeBackend) SingleProgress(context.Context) (gateway.ProgressResponse, error) {
	f.record("single_progress")
	if f.singleProgress != nil {
		return f.singleProgress()
	}
	return gateway.ProgressResponse{}, nil
}

func (f *fakeBackend) StartCarousel(context.Context) (gateway.AckResponse, error) {
	f.record("start_carousel")
	if f.startCarousel != nil {
		return f.startCarousel()
	}
	return ackOK, nil
}

func (f *fakeBackend) CarouselProgress(context.Context) (gateway.CarouselProgress, error) {
	f.record("carousel_progress")
	if f.carouselProgress != nil {
		return f.carouselProgress()
	}
	return gateway.CarouselProgress{Status: str("idle")}, nil
}

func (f *fakeBackend) StartAgent(_ context.Context, live bool) (gateway.AckResponse, error) {
	f.record("start_agent")
	if f.startAgent != nil {
		return f.startAgent(live)
	}
	return ackOK, nil
}

func (f *fakeBackend) AgentProgress(context.Context) (gateway.AgentProgress, error) {
	f.record("agent_progress")
	if f.agentProgress != nil {
		return f.agentProgress()
	}
	return gateway.AgentProgress{Status: str("idle")}, nil
}

func (f *fakeBackend) CancelAgent(ctx context.Context) (gateway.AckResponse, error) {
	f.record("cancel_agent")
	if f.cancelAgent != nil {
		return f.cancelAgent(ctx)
	}
	return ackOK, nil
}

func (f *fakeBackend) StartVideo(context.Context) (gateway.AckResponse, error) {
	f.record("start_video")
	if f.startVideo != nil {
		return f.startVideo()
	}
	return ackOK, nil
}

func (f *fakeBackend) VideoProgress(context.Context) (gateway.VideoProgress, error) {
	f.record("video_progress")
	if f.videoProgress != nil {
		return f.videoProgress()
	}
	return gateway.VideoProgress{Status: str("idle")}, nil
}

func (f *fakeBackend) UploadSingle(_ context.Context, path, caption string) (gateway.UploadResponse, error) {
	f.record("upload_single")
	if f.uploadSingle != nil {
		return f.uploadSingle(path, caption)
	}
	return gateway.UploadResponse{Success: true, Message: "ok"}, nil
}

func (f *fakeBackend) UploadCarousel(_ context.Context, paths []string, caption string) (gateway.UploadResponse, error) {
	f.record("upload_carousel")
	if f.uploadCarousel != nil {
		return f.uploadCarousel(paths, caption)
	}
	return gateway.UploadResponse{Success: true, Message: "ok"}, nil
}

func (f *fakeBackend) SaveCredentials(_ context.Context, creds gateway.Credentials) (gateway.AckResponse, error) {
	f.record("save_credentials")
	if f.saveCredentials != nil {
		return f.saveCredentials(creds)
	}
	return ackOK, nil
}

func (f *fakeBackend) ResetSession(context.Context) (gateway.AckResponse, error) {
	f.record("reset_session")
	if f.resetSession != nil {
		return f.resetSession()
	}
	return ackOK, nil
}

func (f *fakeBackend) GraphConfigStatus(context.Context) (gateway.GraphConfigStatus, error) {
	f.record("graph_status")
	if f.graphStatus != nil {
		return f.graphStatus()
	}
	return gateway.GraphConfigStatus{Success: true, RequiredCount: 6}, nil
}

func (f *fakeBackend) SaveGraphConfig(_ context.Context, cfg gateway.GraphConfig) (gateway.AckResponse, error) {
	f.record("save_graph")
	if f.saveGraph != nil {
		return f.saveGraph(cfg)
	}
	return ackOK, nil
}

func (f *fakeBackend) TokenStatus(context.Context) (gateway.TokenStatus, error) {
	f.record("token_status")
	if f.tokenStatus != nil {
		return f.tokenStatus()
	}
	return gateway.TokenStatus{}, nil
}

func (f *fakeBackend) ImgBBConfig(context.Context) (gateway.ImgBBConfig, error) {
	f.record("imgbb")
	if f.imgbb != nil {
		return f.imgbb()
	}
	return gateway.ImgBBConfig{Success: true}, nil
}

func (f *fakeBackend) SaveImgBBConfig(_ context.Context, key string) (gateway.AckResponse, error) {
	f.record("save_imgbb")
	if f.saveImgBB != nil {
		return f.saveImgBB(key)
	}
	return ackOK, nil
}

func str(v string) *string { return &v }

func num(v float64) *float64 { return &v }

func newsOK() gateway.NewsResponse {
	return gateway.NewsResponse{
		Success:     true,
		ImageURL:    "/static/news.png",
		ImagePath:   "/data/news.png",
		Caption:     "Gunun haberi",
		NewsSummary: "ozet",
		Prompt:      "city skyline",
		Duration:    12.5,
	}
}

// sequence returns each value in turn and then repeats the last one.
func sequence[T any](values ...T) func() (T, error) {
	var (
		mu   sync.Mutex
		next int
	)
	return func() (T, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[next]
		if next < len(values)-1 {
			next++
		}
		return v, nil
	}
}

func newTestSession(t *testing.T, backend Backend) *Session {
	t.Helper()
	tick := 10 * time.Millisecond
	s := NewSession(backend, Options{
		Intervals: Intervals{SingleImage: tick, Carousel: tick, Agent: tick, Video: tick},
	})
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, s *Session, desc string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		snap := s.Snapshot()
		if cond(snap) {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s; last snapshot: mode=%s steps=%v", desc, snap.Mode, snap.Steps)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func alertMessages(alerts []Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Message)
	}
	return out
}
