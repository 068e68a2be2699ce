package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atlas/internal/config"
	"atlas/internal/services"
)

const userAgent = "Atlas-Go/0.1.0"

// Event names a notification template.
type Event string

const (
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventPublished      Event = "published"
	EventMicrophoneLost Event = "microphone_lost"
	EventTest           Event = "test"
)

// Payload carries template values for an event. Unknown keys are ignored.
type Payload map[string]string

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc actually delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// render builds the ntfy message for event. Events without a template are
// dropped.
func render(event Event, p Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(p[key]) }

	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("✅ %s hazır", kindLabel(get("kind")))
		if detail := get("detail"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title: "Atlas - Tamamlandı",
			body:  body,
			tags:  []string{"atlas", get("kind"), "completed"},
		}, true
	case EventJobFailed:
		reason := get("error")
		if reason == "" {
			reason = "bilinmeyen hata"
		}
		return message{
			title:    "Atlas - Hata",
			body:     fmt.Sprintf("❌ %s başarısız: %s", kindLabel(get("kind")), reason),
			tags:     []string{"atlas", "error", "alert"},
			priority: "high",
		}, true
	case EventPublished:
		body := fmt.Sprintf("📤 Instagram'a yüklendi: %s", kindLabel(get("kind")))
		if caption := get("caption"); caption != "" {
			body += "\n" + truncate(caption, 120)
		}
		return message{
			title: "Atlas - Yayınlandı",
			body:  body,
			tags:  []string{"atlas", "instagram", "published"},
		}, true
	case EventMicrophoneLost:
		detail := get("detail")
		if detail == "" {
			detail = "Mikrofon bulunamadı."
		}
		return message{
			title: "Atlas - Mikrofon",
			body:  "🎙️ " + detail,
			tags:  []string{"atlas", "device", "microphone"},
		}, true
	case EventTest:
		return message{
			title:    "Atlas - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"atlas", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func kindLabel(kind string) string {
	switch kind {
	case "single_image":
		return "Günlük gönderi"
	case "carousel":
		return "Carousel"
	case "agent":
		return "Ajan çalışması"
	case "video":
		return "Video"
	case "":
		return "İş"
	}
	return kind
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "build request", "invalid ntfy topic", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compact(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "send", "ntfy request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrTransient, "notifications", "send",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compact(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
