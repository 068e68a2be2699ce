package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStreamHandlerCarriesAccumulatedAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	base := slog.NewTextHandler(discardWriter{}, nil)
	logger := slog.New(newStreamHandler(base, hub)).
		With(slog.String(FieldComponent, "poller")).
		With(slog.String(FieldJobKind, "agent"))

	logger.Info("poll applied", slog.String(FieldStage, "risk"), slog.Int("percent", 40))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "poller" || evt.JobKind != "agent" || evt.Stage != "risk" {
		t.Fatalf("unexpected event fields: %+v", evt)
	}
	if evt.Fields["percent"] != "40" {
		t.Fatalf("expected percent field, got %+v", evt.Fields)
	}
}

func TestStreamHandlerCallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	base := slog.NewTextHandler(discardWriter{}, nil)
	logger := slog.New(newStreamHandler(base, hub)).With(slog.String(FieldStage, "news"))

	logger.Info("message", slog.String(FieldStage, "visual"))

	events, _ := hub.Tail(10)
	if len(events) != 1 || events[0].Stage != "visual" {
		t.Fatalf("expected call-site stage to win, got %+v", events)
	}
}

func TestStreamHandlerNilHubReturnsBase(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if handler := newStreamHandler(base, nil); handler != base {
		t.Fatal("expected base handler when hub is nil")
	}
}

func TestStreamHubCapacityAndFetch(t *testing.T) {
	hub := NewStreamHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "line"})
	}
	events, next := hub.Tail(0)
	if len(events) != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", len(events))
	}
	if events[0].Sequence != 3 || next != 5 {
		t.Fatalf("unexpected sequences first=%d next=%d", events[0].Sequence, next)
	}

	fetched, _, err := hub.Fetch(context.Background(), 4, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(fetched) != 1 || fetched[0].Sequence != 5 {
		t.Fatalf("expected only seq 5, got %+v", fetched)
	}

	none, _, err := hub.Fetch(context.Background(), 5, 10, false)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no events after latest sequence, got %d err=%v", len(none), err)
	}
}

func TestStreamHubFetchWaitsForPublish(t *testing.T) {
	hub := NewStreamHub(10)
	done := make(chan []LogEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(LogEvent{Message: "wake"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Message != "wake" {
			t.Fatalf("unexpected events %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake on publish")
	}
}

func TestStreamHubFetchHonoursCancel(t *testing.T) {
	hub := NewStreamHub(10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := hub.Fetch(ctx, 0, 10, true)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not return after cancel")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSecretsAreRedactedInEverySink(t *testing.T) {
	hub := NewStreamHub(10)
	var jsonOut, consoleOut bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newStreamHandler(slog.NewMultiHandler(
		newJSONHandler(&jsonOut, lvl, false),
		newConsoleHandler(&consoleOut, lvl, false),
	), hub))

	logger.Info("graph config saved",
		slog.String("fb_access_token", "EAAB-secret"),
		slog.Group("creds", slog.String("password", "hunter2")),
		slog.String("username", "atlas"),
	)

	for name, out := range map[string]string{"json": jsonOut.String(), "console": consoleOut.String()} {
		if strings.Contains(out, "EAAB-secret") || strings.Contains(out, "hunter2") {
			t.Fatalf("%s output leaked a secret: %s", name, out)
		}
		if !strings.Contains(out, "atlas") {
			t.Fatalf("%s output dropped a plain field: %s", name, out)
		}
	}
	events, _ := hub.Tail(1)
	if len(events) != 1 || events[0].Fields["fb_access_token"] != redacted || strings.Contains(events[0].Fields["creds"], "hunter2") {
		t.Fatalf("stream event not redacted: %+v", events)
	}
}
