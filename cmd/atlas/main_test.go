package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atlas/internal/logging"
	"atlas/internal/panelclient"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

func TestStatusShowsPanelSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out := requireRun(t, env, "status")
	for _, want := range []string{"System Status", "Panel:", "[OK]", "Dependencies", "Readiness", "Backend", "Session", "single_image", "agent"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusReportsStoppedPanel(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, "", "--config", env.configPath, "--panel", "127.0.0.1:1", "status")
	if err != nil {
		t.Fatalf("status should not fail when the panel is down: %v", err)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "atlas serve") {
		t.Fatalf("expected unreachable panel hint, got:\n%s", out)
	}
	if strings.Contains(out, "Session") {
		t.Fatal("session section needs a running panel")
	}
}

func TestModeCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if out := requireRun(t, env, "mode"); !strings.Contains(out, "Mode: chat") {
		t.Fatalf("unexpected mode output %q", out)
	}
	if out := requireRun(t, env, "mode", "studio"); !strings.Contains(out, "Mode: studio") || !strings.Contains(out, "Step: idle") {
		t.Fatalf("unexpected switch output %q", out)
	}
	_, _, err := env.run(t, "mode", "radio")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChatPrintsReply(t *testing.T) {
	env := setupCLITestEnv(t)

	out := requireRun(t, env, "chat", "nasılsın", "bugün")
	if !strings.Contains(out, "Atlas: Merhaba") {
		t.Fatalf("missing reply in %q", out)
	}
	if !strings.Contains(out, "atlas speak 2") {
		t.Fatalf("missing speak hint in %q", out)
	}
}

func TestDrawPrintsImage(t *testing.T) {
	env := setupCLITestEnv(t)

	out := requireRun(t, env, "draw", "kedi")
	if !strings.Contains(out, "Image: ") || !strings.Contains(out, "/static/image.png") {
		t.Fatalf("missing image in %q", out)
	}
}

func TestSpeakWritesAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "hello.mp3")

	requireRun(t, env, "speak", "0", "--out", target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "ID3" {
		t.Fatalf("unexpected audio %q", data)
	}
}

func TestStudioSingleWaitsForReview(t *testing.T) {
	env := setupCLITestEnv(t)

	out := requireRun(t, env, "studio", "single", "--wait", "--interval", "20ms")
	for _, want := range []string{"Caption: caption", "/tmp/news.png", "atlas studio publish"} {
		if !strings.Contains(out, want) {
			t.Fatalf("single output missing %q:\n%s", want, out)
		}
	}
	if got := env.daemon.Session().Snapshot().Step(workflow.ModeStudio); got != workflow.StepReview {
		t.Fatalf("studio step = %s, want review", got)
	}

	out = requireRun(t, env, "studio", "publish")
	if !strings.Contains(out, "Published") {
		t.Fatalf("unexpected publish output %q", out)
	}
	if env.backend.Calls(http.MethodPost, "/instagram/upload") != 1 {
		t.Fatal("upload not sent")
	}
}

func TestStudioJobFailureReturnsError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.JSON(http.MethodPost, "/news/generate", http.StatusOK, map[string]any{
		"success": false, "error": "Haber bulunamadı",
	})

	_, _, err := env.run(t, "studio", "single", "--wait", "--interval", "20ms")
	if err == nil {
		t.Fatal("expected failed job to return an error")
	}
	if !strings.Contains(err.Error(), "Haber bulunamadı") {
		t.Fatalf("error should carry the backend message, got %v", err)
	}
}

func TestPublishWithoutContentFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "studio", "publish")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestThemeCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if out := requireRun(t, env, "theme"); strings.TrimSpace(out) != "Theme: dark" {
		t.Fatalf("unexpected theme %q", out)
	}
	if out := requireRun(t, env, "theme", "toggle"); strings.TrimSpace(out) != "Theme: light" {
		t.Fatalf("unexpected toggled theme %q", out)
	}
	if _, _, err := env.run(t, "theme", "purple"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out := requireRun(t, env, "--json", "mode", "video")
	var snap workflow.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, out)
	}
	if snap.Mode != workflow.ModeVideo {
		t.Fatalf("mode = %s", snap.Mode)
	}
}

func TestAlertsDrain(t *testing.T) {
	env := setupCLITestEnv(t)

	requireRun(t, env, "instagram", "imgbb", "secret-key")
	t.Setenv("INSTAGRAM_PASSWORD", "hunter2")
	if out := requireRun(t, env, "instagram", "credentials", "--username", "atlas"); !strings.Contains(out, "Credentials saved for atlas") {
		t.Fatalf("unexpected credentials output %q", out)
	}
	out := requireRun(t, env, "alerts")
	if strings.Contains(out, "No pending alerts") {
		t.Fatalf("expected an alert after saving credentials:\n%s", out)
	}
	if out := requireRun(t, env, "alerts"); !strings.Contains(out, "No pending alerts") {
		t.Fatalf("alerts should drain once, got:\n%s", out)
	}
}

func TestCredentialsRequirePassword(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("INSTAGRAM_PASSWORD", "")

	_, _, err := env.run(t, "instagram", "credentials", "--username", "atlas")
	if !errors.Is(err, services.ErrValidation) || services.Hint(err) == "" {
		t.Fatalf("expected validation error with hint, got %v", err)
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.logs.Publish(logging.LogEvent{Level: "warn", Message: "upload rejected", Component: "workflow", JobKind: "carousel"})

	out := requireRun(t, env, "logs")
	if !strings.Contains(out, "WARN [workflow/carousel] upload rejected") {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "atlas.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing config to be protected")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestWrongTokenIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("ATLAS_PANEL_TOKEN", "wrong")

	_, _, err := env.run(t, "mode")
	var apiErr *panelclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected a 401 from the panel, got %v", err)
	}
}

func TestNotifyTest(t *testing.T) {
	env := setupCLITestEnv(t)

	t.Setenv("ATLAS_NTFY_TOPIC", "")
	if _, _, err := env.run(t, "notify-test"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without a topic, got %v", err)
	}

	var title string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
	}))
	defer ntfy.Close()
	t.Setenv("ATLAS_NTFY_TOPIC", ntfy.URL)

	out := requireRun(t, env, "notify-test")
	if !strings.Contains(out, "Test notification sent") || title != "Atlas - Test" {
		t.Fatalf("unexpected output %q (title %q)", out, title)
	}
}
