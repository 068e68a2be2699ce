package panelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"atlas/internal/gateway"
	"atlas/internal/logging"
	"atlas/internal/workflow"
)

// State returns the current session snapshot.
func (c *Client) State(ctx context.Context) (workflow.Snapshot, error) {
	var snap workflow.Snapshot
	err := c.doJSON(ctx, http.MethodGet, "api/state", nil, nil, &snap)
	return snap, err
}

// SwitchMode asks the panel to change mode. A refusal while the agent runs
// is returned as an ErrBusy error.
func (c *Client) SwitchMode(ctx context.Context, mode workflow.Mode) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/mode", nil, map[string]string{"mode": string(mode)})
}

// Chat sends a message and returns the snapshot with the reply appended.
func (c *Client) Chat(ctx context.Context, message string) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/chat", nil, map[string]string{"message": message})
}

// Draw requests an image for prompt.
func (c *Client) Draw(ctx context.Context, prompt string) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/draw", nil, map[string]string{"prompt": prompt})
}

// Voice uploads a recorded clip and returns the recognized text.
func (c *Client) Voice(ctx context.Context, audio []byte) (string, workflow.Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "api/voice", nil, bytes.NewReader(audio), "audio/wav")
	if err != nil {
		return "", workflow.Snapshot{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", workflow.Snapshot{}, err
	}
	defer resp.Body.Close()
	var payload struct {
		Text     string            `json:"text"`
		Snapshot workflow.Snapshot `json:"snapshot"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return "", workflow.Snapshot{}, err
	}
	return payload.Text, payload.Snapshot, nil
}

// Speak returns synthesized audio for the transcript entry at index.
func (c *Client) Speak(ctx context.Context, index int) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "api/speak/"+strconv.Itoa(index), nil, nil, "")
	if err != nil {
		return nil, "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	return audio, resp.Header.Get("Content-Type"), nil
}

// StartSingle starts single-image generation. It returns once the panel
// accepted the request; progress arrives through State.
func (c *Client) StartSingle(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/single", nil, nil)
}

// StartCarousel starts carousel generation.
func (c *Client) StartCarousel(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/carousel", nil, nil)
}

// StartAgent starts an agent run; live selects real publishing.
func (c *Client) StartAgent(ctx context.Context, live bool) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/agent", boolQuery("live", live), nil)
}

// CancelAgent requests cancellation of the running agent.
func (c *Client) CancelAgent(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/agent/cancel", nil, nil)
}

// Publish uploads the Studio content on screen.
func (c *Client) Publish(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/publish", nil, nil)
}

// ResetStudio performs the Studio "new" action.
func (c *Client) ResetStudio(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/studio/reset", nil, nil)
}

// StartVideo starts news video generation.
func (c *Client) StartVideo(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/video", nil, nil)
}

// ResetVideo performs the Video "new" action.
func (c *Client) ResetVideo(ctx context.Context) (workflow.Snapshot, error) {
	return c.snapshotCall(ctx, http.MethodPost, "api/video/reset", nil, nil)
}

// Gallery lists generated images, newest first.
func (c *Client) Gallery(ctx context.Context) ([]workflow.GalleryEntry, error) {
	var payload struct {
		Gallery []workflow.GalleryEntry `json:"gallery"`
	}
	err := c.doJSON(ctx, http.MethodGet, "api/gallery", nil, nil, &payload)
	return payload.Gallery, err
}

// Alerts drains pending alerts.
func (c *Client) Alerts(ctx context.Context) ([]workflow.Alert, error) {
	var payload struct {
		Alerts []workflow.Alert `json:"alerts"`
	}
	err := c.doJSON(ctx, http.MethodGet, "api/alerts", nil, nil, &payload)
	return payload.Alerts, err
}

// Logs returns buffered panel log events after since.
func (c *Client) Logs(ctx context.Context, since uint64, limit int) ([]logging.LogEvent, uint64, error) {
	query := url.Values{}
	if since > 0 {
		query.Set("since", strconv.FormatUint(since, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var payload struct {
		Events []logging.LogEvent `json:"events"`
		Next   uint64             `json:"next"`
	}
	err := c.doJSON(ctx, http.MethodGet, "api/logs", query, nil, &payload)
	return payload.Events, payload.Next, err
}

// Theme returns the stored theme.
func (c *Client) Theme(ctx context.Context) (string, error) {
	var payload struct {
		Theme string `json:"theme"`
	}
	err := c.doJSON(ctx, http.MethodGet, "api/theme", nil, nil, &payload)
	return payload.Theme, err
}

// SetTheme stores theme; an empty theme toggles the current one.
func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	var payload struct {
		Theme string `json:"theme"`
	}
	err := c.doJSON(ctx, http.MethodPost, "api/theme", nil, map[string]string{"theme": theme}, &payload)
	return payload.Theme, err
}

// InstagramStatus refreshes and returns the connection view.
func (c *Client) InstagramStatus(ctx context.Context) (workflow.InstagramView, error) {
	var view workflow.InstagramView
	err := c.doJSON(ctx, http.MethodGet, "api/instagram/graph", nil, nil, &view)
	return view, err
}

// SaveGraphConfig stores the Graph API fields.
func (c *Client) SaveGraphConfig(ctx context.Context, cfg gateway.GraphConfig) (workflow.InstagramView, error) {
	var view workflow.InstagramView
	err := c.doJSON(ctx, http.MethodPost, "api/instagram/graph", nil, cfg, &view)
	return view, err
}

// SaveCredentials stores the legacy login pair.
func (c *Client) SaveCredentials(ctx context.Context, username, password string) (workflow.InstagramView, error) {
	var view workflow.InstagramView
	err := c.doJSON(ctx, http.MethodPost, "api/instagram/credentials", nil,
		map[string]string{"username": username, "password": password}, &view)
	return view, err
}

// ResetSession discards the backend's cached legacy login.
func (c *Client) ResetSession(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "api/instagram/session/reset", nil, nil, nil)
}

// ImgBB returns the fallback image-host key.
func (c *Client) ImgBB(ctx context.Context) (string, bool, error) {
	var payload struct {
		APIKey     string `json:"api_key"`
		Configured bool   `json:"configured"`
	}
	err := c.doJSON(ctx, http.MethodGet, "api/instagram/imgbb", nil, nil, &payload)
	return payload.APIKey, payload.Configured, err
}

// SaveImgBB stores the fallback image-host key.
func (c *Client) SaveImgBB(ctx context.Context, apiKey string) error {
	return c.doJSON(ctx, http.MethodPost, "api/instagram/imgbb", nil, map[string]string{"api_key": apiKey}, nil)
}

func (c *Client) snapshotCall(ctx context.Context, method, path string, query url.Values, in any) (workflow.Snapshot, error) {
	var snap workflow.Snapshot
	err := c.doJSON(ctx, method, path, query, in, &snap)
	return snap, err
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
