package gateway

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"atlas/internal/services"
)

// Chat sends one message to the LLM.
func (c *Client) Chat(ctx context.Context, message string) (ChatResponse, error) {
	var out ChatResponse
	err := c.postJSON(ctx, "chat", classRequest, "chat", map[string]string{"message": message}, &out)
	return out, err
}

// GenerateImage renders a prompt synchronously.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (ImageResponse, error) {
	var out ImageResponse
	err := c.postJSON(ctx, "generate_image", classRequest, "image", map[string]string{"prompt": prompt}, &out)
	return out, err
}

// TextToSpeech returns synthesized audio for text along with its content type.
func (c *Client) TextToSpeech(ctx context.Context, text string) ([]byte, string, error) {
	req, err := c.jsonRequest("tts", classRequest, http.MethodPost, "tts", map[string]string{"text": text})
	if err != nil {
		return nil, "", err
	}
	return c.send(ctx, req)
}

// SpeechToText uploads a recorded WAV clip and returns the recognized text.
func (c *Client) SpeechToText(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "voice_input.wav")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "gateway", "stt", "build form", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", services.Wrap(services.ErrValidation, "gateway", "stt", "write form", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrValidation, "gateway", "stt", "close form", err)
	}

	var out struct {
		Text string `json:"text"`
	}
	err = c.call(ctx, request{
		op:          "stt",
		class:       classRequest,
		method:      http.MethodPost,
		path:        "stt",
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}, &out)
	return out.Text, err
}

// StartSingle runs single-content generation. The backend answers only once
// the content is ready, so this uses the longest timeout class.
func (c *Client) StartSingle(ctx context.Context) (NewsResponse, error) {
	var out NewsResponse
	err := c.postJSON(ctx, "start_single", classNewsStart, "news/generate", nil, &out)
	return out, err
}

// SingleProgress polls the percentage-only progress feed.
func (c *Client) SingleProgress(ctx context.Context) (ProgressResponse, error) {
	var out ProgressResponse
	err := c.getJSON(ctx, "single_progress", classPoll, "progress", &out)
	return out, err
}

// StartCarousel begins carousel generation in the background.
func (c *Client) StartCarousel(ctx context.Context) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "start_carousel", classStart, "carousel/generate", nil, &out)
	return out, err
}

// CarouselProgress polls the carousel status feed.
func (c *Client) CarouselProgress(ctx context.Context) (CarouselProgress, error) {
	var out CarouselProgress
	err := c.getJSON(ctx, "carousel_progress", classPoll, "carousel/progress", &out)
	return out, err
}

// StartAgent begins an autonomous agent run. live selects real publishing over a dry run.
func (c *Client) StartAgent(ctx context.Context, live bool) (AckResponse, error) {
	var out AckResponse
	err := c.call(ctx, request{
		op:     "start_agent",
		class:  classStart,
		method: http.MethodPost,
		path:   "agent/run",
		query:  url.Values{"live": []string{strconv.FormatBool(live)}},
	}, &out)
	return out, err
}

// AgentProgress polls the agent status feed.
func (c *Client) AgentProgress(ctx context.Context) (AgentProgress, error) {
	var out AgentProgress
	err := c.getJSON(ctx, "agent_progress", classPoll, "agent/progress", &out)
	return out, err
}

// CancelAgent requests cooperative cancellation of the running agent.
func (c *Client) CancelAgent(ctx context.Context) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "cancel_agent", classPoll, "agent/cancel", nil, &out)
	return out, err
}

// StartVideo begins video generation in the background.
func (c *Client) StartVideo(ctx context.Context) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "start_video", classStart, "news/video_generate", nil, &out)
	return out, err
}

// VideoProgress polls the video status feed.
func (c *Client) VideoProgress(ctx context.Context) (VideoProgress, error) {
	var out VideoProgress
	err := c.getJSON(ctx, "video_progress", classPoll, "news/video_progress", &out)
	return out, err
}

// UploadSingle publishes one image with its caption.
func (c *Client) UploadSingle(ctx context.Context, imagePath, caption string) (UploadResponse, error) {
	var out UploadResponse
	err := c.postJSON(ctx, "upload_single", classRequest, "instagram/upload",
		map[string]string{"image_path": imagePath, "caption": caption}, &out)
	return out, err
}

// UploadCarousel publishes an album of images with one caption.
func (c *Client) UploadCarousel(ctx context.Context, imagePaths []string, caption string) (UploadResponse, error) {
	var out UploadResponse
	err := c.postJSON(ctx, "upload_carousel", classRequest, "carousel/upload",
		map[string]any{"image_paths": imagePaths, "caption": caption}, &out)
	return out, err
}

// SaveCredentials stores the legacy login pair on the backend.
func (c *Client) SaveCredentials(ctx context.Context, creds Credentials) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "save_credentials", classRequest, "instagram/credentials", creds, &out)
	return out, err
}

// ResetSession discards the backend's cached legacy login session.
func (c *Client) ResetSession(ctx context.Context) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "reset_session", classRequest, "instagram/session/reset", nil, &out)
	return out, err
}

// GraphConfigStatus reads which Graph fields are configured.
func (c *Client) GraphConfigStatus(ctx context.Context) (GraphConfigStatus, error) {
	var out GraphConfigStatus
	err := c.getJSON(ctx, "graph_config_status", classRequest, "instagram/graph/config", &out)
	return out, err
}

// SaveGraphConfig writes the Graph fields to the backend's environment.
func (c *Client) SaveGraphConfig(ctx context.Context, cfg GraphConfig) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "save_graph_config", classRequest, "instagram/graph/config", cfg, &out)
	return out, err
}

// TokenStatus checks the configured Graph access token.
func (c *Client) TokenStatus(ctx context.Context) (TokenStatus, error) {
	var out TokenStatus
	err := c.getJSON(ctx, "token_status", classRequest, "instagram/graph/token", &out)
	return out, err
}

// ImgBBConfig reads the image-host fallback key.
func (c *Client) ImgBBConfig(ctx context.Context) (ImgBBConfig, error) {
	var out ImgBBConfig
	err := c.getJSON(ctx, "imgbb_config", classRequest, "instagram/imgbb", &out)
	return out, err
}

// SaveImgBBConfig stores the image-host fallback key.
func (c *Client) SaveImgBBConfig(ctx context.Context, apiKey string) (AckResponse, error) {
	var out AckResponse
	err := c.postJSON(ctx, "save_imgbb_config", classRequest, "instagram/imgbb",
		map[string]string{"imgbb_api_key": apiKey}, &out)
	return out, err
}
