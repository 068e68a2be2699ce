package gateway

// Poll payloads use pointer fields so callers can tell an absent field from a
// zero value; only present fields are merged into job status.

// ChatResponse is the reply to a chat message.
type ChatResponse struct {
	Response string `json:"response"`
}

// ImageResponse is returned by the synchronous image endpoint.
type ImageResponse struct {
	Success         bool    `json:"success"`
	ImageURL        string  `json:"image_url"`
	Original        string  `json:"original"`
	OptimizedPrompt string  `json:"optimized_prompt,omitempty"`
	Duration        float64 `json:"duration"`
	Error           string  `json:"error,omitempty"`
}

// NewsResponse is returned by the single-content start call, which blocks
// until the content is ready.
type NewsResponse struct {
	Success     bool    `json:"success"`
	ImageURL    string  `json:"image_url"`
	ImagePath   string  `json:"image_path"`
	Caption     string  `json:"caption"`
	NewsSummary string  `json:"news_summary"`
	Prompt      string  `json:"prompt"`
	Original    string  `json:"original,omitempty"`
	Duration    float64 `json:"duration"`
	Error       string  `json:"error,omitempty"`
}

// ProgressResponse is the percentage-only single-content progress feed (0.0-1.0).
type ProgressResponse struct {
	Progress *float64 `json:"progress"`
}

// AckResponse is the accept/reject shape shared by job-start and config calls.
type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reason returns the most specific rejection text the backend supplied.
func (a AckResponse) Reason() string {
	if a.Error != "" {
		return a.Error
	}
	return a.Message
}

// CarouselImage is one slide of a generated carousel.
type CarouselImage struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
}

// CarouselPayload is the carousel job result.
type CarouselPayload struct {
	Images  []CarouselImage `json:"images"`
	Caption string          `json:"caption"`
}

// CarouselProgress is the carousel status feed.
type CarouselProgress struct {
	Status      *string          `json:"status"`
	CurrentTask *string          `json:"current_task"`
	Percent     *float64         `json:"percent"`
	Result      *CarouselPayload `json:"result"`
	Error       *string          `json:"error"`
}

// AgentProgress is the autonomous agent status feed.
type AgentProgress struct {
	Status          *string  `json:"status"`
	CurrentTask     *string  `json:"current_task"`
	Percent         *float64 `json:"percent"`
	Stage           *string  `json:"stage"`
	Logs            []string `json:"logs"`
	CancelRequested *bool    `json:"cancel_requested"`
	Error           *string  `json:"error"`
	Summary         *string  `json:"summary"`
}

// VideoProgress is the video status feed. Result carries the video URL.
type VideoProgress struct {
	Status      *string  `json:"status"`
	CurrentTask *string  `json:"current_task"`
	Percent     *float64 `json:"percent"`
	Result      *string  `json:"result"`
	Error       *string  `json:"error"`
}

// UploadResponse is returned by the Instagram upload endpoints.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GraphConfig holds the Instagram Graph API fields.
type GraphConfig struct {
	FBAppID        string `json:"fb_app_id"`
	FBAppSecret    string `json:"fb_app_secret"`
	FBPageID       string `json:"fb_page_id"`
	IGUserID       string `json:"ig_user_id"`
	FBAccessToken  string `json:"fb_access_token"`
	PublicBaseURL  string `json:"public_base_url"`
	IGGraphVersion string `json:"ig_graph_version"`
}

// GraphConfigStatus reports how many Graph fields the backend has.
type GraphConfigStatus struct {
	Success       bool   `json:"success"`
	GraphReady    bool   `json:"graph_ready"`
	FilledCount   int    `json:"filled_count"`
	RequiredCount int    `json:"required_count"`
	PublicBaseURL string `json:"public_base_url"`
}

// TokenStatus reports the access token validity as checked by the backend.
type TokenStatus struct {
	Success          *bool  `json:"success"`
	Configured       bool   `json:"configured"`
	IsValid          bool   `json:"is_valid"`
	NeedsRefresh     bool   `json:"needs_refresh"`
	ExpiresInSeconds *int64 `json:"expires_in_seconds"`
	Message          string `json:"message"`
	Error            string `json:"error,omitempty"`
}

// ImgBBConfig carries the image-host fallback key.
type ImgBBConfig struct {
	Success bool   `json:"success"`
	APIKey  string `json:"imgbb_api_key"`
	Error   string `json:"error,omitempty"`
}

// Credentials is the legacy username/password login pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
