package workflow

import (
	"time"

	"atlas/internal/gateway"
	"atlas/internal/jobs"
)

// Greeting opens every conversation.
const Greeting = "Merhaba! Ben Atlas. Size nasıl yardımcı olabilirim? Bugün neler üretmek istersiniz?"

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationEntry is one message in the transcript. Entries are never
// modified after they are appended.
type ConversationEntry struct {
	Role     Role     `json:"role"`
	Content  string   `json:"content"`
	Image    string   `json:"image,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// GalleryEntry is one generated image.
type GalleryEntry struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// Content holds the generated content shown by Studio and Video screens.
// At most one variant per mode is populated.
type Content struct {
	Single   *jobs.SingleImageResult `json:"single,omitempty"`
	Carousel *jobs.CarouselResult    `json:"carousel,omitempty"`
	Video    *jobs.VideoResult       `json:"video,omitempty"`
}

// AgentRunConfig is supplied when an agent run starts and fixed for its lifetime.
type AgentRunConfig struct {
	Live bool `json:"live"`
}

// AlertLevel separates confirmations from failures.
type AlertLevel string

const (
	AlertInfo  AlertLevel = "info"
	AlertError AlertLevel = "error"
)

// Alert is a one-shot user-facing message.
type Alert struct {
	Seq     uint64     `json:"seq"`
	Level   AlertLevel `json:"level"`
	Kind    string     `json:"kind,omitempty"`
	JobKind jobs.Kind  `json:"job_kind,omitempty"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// InstagramView is the connection modal state visible to views. The legacy
// password is never included.
type InstagramView struct {
	Open            bool                      `json:"open"`
	AuthTab         string                    `json:"auth_tab"`
	Graph           gateway.GraphConfig       `json:"graph"`
	GraphStatus     gateway.GraphConfigStatus `json:"graph_status"`
	Token           TokenView                 `json:"token"`
	TokenText       string                    `json:"token_text"`
	ImgBBKey        string                    `json:"imgbb_api_key"`
	ImgBBConfigured bool                      `json:"imgbb_configured"`
	Username        string                    `json:"username"`
	PasswordSet     bool                      `json:"password_set"`
}

// TokenView is the last known Graph access token state.
type TokenView struct {
	Configured       bool   `json:"configured"`
	IsValid          bool   `json:"is_valid"`
	NeedsRefresh     bool   `json:"needs_refresh"`
	ExpiresInSeconds *int64 `json:"expires_in_seconds"`
	Message          string `json:"message"`
}

// MicrophoneView is the last reported availability of the capture device.
type MicrophoneView struct {
	Known     bool   `json:"known"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	Version    uint64                    `json:"version"`
	Mode       Mode                      `json:"mode"`
	Steps      map[Mode]Step             `json:"steps"`
	Jobs       map[jobs.Kind]jobs.Status `json:"jobs"`
	Content    Content                   `json:"content"`
	AgentRun   AgentRunConfig            `json:"agent_run"`
	Transcript []ConversationEntry       `json:"transcript"`
	Gallery    []GalleryEntry            `json:"gallery"`
	Processing bool                      `json:"processing"`
	Speaking   *int                      `json:"speaking,omitempty"`
	Instagram  InstagramView             `json:"instagram"`
	Microphone MicrophoneView            `json:"microphone"`
	Alerts     int                       `json:"pending_alerts"`
}

// Step returns the active step of mode.
func (s Snapshot) Step(mode Mode) Step {
	if step, ok := s.Steps[mode]; ok {
		return step
	}
	return StepIdle
}

// Job returns the status of kind.
func (s Snapshot) Job(kind jobs.Kind) jobs.Status {
	if st, ok := s.Jobs[kind]; ok {
		return st
	}
	return jobs.NewStatus(kind)
}

// AgentBlocking reports whether the agent currently blocks navigation.
func (s Snapshot) AgentBlocking() bool {
	return s.Job(jobs.KindAgent).Phase == jobs.PhaseRunning
}
