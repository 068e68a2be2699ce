package workflow

import (
	"context"

	"atlas/internal/gateway"
)

// Backend is the subset of the content backend the session drives.
// *gateway.Client satisfies it.
type Backend interface {
	Chat(ctx context.Context, message string) (gateway.ChatResponse, error)
	GenerateImage(ctx context.Context, prompt string) (gateway.ImageResponse, error)
	TextToSpeech(ctx context.Context, text string) ([]byte, string, error)
	SpeechToText(ctx context.Context, audio []byte) (string, error)

	StartSingle(ctx context.Context) (gateway.NewsResponse, error)
	SingleProgress(ctx context.Context) (gateway.ProgressResponse, error)
	StartCarousel(ctx context.Context) (gateway.AckResponse, error)
	CarouselProgress(ctx context.Context) (gateway.CarouselProgress, error)
	StartAgent(ctx context.Context, live bool) (gateway.AckResponse, error)
	AgentProgress(ctx context.Context) (gateway.AgentProgress, error)
	CancelAgent(ctx context.Context) (gateway.AckResponse, error)
	StartVideo(ctx context.Context) (gateway.AckResponse, error)
	VideoProgress(ctx context.Context) (gateway.VideoProgress, error)

	UploadSingle(ctx context.Context, imagePath, caption string) (gateway.UploadResponse, error)
	UploadCarousel(ctx context.Context, imagePaths []string, caption string) (gateway.UploadResponse, error)

	SaveCredentials(ctx context.Context, creds gateway.Credentials) (gateway.AckResponse, error)
	ResetSession(ctx context.Context) (gateway.AckResponse, error)
	GraphConfigStatus(ctx context.Context) (gateway.GraphConfigStatus, error)
	SaveGraphConfig(ctx context.Context, cfg gateway.GraphConfig) (gateway.AckResponse, error)
	TokenStatus(ctx context.Context) (gateway.TokenStatus, error)
	ImgBBConfig(ctx context.Context) (gateway.ImgBBConfig, error)
	SaveImgBBConfig(ctx context.Context, apiKey string) (gateway.AckResponse, error)
}

var _ Backend = (*gateway.Client)(nil)
