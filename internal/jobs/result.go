package jobs

import (
	"encoding/json"
	"fmt"
)

// Result is the kind-specific payload of a finished job.
type Result interface {
	ResultKind() Kind
}

// SingleImageResult is the generated daily content post.
type SingleImageResult struct {
	ImageURL    string  `json:"image_url"`
	ImagePath   string  `json:"image_path"`
	Caption     string  `json:"caption"`
	Prompt      string  `json:"prompt"`
	NewsSummary string  `json:"news_summary"`
	Duration    float64 `json:"duration"`
}

func (SingleImageResult) ResultKind() Kind { return KindSingleImage }

// Slide is one carousel image.
type Slide struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Prompt string `json:"prompt"`
	Title  string `json:"title"`
}

// CarouselResult is an ordered set of slides sharing one caption.
type CarouselResult struct {
	Images  []Slide `json:"images"`
	Caption string  `json:"caption"`
}

func (CarouselResult) ResultKind() Kind { return KindCarousel }

// Paths returns the local image paths in slide order.
func (r CarouselResult) Paths() []string {
	paths := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		paths = append(paths, img.Path)
	}
	return paths
}

// VideoResult points at the rendered video.
type VideoResult struct {
	VideoURL string `json:"video_url"`
}

func (VideoResult) ResultKind() Kind { return KindVideo }

// AgentResult summarizes a finished agent run.
type AgentResult struct {
	Stage   string   `json:"stage"`
	Summary string   `json:"summary,omitempty"`
	Logs    []string `json:"logs,omitempty"`
}

func (AgentResult) ResultKind() Kind { return KindAgent }

// UnmarshalJSON restores the concrete Result from the status kind so
// snapshots survive a round trip through the panel API.
func (s *Status) UnmarshalJSON(data []byte) error {
	type plain Status
	aux := struct {
		*plain
		Result json.RawMessage `json:"result,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Result = nil
	if len(aux.Result) == 0 || string(aux.Result) == "null" {
		return nil
	}
	var (
		result Result
		err    error
	)
	switch s.Kind {
	case KindSingleImage:
		var r SingleImageResult
		err = json.Unmarshal(aux.Result, &r)
		result = r
	case KindCarousel:
		var r CarouselResult
		err = json.Unmarshal(aux.Result, &r)
		result = r
	case KindAgent:
		var r AgentResult
		err = json.Unmarshal(aux.Result, &r)
		result = r
	case KindVideo:
		var r VideoResult
		err = json.Unmarshal(aux.Result, &r)
		result = r
	default:
		return fmt.Errorf("decode result: unknown job kind %q", s.Kind)
	}
	if err != nil {
		return fmt.Errorf("decode %s result: %w", s.Kind, err)
	}
	s.Result = result
	return nil
}
