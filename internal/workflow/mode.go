package workflow

import (
	"strings"

	"atlas/internal/jobs"
)

// Mode is a top-level section of the panel.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeStudio Mode = "studio"
	ModeVideo  Mode = "video"
)

var allModes = []Mode{ModeChat, ModeStudio, ModeVideo}

// ParseMode converts a string into a known Mode.
func ParseMode(value string) (Mode, bool) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(value)))
	for _, mode := range allModes {
		if mode == normalized {
			return mode, true
		}
	}
	return "", false
}

// Step selects the screen shown within a mode.
type Step string

const (
	StepIdle Step = "idle"

	StepGenerating         Step = "generating"
	StepReview             Step = "review"
	StepUploading          Step = "uploading"
	StepDone               Step = "done"
	StepGeneratingCarousel Step = "generating_carousel"
	StepDoneCarousel       Step = "done_carousel"
	StepUploadingCarousel  Step = "uploading_carousel"
	StepUploadedCarousel   Step = "uploaded_carousel"
	StepGeneratingAgent    Step = "generating_agent"
	StepDoneAgent          Step = "done_agent"

	StepGeneratingVideo Step = "generating_video"
	StepDoneVideo       Step = "done_video"
)

type stepClass int

const (
	classIdle stepClass = iota
	classRunning
	classReview
	classPublishing
	classPublished
)

type stepInfo struct {
	kind  jobs.Kind
	class stepClass
}

// stepTable is the authoritative list of steps per mode.
var stepTable = map[Mode]map[Step]stepInfo{
	ModeChat: {
		StepIdle: {class: classIdle},
	},
	ModeStudio: {
		StepIdle:               {class: classIdle},
		StepGenerating:         {kind: jobs.KindSingleImage, class: classRunning},
		StepReview:             {kind: jobs.KindSingleImage, class: classReview},
		StepUploading:          {kind: jobs.KindSingleImage, class: classPublishing},
		StepDone:               {kind: jobs.KindSingleImage, class: classPublished},
		StepGeneratingCarousel: {kind: jobs.KindCarousel, class: classRunning},
		StepDoneCarousel:       {kind: jobs.KindCarousel, class: classReview},
		StepUploadingCarousel:  {kind: jobs.KindCarousel, class: classPublishing},
		StepUploadedCarousel:   {kind: jobs.KindCarousel, class: classPublished},
		StepGeneratingAgent:    {kind: jobs.KindAgent, class: classRunning},
		StepDoneAgent:          {kind: jobs.KindAgent, class: classReview},
	},
	ModeVideo: {
		StepIdle:            {class: classIdle},
		StepGeneratingVideo: {kind: jobs.KindVideo, class: classRunning},
		StepDoneVideo:       {kind: jobs.KindVideo, class: classReview},
	},
}

type kindSteps struct {
	mode      Mode
	running   Step
	result    Step
	uploading Step
	uploaded  Step
}

var kindTable = map[jobs.Kind]kindSteps{
	jobs.KindSingleImage: {mode: ModeStudio, running: StepGenerating, result: StepReview, uploading: StepUploading, uploaded: StepDone},
	jobs.KindCarousel:    {mode: ModeStudio, running: StepGeneratingCarousel, result: StepDoneCarousel, uploading: StepUploadingCarousel, uploaded: StepUploadedCarousel},
	jobs.KindAgent:       {mode: ModeStudio, running: StepGeneratingAgent, result: StepDoneAgent},
	jobs.KindVideo:       {mode: ModeVideo, running: StepGeneratingVideo, result: StepDoneVideo},
}

func lookupStep(mode Mode, step Step) (stepInfo, bool) {
	info, ok := stepTable[mode][step]
	return info, ok
}

// canTransition reports whether mode may move from one step to another.
func canTransition(mode Mode, from, to Step) bool {
	src, ok := lookupStep(mode, from)
	if !ok {
		return false
	}
	dst, ok := lookupStep(mode, to)
	if !ok || from == to {
		return false
	}
	switch dst.class {
	case classIdle:
		return src.class != classPublishing
	case classRunning:
		return src.class == classIdle || src.class == classReview || src.class == classPublished
	case classReview:
		return src.class == classRunning || (src.class == classPublishing && src.kind == dst.kind)
	case classPublishing:
		return src.class == classReview && src.kind == dst.kind
	case classPublished:
		return src.class == classPublishing && src.kind == dst.kind
	}
	return false
}

// busy reports whether step shows work in flight.
func (s Step) busy(mode Mode) bool {
	info, ok := lookupStep(mode, s)
	return ok && (info.class == classRunning || info.class == classPublishing)
}
