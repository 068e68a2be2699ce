package jobs

import "strings"

// Kind identifies an independently tracked long-running backend operation.
type Kind string

const (
	KindSingleImage Kind = "single_image"
	KindCarousel    Kind = "carousel"
	KindAgent       Kind = "agent"
	KindVideo       Kind = "video"
)

var allKinds = []Kind{KindSingleImage, KindCarousel, KindAgent, KindVideo}

// AllKinds returns the job kinds in display order.
func AllKinds() []Kind {
	cp := make([]Kind, len(allKinds))
	copy(cp, allKinds)
	return cp
}

// Phase is the lifecycle state of a job kind.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Terminal reports whether the phase ends a job instance.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// Active reports whether a job instance is in flight.
func (p Phase) Active() bool {
	return p == PhaseStarting || p == PhaseRunning
}

// ParsePhase maps a backend status string onto a Phase. The backend reports
// in-flight work as "generating", "running" or "cancelling" depending on the
// endpoint.
func ParsePhase(value string) (Phase, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "idle":
		return PhaseIdle, true
	case "starting", "queued":
		return PhaseStarting, true
	case "running", "generating", "cancelling", "canceling":
		return PhaseRunning, true
	case "done", "completed", "complete":
		return PhaseDone, true
	case "error", "failed":
		return PhaseError, true
	default:
		return "", false
	}
}

// Agent stages in execution order. The backend reports the current stage
// independently of the numeric percent.
const (
	StageServicesCheck = "services_check"
	StageInit          = "init"
	StageNews          = "news"
	StageRisk          = "risk"
	StageVisual        = "visual"
	StageCaption       = "caption"
	StageSchedule      = "schedule"
	StagePublish       = "publish"
	StageDone          = "done"
)

var agentStages = []string{
	StageServicesCheck,
	StageInit,
	StageNews,
	StageRisk,
	StageVisual,
	StageCaption,
	StageSchedule,
	StagePublish,
}

// AgentStages returns the named agent checkpoints in order, excluding done.
func AgentStages() []string {
	cp := make([]string, len(agentStages))
	copy(cp, agentStages)
	return cp
}

// StageIndex returns the position of stage within AgentStages, or -1.
func StageIndex(stage string) int {
	stage = strings.ToLower(strings.TrimSpace(stage))
	if stage == StageDone {
		return len(agentStages)
	}
	for i, s := range agentStages {
		if s == stage {
			return i
		}
	}
	return -1
}
