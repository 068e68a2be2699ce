package workflow

import (
	"fmt"

	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

// Terminal error alerts are prefixed per job kind.
var jobErrorPrefix = map[jobs.Kind]string{
	jobs.KindSingleImage: "Hata: ",
	jobs.KindCarousel:    "Carousel Hatası: ",
	jobs.KindAgent:       "Hata: ",
	jobs.KindVideo:       "Video Hatası: ",
}

// beginJob claims the running step for kind and opens a new job instance.
// prepare, when set, runs under the same lock once the claim succeeds.
func (s *Store) beginJob(kind jobs.Kind, label string, percent int, prepare func(st *state)) (string, error) {
	var (
		jobID string
		err   error
	)
	s.update(func() {
		ks := kindTable[kind]
		if ks.mode == ModeStudio && kind != jobs.KindAgent && s.st.jobs[jobs.KindAgent].Phase.Active() {
			err = services.Wrap(services.ErrBusy, "workflow", "start "+string(kind), "agent run in progress", nil)
			return
		}
		st := s.st.jobs[kind]
		if st.Phase.Active() {
			err = services.Wrap(services.ErrBusy, "workflow", "start "+string(kind), "job already running", nil)
			return
		}
		cur := s.st.steps[ks.mode]
		if !canTransition(ks.mode, cur, ks.running) {
			err = services.Wrap(services.ErrBusy, "workflow", "start "+string(kind),
				fmt.Sprintf("cannot start from step %s", cur), nil)
			return
		}
		s.st.origins[kind] = cur
		st.Begin(s.now())
		st.TaskLabel = label
		st.Percent = percent
		s.st.steps[ks.mode] = ks.running
		jobID = st.JobID
		if prepare != nil {
			prepare(&s.st)
		}
	})
	return jobID, err
}

// startFailed records a StartError: the job fails, its mode returns to idle
// and the message is surfaced once.
func (s *Store) startFailed(kind jobs.Kind, jobID, message string) {
	s.update(func() {
		st := s.st.jobs[kind]
		if st.JobID != jobID {
			return
		}
		st.Fail(message, s.now())
		ks := kindTable[kind]
		if s.st.steps[ks.mode] == ks.running {
			s.moveLocked(ks.mode, StepIdle)
		}
		s.pushAlertLocked(AlertError, "start", kind, message)
	})
}

// markAccepted moves a starting job to running once the backend accepts it.
func (s *Store) markAccepted(kind jobs.Kind, jobID string) {
	s.update(func() {
		st := s.st.jobs[kind]
		if st.JobID != jobID {
			return
		}
		st.Apply(jobs.Update{Phase: jobs.Ptr(jobs.PhaseRunning)}, s.now())
	})
}

// applyJob merges a poll response into the job identified by jobID and
// reports whether polling should stop. Responses for a job instance that is
// no longer current are discarded.
func (s *Store) applyJob(kind jobs.Kind, jobID string, u jobs.Update) bool {
	terminal := false
	s.update(func() {
		st := s.st.jobs[kind]
		if st.JobID != jobID {
			terminal = true
			return
		}
		prev := st.Apply(u, s.now())
		if st.Phase.Terminal() && !prev.Terminal() {
			s.finishLocked(kind)
		}
		terminal = st.Phase.Terminal()
	})
	return terminal
}

// applyProgress feeds the percent-only single image progress feed.
func (s *Store) applyProgress(jobID string, percent float64) bool {
	stop := false
	s.update(func() {
		st := s.st.jobs[jobs.KindSingleImage]
		if st.JobID != jobID || st.Phase != jobs.PhaseRunning || s.st.steps[ModeStudio] != StepGenerating {
			stop = true
			return
		}
		st.Apply(jobs.Update{Percent: &percent}, s.now())
	})
	return stop
}

// applyAgent merges an agent poll. A run the session did not start is adopted
// when the backend reports it running; otherwise there is nothing to follow.
func (s *Store) applyAgent(u jobs.Update) bool {
	terminal := false
	s.update(func() {
		st := s.st.jobs[jobs.KindAgent]
		if !st.Phase.Active() {
			if u.Phase == nil || *u.Phase != jobs.PhaseRunning {
				terminal = true
				return
			}
			st.Begin(s.now())
			s.st.origins[jobs.KindAgent] = StepIdle
			s.st.agentRun = AgentRunConfig{}
			s.logger.Info("following agent run reported by backend",
				logging.JobKind(jobs.KindAgent),
				logging.JobID(st.JobID),
				logging.Event("agent_adopted"),
			)
		}
		// Until the start call is accepted the feed may still describe the
		// previous run.
		if st.Phase == jobs.PhaseStarting && u.Phase != nil && *u.Phase != jobs.PhaseRunning {
			return
		}
		prev := st.Apply(u, s.now())
		if st.Phase == jobs.PhaseRunning && s.st.mode == ModeStudio {
			s.moveLocked(ModeStudio, StepGeneratingAgent)
		}
		if st.Phase.Terminal() && !prev.Terminal() {
			s.finishLocked(jobs.KindAgent)
		}
		terminal = st.Phase.Terminal()
	})
	return terminal
}

// finishLocked applies the job-completion rules once a job turns terminal.
func (s *Store) finishLocked(kind jobs.Kind) {
	st := s.st.jobs[kind]
	ks := kindTable[kind]
	logger := s.logger.With(
		logging.JobKind(kind),
		logging.JobID(st.JobID),
	)

	if st.Phase == jobs.PhaseError {
		s.pushAlertLocked(AlertError, "job", kind, jobErrorPrefix[kind]+st.ErrorMessage)
		if s.st.steps[ks.mode] == ks.running {
			s.revertLocked(kind)
		}
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.Hint("check the backend logs and retry"),
			logging.String("reason", st.ErrorMessage),
		)
		return
	}

	switch r := st.Result.(type) {
	case jobs.SingleImageResult:
		s.st.content.Single = &r
		s.st.content.Carousel = nil
		s.addGalleryLocked(r.ImageURL, r.Prompt)
	case jobs.CarouselResult:
		s.st.content.Carousel = &r
		s.st.content.Single = nil
		for _, img := range r.Images {
			s.addGalleryLocked(img.URL, img.Prompt)
		}
	case jobs.VideoResult:
		s.st.content.Video = &r
	}
	if s.st.steps[ks.mode] == ks.running {
		s.moveLocked(ks.mode, ks.result)
	}
	logger.Info("job finished",
		logging.Event("job_done"),
		logging.Int("percent", st.Percent),
	)
}

// requestAgentCancel sets the agent cancel latch. It reports whether the
// flag changed.
func (s *Store) requestAgentCancel() (bool, error) {
	var (
		changed bool
		err     error
	)
	s.update(func() {
		st := s.st.jobs[jobs.KindAgent]
		if !st.Phase.Active() {
			err = services.Wrap(services.ErrValidation, "workflow", "cancel agent", "no agent run in progress", nil)
			return
		}
		changed = st.RequestCancel(s.now())
	})
	return changed, err
}

// resetKind returns kind to idle, clears its content and, when the active
// step of its mode belongs to kind, moves that mode back to idle. It reports
// whether a job instance was abandoned.
func (s *Store) resetKind(kind jobs.Kind) (bool, error) {
	var (
		abandoned bool
		err       error
	)
	s.update(func() {
		if err = s.checkResettableLocked(kind); err != nil {
			return
		}
		abandoned = s.resetKindLocked(kind)
	})
	return abandoned, err
}

// resetMode performs the explicit "new" action for a whole mode.
func (s *Store) resetMode(mode Mode) ([]jobs.Kind, error) {
	var (
		abandoned []jobs.Kind
		err       error
	)
	s.update(func() {
		kinds := kindsOf(mode)
		for _, kind := range kinds {
			if err = s.checkResettableLocked(kind); err != nil {
				return
			}
		}
		for _, kind := range kinds {
			if s.resetKindLocked(kind) {
				abandoned = append(abandoned, kind)
			}
		}
		s.st.steps[mode] = StepIdle
		s.clearContentLocked(mode)
	})
	return abandoned, err
}

func (s *Store) checkResettableLocked(kind jobs.Kind) error {
	ks := kindTable[kind]
	st := s.st.jobs[kind]
	if info, ok := lookupStep(ks.mode, s.st.steps[ks.mode]); ok && info.class == classPublishing {
		return services.Wrap(services.ErrBusy, "workflow", "reset "+string(kind), "upload in progress", nil)
	}
	if st.Phase.Active() {
		switch kind {
		case jobs.KindAgent:
			return services.WithHint(
				services.Wrap(services.ErrBusy, "workflow", "reset agent", "agent run in progress", nil),
				"cancel the agent and wait for it to stop",
			)
		case jobs.KindSingleImage:
			return services.Wrap(services.ErrBusy, "workflow", "reset single_image", "generation in progress", nil)
		}
	}
	return nil
}

func (s *Store) resetKindLocked(kind jobs.Kind) bool {
	ks := kindTable[kind]
	st := s.st.jobs[kind]
	abandoned := st.Phase.Active()
	st.Reset()
	delete(s.st.origins, kind)
	if info, ok := lookupStep(ks.mode, s.st.steps[ks.mode]); ok && info.kind == kind {
		s.st.steps[ks.mode] = StepIdle
	}
	switch kind {
	case jobs.KindSingleImage:
		s.st.content.Single = nil
	case jobs.KindCarousel:
		s.st.content.Carousel = nil
	case jobs.KindVideo:
		s.st.content.Video = nil
	}
	return abandoned
}

// switchMode applies a navigation request. While the agent has a run in
// flight only Studio, where the run is monitored, may be entered.
func (s *Store) switchMode(mode Mode) bool {
	allowed := true
	s.update(func() {
		if s.st.mode == mode {
			return
		}
		if s.st.jobs[jobs.KindAgent].Phase.Active() && mode != ModeStudio {
			allowed = false
			return
		}
		s.enterModeLocked(mode)
	})
	return allowed
}

func kindsOf(mode Mode) []jobs.Kind {
	var kinds []jobs.Kind
	for _, kind := range jobs.AllKinds() {
		if kindTable[kind].mode == mode {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
