package notifications

import (
	"context"
	"log/slog"
	"time"

	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/workflow"
)

const sendTimeout = 15 * time.Second

// Relay forwards session milestones to a Service.
type Relay struct {
	svc    Service
	logger *slog.Logger

	notified map[jobs.Kind]string
	prev     *workflow.Snapshot
}

// NewRelay builds a relay for svc.
func NewRelay(svc Service, logger *slog.Logger) *Relay {
	if svc == nil {
		svc = noopService{}
	}
	return &Relay{
		svc:      svc,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		notified: make(map[jobs.Kind]string),
	}
}

// Run consumes store snapshots until ctx is done or the subscription closes.
// The first snapshot is a baseline: anything already finished there is not
// reported.
func (r *Relay) Run(ctx context.Context, store *workflow.Store) {
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			r.Observe(ctx, snap)
		}
	}
}

// Observe compares snap with the previous snapshot and sends what changed.
func (r *Relay) Observe(ctx context.Context, snap workflow.Snapshot) {
	if r.prev == nil {
		for _, kind := range jobs.AllKinds() {
			if st := snap.Job(kind); st.Phase.Terminal() {
				r.notified[kind] = st.JobID
			}
		}
		r.prev = &snap
		return
	}
	prev := *r.prev
	r.prev = &snap

	for _, kind := range jobs.AllKinds() {
		r.observeJob(ctx, snap.Job(kind))
	}
	r.observePublish(ctx, prev, snap)

	if snap.Microphone.Known && !snap.Microphone.Available &&
		(!prev.Microphone.Known || prev.Microphone.Available) {
		r.publish(ctx, EventMicrophoneLost, Payload{"detail": snap.Microphone.Message})
	}
}

func (r *Relay) observeJob(ctx context.Context, st jobs.Status) {
	if !st.Phase.Terminal() || st.JobID == "" || r.notified[st.Kind] == st.JobID {
		return
	}
	r.notified[st.Kind] = st.JobID

	if st.Phase == jobs.PhaseError {
		r.publish(ctx, EventJobFailed, Payload{"kind": string(st.Kind), "error": st.ErrorMessage})
		return
	}
	r.publish(ctx, EventJobCompleted, Payload{"kind": string(st.Kind), "detail": resultDetail(st.Result)})
}

func (r *Relay) observePublish(ctx context.Context, prev, snap workflow.Snapshot) {
	step := snap.Step(workflow.ModeStudio)
	if step == prev.Step(workflow.ModeStudio) {
		return
	}
	switch step {
	case workflow.StepDone:
		payload := Payload{"kind": string(jobs.KindSingleImage)}
		if single := snap.Content.Single; single != nil {
			payload["caption"] = single.Caption
		}
		r.publish(ctx, EventPublished, payload)
	case workflow.StepUploadedCarousel:
		payload := Payload{"kind": string(jobs.KindCarousel)}
		if carousel := snap.Content.Carousel; carousel != nil {
			payload["caption"] = carousel.Caption
		}
		r.publish(ctx, EventPublished, payload)
	}
}

func resultDetail(result jobs.Result) string {
	switch res := result.(type) {
	case jobs.SingleImageResult:
		return res.Caption
	case jobs.CarouselResult:
		return res.Caption
	case jobs.AgentResult:
		return res.Summary
	case jobs.VideoResult:
		return res.VideoURL
	}
	return ""
}

func (r *Relay) publish(ctx context.Context, event Event, payload Payload) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := r.svc.Publish(sendCtx, event, payload); err != nil {
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.Alert("notification_undelivered"),
			logging.Hint("check notifications.ntfy_topic and network access"),
		)
		return
	}
	r.logger.Debug("notification sent", logging.String("event", string(event)))
}
