package workflow

import (
	"context"
	"time"

	"atlas/internal/gateway"
	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

// AgentDriver runs the autonomous agent. It is the only driver that blocks
// navigation and the only one that can be cancelled.
type AgentDriver struct {
	deps
	interval time.Duration
}

func (d *AgentDriver) Kind() jobs.Kind { return jobs.KindAgent }

// Start begins an agent run. in.Live selects real publishing over a dry run.
func (d *AgentDriver) Start(ctx context.Context, in Input) error {
	return d.runAsync(ctx, asyncJob{
		kind:     jobs.KindAgent,
		label:    "Ajan başlatılıyor...",
		interval: d.interval,
		start: func(ctx context.Context) (gateway.AckResponse, error) {
			return d.backend.StartAgent(ctx, in.Live)
		},
		fetch:    d.fetch,
		apply:    d.store.applyAgent,
		prepare:  func(st *state) { st.agentRun = AgentRunConfig{Live: in.Live} },
		rejected: func(reason string) string { return "Hata: " + reason },
	})
}

// Attach follows the backend agent feed so a run in flight is picked up when
// Studio is entered. It is a no-op when a loop is already active.
func (d *AgentDriver) Attach() {
	d.poller.Start(jobs.Target{
		Kind:     jobs.KindAgent,
		Interval: d.interval,
		Fetch:    d.fetch,
		Apply:    d.store.applyAgent,
	})
}

// Cancel requests cooperative cancellation. The local flag is set before the
// backend is contacted; the run keeps being polled until the backend reports
// a terminal phase.
func (d *AgentDriver) Cancel(ctx context.Context) error {
	changed, err := d.store.requestAgentCancel()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	requestID, _ := services.RequestIDFromContext(ctx)
	d.bg.Go(func(bgctx context.Context) {
		if requestID != "" {
			bgctx = services.WithRequestID(bgctx, requestID)
		}
		if _, err := d.backend.CancelAgent(bgctx); err != nil {
			d.logger.Debug("agent cancel request failed",
				logging.Error(err),
				logging.JobKind(jobs.KindAgent),
				logging.Event("agent_cancel_failed"),
			)
		}
	})
	d.logger.Info("agent cancel requested",
		logging.JobKind(jobs.KindAgent),
		logging.Event("agent_cancel_requested"),
	)
	return nil
}

// Reset clears a finished run. It is refused while a run is in flight.
func (d *AgentDriver) Reset() error {
	return d.resetKind(jobs.KindAgent)
}

func (d *AgentDriver) fetch(ctx context.Context) (jobs.Update, error) {
	p, err := d.backend.AgentProgress(ctx)
	if err != nil {
		return jobs.Update{}, err
	}
	return agentUpdate(p), nil
}
