package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"atlas/internal/gateway"
	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

// connectionErrorMessage is surfaced when a start call never reaches the backend.
const connectionErrorMessage = "Bağlantı Hatası"

// Input carries per-start options. Only the agent reads Live.
type Input struct {
	Live bool
}

// Driver owns start, poll interpretation and reset for one job kind.
type Driver interface {
	Kind() jobs.Kind
	Start(ctx context.Context, in Input) error
	Reset() error
}

// Intervals sets the poll cadence per job kind.
type Intervals struct {
	SingleImage time.Duration
	Carousel    time.Duration
	Agent       time.Duration
	Video       time.Duration
}

// DefaultIntervals returns the cadence the backend is built for.
func DefaultIntervals() Intervals {
	return Intervals{
		SingleImage: time.Second,
		Carousel:    3 * time.Second,
		Agent:       time.Second,
		Video:       2 * time.Second,
	}
}

// background runs fire-and-forget work bound to the session lifetime.
type background struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newBackground() *background {
	ctx, cancel := context.WithCancel(context.Background())
	return &background{ctx: ctx, cancel: cancel}
}

func (b *background) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

func (b *background) Close() {
	b.cancel()
	b.wg.Wait()
}

type deps struct {
	store   *Store
	poller  *jobs.Poller
	backend Backend
	bg      *background
	logger  *slog.Logger
}

// asyncJob describes a job that the backend accepts immediately and
// reports through a status feed.
type asyncJob struct {
	kind     jobs.Kind
	label    string
	percent  int
	interval time.Duration
	start    func(ctx context.Context) (gateway.AckResponse, error)
	fetch    jobs.FetchFunc
	apply    jobs.ApplyFunc // overrides the default job-scoped sink
	prepare  func(st *state)
	rejected func(reason string) string

	// awaitActive is set for feeds the backend resets only after the start
	// call has answered.
	awaitActive bool
}

func (d *deps) runAsync(ctx context.Context, job asyncJob) error {
	ctx = services.WithJobKind(ctx, string(job.kind))
	logger := logging.WithContext(ctx, d.logger)

	jobID, err := d.store.beginJob(job.kind, job.label, job.percent, job.prepare)
	if err != nil {
		return err
	}
	logger = logger.With(logging.JobID(jobID))
	// A loop from a finished instance or a Studio probe may still be winding
	// down and would swallow the Start below.
	d.poller.Stop(job.kind)

	ack, err := job.start(ctx)
	if err != nil {
		d.store.startFailed(job.kind, jobID, connectionErrorMessage)
		logging.WarnWithContext(logger, "job start failed", "job_start_failed",
			logging.Error(err),
			logging.Hint("check that the backend is running"),
		)
		return services.Wrap(services.ErrStart, "workflow", "start "+string(job.kind), "backend unreachable", err)
	}
	if !ack.Success {
		reason := ack.Reason()
		d.store.startFailed(job.kind, jobID, job.rejected(reason))
		logging.WarnWithContext(logger, "job start rejected", "job_start_rejected",
			logging.String("reason", reason),
			logging.Hint("inspect the backend response and retry"),
		)
		return services.Wrap(services.ErrStart, "workflow", "start "+string(job.kind), reason, nil)
	}

	d.store.markAccepted(job.kind, jobID)
	apply := job.apply
	if apply == nil {
		apply = func(u jobs.Update) bool { return d.store.applyJob(job.kind, jobID, u) }
	}
	d.poller.Start(jobs.Target{
		Kind:        job.kind,
		Interval:    job.interval,
		Fetch:       job.fetch,
		Apply:       apply,
		AwaitActive: job.awaitActive,
	})
	logger.Info("job started", logging.Event("job_started"))
	return nil
}

// resetKind abandons any job instance of kind and stops its poller.
func (d *deps) resetKind(kind jobs.Kind) error {
	abandoned, err := d.store.resetKind(kind)
	if err != nil {
		return err
	}
	d.poller.Stop(kind)
	if abandoned {
		d.logger.Info("job abandoned by reset",
			logging.JobKind(kind),
			logging.Event("job_abandoned"),
		)
	}
	return nil
}

func orUnknown(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return jobs.DefaultErrorMessage
	}
	return reason
}
