package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"atlas/internal/config"
	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

// Options configures a Session.
type Options struct {
	Intervals Intervals
	// MaxWait bounds a poll loop that never sees a terminal phase. Zero
	// polls until the backend reports one.
	MaxWait time.Duration
	Logger  *slog.Logger
	Clock   func() time.Time
}

// OptionsFrom derives session options from application config.
func OptionsFrom(cfg *config.Config, logger *slog.Logger) Options {
	opts := Options{Intervals: DefaultIntervals(), Logger: logger}
	if cfg == nil {
		return opts
	}
	opts.Intervals = Intervals{
		SingleImage: time.Duration(cfg.Polling.SingleImageInterval) * time.Millisecond,
		Carousel:    time.Duration(cfg.Polling.CarouselInterval) * time.Millisecond,
		Agent:       time.Duration(cfg.Polling.AgentInterval) * time.Millisecond,
		Video:       time.Duration(cfg.Polling.VideoInterval) * time.Millisecond,
	}
	opts.MaxWait = cfg.MaxWait()
	return opts
}

// Session is one panel session: the store plus everything that mutates it.
// Construct one per session (or per test) with NewSession and release it
// with Close.
type Session struct {
	store  *Store
	poller *jobs.Poller
	bg     *background
	logger *slog.Logger

	Modes     *ModeController
	Single    *SingleImageDriver
	Carousel  *CarouselDriver
	Agent     *AgentDriver
	Video     *VideoDriver
	Publisher *Publisher
	Chat      *Chat
	Instagram *Instagram
}

// NewSession wires a session against backend.
func NewSession(backend Backend, opts Options) *Session {
	logger := logging.NewComponentLogger(opts.Logger, "workflow")
	defaults := DefaultIntervals()
	intervals := opts.Intervals
	if intervals.SingleImage <= 0 {
		intervals.SingleImage = defaults.SingleImage
	}
	if intervals.Carousel <= 0 {
		intervals.Carousel = defaults.Carousel
	}
	if intervals.Agent <= 0 {
		intervals.Agent = defaults.Agent
	}
	if intervals.Video <= 0 {
		intervals.Video = defaults.Video
	}

	storeOpts := []StoreOption{WithStoreLogger(opts.Logger)}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, WithClock(opts.Clock))
	}
	store := NewStore(storeOpts...)
	poller := jobs.NewPoller(opts.Logger, jobs.WithMaxWait(opts.MaxWait))
	bg := newBackground()
	d := deps{store: store, poller: poller, backend: backend, bg: bg, logger: logger}

	s := &Session{
		store:     store,
		poller:    poller,
		bg:        bg,
		logger:    logger,
		Single:    &SingleImageDriver{deps: d, interval: intervals.SingleImage},
		Carousel:  &CarouselDriver{deps: d, interval: intervals.Carousel},
		Agent:     &AgentDriver{deps: d, interval: intervals.Agent},
		Video:     &VideoDriver{deps: d, interval: intervals.Video},
		Publisher: &Publisher{store: store, backend: backend, logger: logging.NewComponentLogger(opts.Logger, "publish")},
		Chat:      &Chat{store: store, backend: backend, logger: logging.NewComponentLogger(opts.Logger, "chat")},
		Instagram: &Instagram{store: store, backend: backend, logger: logging.NewComponentLogger(opts.Logger, "instagram")},
	}
	s.Modes = &ModeController{store: store, agent: s.Agent, logger: logger}
	return s
}

// Store exposes the session state for reading and subscription.
func (s *Session) Store() *Store {
	return s.store
}

// Snapshot is shorthand for Store().Snapshot().
func (s *Session) Snapshot() Snapshot {
	return s.store.Snapshot()
}

// Driver returns the driver for kind.
func (s *Session) Driver(kind jobs.Kind) (Driver, error) {
	switch kind {
	case jobs.KindSingleImage:
		return s.Single, nil
	case jobs.KindCarousel:
		return s.Carousel, nil
	case jobs.KindAgent:
		return s.Agent, nil
	case jobs.KindVideo:
		return s.Video, nil
	default:
		return nil, services.Wrap(services.ErrNotFound, "workflow", "driver", fmt.Sprintf("unknown job kind %q", kind), nil)
	}
}

// ResetMode performs the explicit "new" action for mode: every job of the
// mode that may be abandoned is reset and the mode returns to idle.
func (s *Session) ResetMode(mode Mode) error {
	abandoned, err := s.store.resetMode(mode)
	if err != nil {
		return err
	}
	for _, kind := range kindsOf(mode) {
		if kind == jobs.KindAgent {
			continue
		}
		s.poller.Stop(kind)
	}
	for _, kind := range abandoned {
		s.logger.Info("job abandoned by reset",
			logging.JobKind(kind),
			logging.Event("job_abandoned"),
		)
	}
	return nil
}

// Close stops every poll loop and background task.
func (s *Session) Close() {
	s.poller.Close()
	s.bg.Close()
}
