package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"atlas/internal/logging"
	"atlas/internal/services"
)

const defaultInterval = time.Second

// staleTerminalPolls is how many identical terminal reports an AwaitActive
// loop holds back before it accepts them as the new instance's outcome.
const staleTerminalPolls = 10

// FetchFunc performs one status request.
type FetchFunc func(ctx context.Context) (Update, error)

// ApplyFunc consumes one successful status response and reports whether the
// job has reached a terminal phase.
type ApplyFunc func(Update) bool

// Target describes one status feed to poll.
//
// AwaitActive marks a feed that keeps describing the previous run until the
// backend picks up the new one. Terminal reports are then held back until the
// feed has reported the instance running. A terminal report that differs from
// the first one held, or that outlasts staleTerminalPolls polls, still goes
// through.
type Target struct {
	Kind        Kind
	Interval    time.Duration
	Fetch       FetchFunc
	Apply       ApplyFunc
	AwaitActive bool
}

// Poller runs at most one status loop per job kind.
type Poller struct {
	logger  *slog.Logger
	maxWait time.Duration

	mu     sync.Mutex
	loops  map[Kind]*loop
	base   context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

type loop struct {
	target  Target
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time

	// Owned by the loop goroutine.
	seenActive bool
	held       *Update
	heldPolls  int
}

// predates reports whether u is a terminal report left over from an earlier
// run of the feed and must not reach Apply.
func (l *loop) predates(u Update) bool {
	if !l.target.AwaitActive || l.seenActive || u.Phase == nil {
		return false
	}
	if !u.Phase.Terminal() {
		if *u.Phase == PhaseRunning {
			l.seenActive = true
		}
		return false
	}
	if l.held == nil {
		l.held = &u
		l.heldPolls = 1
		return true
	}
	if !reflect.DeepEqual(*l.held, u) {
		return false
	}
	l.heldPolls++
	return l.heldPolls <= staleTerminalPolls
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithMaxWait bounds how long a loop may run without observing a terminal
// phase. When exceeded, the loop applies an error update and stops. Zero
// leaves polling unbounded.
func WithMaxWait(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.maxWait = d
		}
	}
}

// NewPoller constructs a Poller.
func NewPoller(logger *slog.Logger, opts ...PollerOption) *Poller {
	base, cancel := context.WithCancel(context.Background())
	p := &Poller{
		logger: logging.NewComponentLogger(logger, "poller"),
		loops:  make(map[Kind]*loop),
		base:   base,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling target.Kind. The first request is issued immediately.
// It returns false without starting anything when a loop for the kind is
// already active or the poller is closed.
func (p *Poller) Start(target Target) bool {
	if target.Fetch == nil || target.Apply == nil {
		return false
	}
	if target.Interval <= 0 {
		target.Interval = defaultInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if _, ok := p.loops[target.Kind]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(services.WithJobKind(p.base, string(target.Kind)))
	l := &loop{target: target, cancel: cancel, done: make(chan struct{}), started: time.Now()}
	p.loops[target.Kind] = l
	p.wg.Add(1)
	go p.run(ctx, l)

	p.logger.Debug("polling started",
		logging.JobKind(target.Kind),
		logging.Duration("interval", target.Interval),
	)
	return true
}

// Stop cancels the loop for kind and waits for it to exit. A response that
// arrives after Stop is discarded. Stop must not be called from the kind's
// own ApplyFunc; return true from it instead.
func (p *Poller) Stop(kind Kind) {
	p.mu.Lock()
	l, ok := p.loops[kind]
	if ok {
		delete(p.loops, kind)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	l.cancel()
	<-l.done
}

// Active reports whether a loop for kind is running.
func (p *Poller) Active(kind Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loops[kind]
	return ok
}

// Close stops every loop and prevents new ones.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.loops = make(map[Kind]*loop)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, l *loop) {
	defer p.wg.Done()
	defer close(l.done)
	defer p.release(l)

	kind := string(l.target.Kind)
	logger := p.logger.With(logging.JobKind(kind))
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		update, err := l.target.Fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Poll failures keep the previous status and retry on the next tick.
			logger.Debug("status poll failed",
				logging.Error(err),
				logging.Event("poll_failed"),
				logging.Bool("timeout", errors.Is(err, services.ErrTimeout)),
			)
		} else if l.predates(update) {
			logger.Debug("terminal report predates this job",
				logging.Event("poll_stale_terminal"),
				logging.String("phase", string(*update.Phase)),
			)
		} else if l.target.Apply(update) {
			logger.Debug("polling finished", logging.Event("poll_terminal"))
			return
		}

		if p.maxWait > 0 && time.Since(l.started) >= p.maxWait {
			msg := fmt.Sprintf("no terminal status within %s", p.maxWait)
			logger.Warn("polling gave up",
				logging.Event("poll_max_wait"),
				logging.Hint("check the backend job or raise polling.max_wait"),
				logging.Duration("max_wait", p.maxWait),
			)
			l.target.Apply(Update{Phase: Ptr(PhaseError), Error: &msg})
			return
		}
		timer.Reset(l.target.Interval)
	}
}

// release drops the loop from the registry when it exits on its own.
func (p *Poller) release(l *loop) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.loops[l.target.Kind]; ok && current == l {
		delete(p.loops, l.target.Kind)
	}
}
