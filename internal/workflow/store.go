package workflow

import (
	"log/slog"
	"sync"
	"time"

	"atlas/internal/jobs"
	"atlas/internal/logging"
)

type state struct {
	mode       Mode
	steps      map[Mode]Step
	jobs       map[jobs.Kind]*jobs.Status
	origins    map[jobs.Kind]Step
	content    Content
	agentRun   AgentRunConfig
	transcript []ConversationEntry
	gallery    []GalleryEntry
	processing bool
	speaking   int
	instagram  InstagramView
	password   string
	microphone MicrophoneView
	alerts     []Alert
}

// Store is the session's single mutable state container. It is safe for
// concurrent use; every mutation is atomic and followed by a snapshot
// broadcast to subscribers.
type Store struct {
	mu       sync.Mutex
	st       state
	version  uint64
	alertSeq uint64
	subs     map[int]chan Snapshot
	nextSub  int
	now      func() time.Time
	logger   *slog.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger sets the logger used for transition diagnostics.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "store")
	}
}

// NewStore returns a store in chat mode with the greeting as the only
// transcript entry.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		subs:   make(map[int]chan Snapshot),
		now:    time.Now,
		logger: logging.NewComponentLogger(nil, "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.st = state{
		mode:       ModeChat,
		steps:      make(map[Mode]Step, len(allModes)),
		jobs:       make(map[jobs.Kind]*jobs.Status, len(jobs.AllKinds())),
		origins:    make(map[jobs.Kind]Step),
		transcript: []ConversationEntry{{Role: RoleAssistant, Content: Greeting}},
		speaking:   -1,
		instagram: InstagramView{
			AuthTab:     "graph",
			Graph:       defaultGraphConfig(),
			GraphStatus: defaultGraphStatus(),
		},
	}
	for _, mode := range allModes {
		s.st.steps[mode] = StepIdle
	}
	for _, kind := range jobs.AllKinds() {
		st := jobs.NewStatus(kind)
		s.st.jobs[kind] = &st
	}
	s.st.instagram.TokenText = tokenStatusText(s.st.instagram.Token)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives the latest snapshot after every
// mutation. Slow subscribers only see the newest snapshot. The returned
// function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Alerts drains and returns pending alerts in the order they were raised.
func (s *Store) Alerts() []Alert {
	var out []Alert
	s.update(func() {
		out = s.st.alerts
		s.st.alerts = nil
	})
	return out
}

// update runs fn under the lock and broadcasts the resulting snapshot.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:    s.version,
		Mode:       s.st.mode,
		Steps:      make(map[Mode]Step, len(s.st.steps)),
		Jobs:       make(map[jobs.Kind]jobs.Status, len(s.st.jobs)),
		Content:    s.st.content,
		AgentRun:   s.st.agentRun,
		Transcript: append([]ConversationEntry(nil), s.st.transcript...),
		Gallery:    append([]GalleryEntry(nil), s.st.gallery...),
		Processing: s.st.processing,
		Instagram:  s.st.instagram,
		Microphone: s.st.microphone,
		Alerts:     len(s.st.alerts),
	}
	for mode, step := range s.st.steps {
		snap.Steps[mode] = step
	}
	for kind, st := range s.st.jobs {
		snap.Jobs[kind] = st.Clone()
	}
	if s.st.speaking >= 0 {
		idx := s.st.speaking
		snap.Speaking = &idx
	}
	snap.Instagram.PasswordSet = s.st.password != ""
	return snap
}

func (s *Store) pushAlertLocked(level AlertLevel, kind string, jobKind jobs.Kind, message string) {
	s.alertSeq++
	s.st.alerts = append(s.st.alerts, Alert{
		Seq:     s.alertSeq,
		Level:   level,
		Kind:    kind,
		JobKind: jobKind,
		Message: message,
		At:      s.now(),
	})
}

func (s *Store) appendEntryLocked(entry ConversationEntry) {
	s.st.transcript = append(s.st.transcript, entry)
}

// addGalleryLocked prepends so the gallery stays newest-first.
func (s *Store) addGalleryLocked(url, prompt string) {
	s.st.gallery = append([]GalleryEntry{{URL: url, Prompt: prompt}}, s.st.gallery...)
}

// moveLocked changes the step of mode when the transition table allows it.
func (s *Store) moveLocked(mode Mode, to Step) bool {
	from := s.st.steps[mode]
	if from == to {
		return true
	}
	if !canTransition(mode, from, to) {
		s.logger.Debug("step transition refused",
			logging.Mode(mode),
			logging.String("from", string(from)),
			logging.String("to", string(to)),
		)
		return false
	}
	s.st.steps[mode] = to
	return true
}

func (s *Store) hasContentLocked(kind jobs.Kind) bool {
	switch kind {
	case jobs.KindSingleImage:
		return s.st.content.Single != nil
	case jobs.KindCarousel:
		return s.st.content.Carousel != nil
	case jobs.KindVideo:
		return s.st.content.Video != nil
	default:
		return false
	}
}

func (s *Store) clearContentLocked(mode Mode) {
	switch mode {
	case ModeStudio:
		s.st.content.Single = nil
		s.st.content.Carousel = nil
	case ModeVideo:
		s.st.content.Video = nil
	}
}

// revertLocked returns the mode of kind to the step the job was started
// from when that step still has content to show, otherwise to idle.
func (s *Store) revertLocked(kind jobs.Kind) {
	mode := kindTable[kind].mode
	origin := s.st.origins[kind]
	if info, ok := lookupStep(mode, origin); ok && info.class == classReview && s.hasContentLocked(info.kind) {
		if s.moveLocked(mode, origin) {
			return
		}
	}
	s.moveLocked(mode, StepIdle)
}

// enterModeLocked applies the mode-entry rule: the target mode's step and
// content reset unless the job behind its current step is still in flight.
func (s *Store) enterModeLocked(mode Mode) {
	s.st.mode = mode
	cur := s.st.steps[mode]
	if info, ok := lookupStep(mode, cur); ok {
		switch info.class {
		case classRunning:
			if s.st.jobs[info.kind].Phase.Active() {
				return
			}
		case classPublishing:
			return
		}
	}
	if mode == ModeStudio && s.st.jobs[jobs.KindAgent].Phase.Active() {
		s.st.steps[mode] = StepGeneratingAgent
		return
	}
	s.st.steps[mode] = StepIdle
	s.clearContentLocked(mode)
}
