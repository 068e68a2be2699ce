package jobs

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultErrorMessage is surfaced when the backend reports an error without text.
	DefaultErrorMessage = "Bilinmeyen hata"
	missingResultMessage = "job finished without a result"
)

// Status is the snapshot of one job kind.
type Status struct {
	Kind            Kind      `json:"kind"`
	JobID           string    `json:"job_id,omitempty"`
	Phase           Phase     `json:"phase"`
	Percent         int       `json:"percent"`
	TaskLabel       string    `json:"current_task,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	Logs            []string  `json:"logs,omitempty"`
	CancelRequested bool      `json:"cancel_requested"`
	Result          Result    `json:"result,omitempty"`
	ErrorMessage    string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// NewStatus returns an idle status for kind.
func NewStatus(kind Kind) Status {
	return Status{Kind: kind, Phase: PhaseIdle}
}

// Update is a partial status report. Nil fields were absent from the source
// and leave the corresponding Status field untouched.
type Update struct {
	Phase           *Phase
	Percent         *float64
	TaskLabel       *string
	Stage           *string
	Logs            []string
	CancelRequested *bool
	Result          Result
	Error           *string
}

// Ptr returns a pointer to v, for building Updates.
func Ptr[T any](v T) *T {
	return &v
}

// Begin starts a fresh job instance: every field resets, the cancel latch
// opens again, and a new JobID is minted.
func (s *Status) Begin(at time.Time) {
	kind := s.Kind
	*s = Status{
		Kind:      kind,
		JobID:     uuid.NewString(),
		Phase:     PhaseStarting,
		StartedAt: at,
		UpdatedAt: at,
	}
}

// Reset returns the status to idle without minting a job id.
func (s *Status) Reset() {
	*s = NewStatus(s.Kind)
}

// RequestCancel sets the cancel latch. It reports whether the flag changed.
func (s *Status) RequestCancel(at time.Time) bool {
	if s.CancelRequested {
		return false
	}
	s.CancelRequested = true
	s.UpdatedAt = at
	return true
}

// Apply merges u into the status and returns the phase held before the merge.
//
// A terminal status ignores further updates until Begin starts a new instance.
func (s *Status) Apply(u Update, at time.Time) Phase {
	prev := s.Phase
	if prev.Terminal() {
		return prev
	}

	next := prev
	if u.Phase != nil {
		next = *u.Phase
	}
	// A live job never falls back to idle or starting from a stale report.
	if prev.Active() && (next == PhaseIdle || (prev == PhaseRunning && next == PhaseStarting)) {
		next = prev
	}

	if u.Percent != nil {
		pct := clampPercent(*u.Percent)
		if !(prev == PhaseRunning && next == PhaseRunning && pct < s.Percent) {
			s.Percent = pct
		}
	}
	if u.TaskLabel != nil {
		s.TaskLabel = *u.TaskLabel
	}
	if u.Stage != nil {
		s.Stage = *u.Stage
	}
	if u.Logs != nil {
		s.Logs = append([]string(nil), u.Logs...)
	}
	if u.CancelRequested != nil && *u.CancelRequested {
		s.CancelRequested = true
	}
	if u.Result != nil {
		s.Result = u.Result
	}

	switch next {
	case PhaseDone:
		if s.Result == nil {
			next = PhaseError
			s.ErrorMessage = missingResultMessage
			break
		}
		s.ErrorMessage = ""
		s.Percent = 100
	case PhaseError:
		if u.Error != nil && *u.Error != "" {
			s.ErrorMessage = *u.Error
		}
	}
	if next == PhaseError {
		s.Result = nil
		if s.ErrorMessage == "" {
			s.ErrorMessage = DefaultErrorMessage
		}
	}

	s.Phase = next
	s.UpdatedAt = at
	return prev
}

// Fail moves a non-terminal status to error with message.
func (s *Status) Fail(message string, at time.Time) Phase {
	return s.Apply(Update{Phase: Ptr(PhaseError), Error: &message}, at)
}

// Clone returns a copy that shares no mutable slices with s.
func (s Status) Clone() Status {
	if s.Logs != nil {
		s.Logs = append([]string(nil), s.Logs...)
	}
	return s
}

func clampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	pct := int(math.Round(v))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
