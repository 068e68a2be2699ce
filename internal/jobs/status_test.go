package jobs

import (
	"encoding/json"
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func runningStatus(kind Kind) Status {
	s := NewStatus(kind)
	s.Begin(testNow)
	s.Apply(Update{Phase: Ptr(PhaseRunning)}, testNow)
	return s
}

func TestBeginMintsJobAndResetsFields(t *testing.T) {
	s := runningStatus(KindAgent)
	s.RequestCancel(testNow)
	s.Apply(Update{Percent: Ptr(40.0), Stage: Ptr(StageRisk)}, testNow)
	firstID := s.JobID

	s.Begin(testNow.Add(time.Minute))
	if s.JobID == "" || s.JobID == firstID {
		t.Fatalf("expected a new job id, got %q (previous %q)", s.JobID, firstID)
	}
	if s.Phase != PhaseStarting {
		t.Fatalf("expected starting phase, got %s", s.Phase)
	}
	if s.CancelRequested || s.Percent != 0 || s.Stage != "" {
		t.Fatalf("expected fields reset, got %+v", s)
	}
	if s.Kind != KindAgent {
		t.Fatalf("kind lost on begin: %s", s.Kind)
	}
}

func TestApplyOnlyOverwritesPresentFields(t *testing.T) {
	s := runningStatus(KindVideo)
	s.Apply(Update{TaskLabel: Ptr("rendering"), Percent: Ptr(30.0)}, testNow)
	s.Apply(Update{Phase: Ptr(PhaseRunning)}, testNow)

	if s.TaskLabel != "rendering" {
		t.Fatalf("absent task label overwrote previous value: %q", s.TaskLabel)
	}
	if s.Percent != 30 {
		t.Fatalf("absent percent overwrote previous value: %d", s.Percent)
	}
}

func TestPercentNeverDecreasesWhileRunning(t *testing.T) {
	s := runningStatus(KindVideo)
	for _, pct := range []float64{10, 55, 20, 54.4, 70} {
		s.Apply(Update{Percent: Ptr(pct)}, testNow)
	}
	if s.Percent != 70 {
		t.Fatalf("expected 70, got %d", s.Percent)
	}
	s.Apply(Update{Percent: Ptr(40.0)}, testNow)
	if s.Percent != 70 {
		t.Fatalf("stale percent applied: %d", s.Percent)
	}
}

func TestPercentIsClamped(t *testing.T) {
	s := NewStatus(KindCarousel)
	s.Begin(testNow)
	s.Apply(Update{Percent: Ptr(140.0)}, testNow)
	if s.Percent != 100 {
		t.Fatalf("expected clamp to 100, got %d", s.Percent)
	}
	s.Begin(testNow)
	s.Apply(Update{Percent: Ptr(-5.0)}, testNow)
	if s.Percent != 0 {
		t.Fatalf("expected clamp to 0, got %d", s.Percent)
	}
}

func TestCancelLatchIsSticky(t *testing.T) {
	s := runningStatus(KindAgent)
	if !s.RequestCancel(testNow) {
		t.Fatal("expected first cancel request to change the flag")
	}
	if s.RequestCancel(testNow) {
		t.Fatal("expected second cancel request to be a no-op")
	}
	s.Apply(Update{CancelRequested: Ptr(false), Phase: Ptr(PhaseRunning)}, testNow)
	if !s.CancelRequested {
		t.Fatal("poll without cancel_requested cleared the latch")
	}
	s.Apply(Update{Percent: Ptr(50.0)}, testNow)
	if !s.CancelRequested {
		t.Fatal("poll with absent cancel_requested cleared the latch")
	}
}

func TestCancelLatchSetByBackend(t *testing.T) {
	s := runningStatus(KindAgent)
	s.Apply(Update{CancelRequested: Ptr(true)}, testNow)
	if !s.CancelRequested {
		t.Fatal("expected backend cancel_requested to set the latch")
	}
}

func TestTerminalFieldConsistency(t *testing.T) {
	results := map[Kind]Result{
		KindSingleImage: SingleImageResult{ImageURL: "u"},
		KindCarousel:    CarouselResult{Images: []Slide{{URL: "a"}}},
		KindAgent:       AgentResult{Stage: StageDone},
		KindVideo:       VideoResult{VideoURL: "v"},
	}
	for _, kind := range AllKinds() {
		t.Run(string(kind)+"/done", func(t *testing.T) {
			s := runningStatus(kind)
			s.Apply(Update{Error: Ptr("stale")}, testNow)
			s.Apply(Update{Phase: Ptr(PhaseDone), Result: results[kind], Error: Ptr("ignored")}, testNow)
			if s.Phase != PhaseDone {
				t.Fatalf("expected done, got %s", s.Phase)
			}
			if s.Result == nil {
				t.Fatal("done without result")
			}
			if s.ErrorMessage != "" {
				t.Fatalf("done with error message %q", s.ErrorMessage)
			}
			if s.Percent != 100 {
				t.Fatalf("expected percent 100 on done, got %d", s.Percent)
			}
		})
		t.Run(string(kind)+"/error", func(t *testing.T) {
			s := runningStatus(kind)
			s.Apply(Update{Result: results[kind]}, testNow)
			s.Apply(Update{Phase: Ptr(PhaseError), Error: Ptr("SD offline")}, testNow)
			if s.Phase != PhaseError {
				t.Fatalf("expected error, got %s", s.Phase)
			}
			if s.Result != nil {
				t.Fatal("error kept a result")
			}
			if s.ErrorMessage != "SD offline" {
				t.Fatalf("unexpected error message %q", s.ErrorMessage)
			}
		})
		t.Run(string(kind)+"/done-without-result", func(t *testing.T) {
			s := runningStatus(kind)
			s.Apply(Update{Phase: Ptr(PhaseDone)}, testNow)
			if s.Phase != PhaseError || s.ErrorMessage == "" || s.Result != nil {
				t.Fatalf("expected error without result, got %+v", s)
			}
		})
	}
}

func TestErrorWithoutMessageGetsDefault(t *testing.T) {
	s := runningStatus(KindCarousel)
	s.Apply(Update{Phase: Ptr(PhaseError)}, testNow)
	if s.ErrorMessage != DefaultErrorMessage {
		t.Fatalf("expected default message, got %q", s.ErrorMessage)
	}
}

func TestTerminalStatusIgnoresLaterUpdates(t *testing.T) {
	s := runningStatus(KindVideo)
	s.Apply(Update{Phase: Ptr(PhaseDone), Result: VideoResult{VideoURL: "v"}}, testNow)
	prev := s.Apply(Update{Phase: Ptr(PhaseRunning), Percent: Ptr(10.0)}, testNow)
	if prev != PhaseDone || s.Phase != PhaseDone || s.Percent != 100 {
		t.Fatalf("terminal status changed: prev=%s status=%+v", prev, s)
	}
}

func TestCloneDoesNotShareLogs(t *testing.T) {
	s := runningStatus(KindAgent)
	s.Apply(Update{Logs: []string{"a"}}, testNow)
	cp := s.Clone()
	cp.Logs[0] = "mutated"
	if s.Logs[0] != "a" {
		t.Fatal("clone shares log slice")
	}
}

func TestParsePhase(t *testing.T) {
	cases := map[string]Phase{
		"generating": PhaseRunning,
		"running":    PhaseRunning,
		"cancelling": PhaseRunning,
		" DONE ":     PhaseDone,
		"error":      PhaseError,
		"idle":       PhaseIdle,
	}
	for input, want := range cases {
		got, ok := ParsePhase(input)
		if !ok || got != want {
			t.Fatalf("ParsePhase(%q) = %s, %v; want %s", input, got, ok, want)
		}
	}
	if _, ok := ParsePhase("paused"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestStageIndexOrdersAgentStages(t *testing.T) {
	if StageIndex(StageServicesCheck) != 0 {
		t.Fatal("services_check should be first")
	}
	if StageIndex(StagePublish) <= StageIndex(StageRisk) {
		t.Fatal("publish should follow risk")
	}
	if StageIndex(StageDone) != len(AgentStages()) {
		t.Fatal("done should follow every named stage")
	}
	if StageIndex("unknown") != -1 {
		t.Fatal("unknown stage should report -1")
	}
}

func TestActiveStatusIgnoresPhaseRegression(t *testing.T) {
	s := NewStatus(KindAgent)
	s.Begin(testNow)
	s.Apply(Update{Phase: Ptr(PhaseIdle)}, testNow)
	if s.Phase != PhaseStarting {
		t.Fatalf("starting job fell back to %s", s.Phase)
	}
	s.Apply(Update{Phase: Ptr(PhaseRunning)}, testNow)
	s.Apply(Update{Phase: Ptr(PhaseStarting)}, testNow)
	if s.Phase != PhaseRunning {
		t.Fatalf("running job fell back to %s", s.Phase)
	}
}

func TestStatusDecodeRestoresCarouselResult(t *testing.T) {
	data := []byte(`{"kind":"carousel","phase":"done","percent":100,"result":{"caption":"c","images":[{"url":"a","path":"/p/a"}]}}`)
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	result, ok := s.Result.(CarouselResult)
	if !ok {
		t.Fatalf("result type %T", s.Result)
	}
	if result.Caption != "c" || len(result.Paths()) != 1 || result.Paths()[0] != "/p/a" {
		t.Fatalf("unexpected result %+v", result)
	}
	if s.Phase != PhaseDone || s.Percent != 100 {
		t.Fatalf("status fields lost: %+v", s)
	}
}

func TestStatusDecodeWithoutResult(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte(`{"kind":"agent","phase":"running","stage":"risk"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Result != nil || s.Stage != "risk" {
		t.Fatalf("unexpected status %+v", s)
	}
	if err := json.Unmarshal([]byte(`{"kind":"bogus","result":{}}`), &s); err == nil {
		t.Fatal("unknown kind with a result should fail")
	}
}
