package workflow

import (
	"testing"
	"time"

	"atlas/internal/jobs"
)

func TestNewStoreInitialState(t *testing.T) {
	snap := NewStore().Snapshot()

	if snap.Mode != ModeChat {
		t.Fatalf("initial mode = %s, want chat", snap.Mode)
	}
	for _, mode := range allModes {
		if snap.Step(mode) != StepIdle {
			t.Fatalf("mode %s starts at %s", mode, snap.Step(mode))
		}
	}
	for _, kind := range jobs.AllKinds() {
		if snap.Job(kind).Phase != jobs.PhaseIdle {
			t.Fatalf("job %s starts in %s", kind, snap.Job(kind).Phase)
		}
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Role != RoleAssistant || snap.Transcript[0].Content != Greeting {
		t.Fatalf("unexpected initial transcript %+v", snap.Transcript)
	}
	if snap.Speaking != nil || snap.Processing {
		t.Fatal("a new session must not be busy")
	}
	if snap.Instagram.AuthTab != "graph" || snap.Instagram.Graph.IGGraphVersion != "v24.0" {
		t.Fatalf("unexpected instagram defaults %+v", snap.Instagram)
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	store := NewStore()
	snap := store.Snapshot()
	snap.Steps[ModeStudio] = StepReview
	snap.Transcript[0].Content = "changed"

	again := store.Snapshot()
	if again.Step(ModeStudio) != StepIdle || again.Transcript[0].Content != Greeting {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	store := NewStore()
	ch, unsubscribe := store.Subscribe()

	for range 5 {
		store.update(func() { store.st.processing = !store.st.processing })
	}

	select {
	case snap := <-ch:
		if snap.Version != 5 {
			t.Fatalf("subscriber got version %d, want the latest (5)", snap.Version)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestAlertsDrainInOrder(t *testing.T) {
	store := NewStore()
	store.update(func() {
		store.pushAlertLocked(AlertError, "job", jobs.KindVideo, "first")
		store.pushAlertLocked(AlertInfo, "publish", jobs.KindSingleImage, "second")
	})
	if store.Snapshot().Alerts != 2 {
		t.Fatalf("pending alerts = %d, want 2", store.Snapshot().Alerts)
	}

	alerts := store.Alerts()
	if len(alerts) != 2 || alerts[0].Message != "first" || alerts[1].Message != "second" {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
	if alerts[0].Seq >= alerts[1].Seq {
		t.Fatal("alert sequence must increase")
	}
	if len(store.Alerts()) != 0 {
		t.Fatal("alerts must be delivered once")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		mode     Mode
		from, to Step
		want     bool
	}{
		{ModeStudio, StepIdle, StepGenerating, true},
		{ModeStudio, StepReview, StepGeneratingCarousel, true},
		{ModeStudio, StepDone, StepGeneratingAgent, true},
		{ModeStudio, StepGenerating, StepGeneratingCarousel, false},
		{ModeStudio, StepGenerating, StepReview, true},
		{ModeStudio, StepGenerating, StepIdle, true},
		{ModeStudio, StepReview, StepUploading, true},
		{ModeStudio, StepReview, StepUploadingCarousel, false},
		{ModeStudio, StepDoneCarousel, StepUploadingCarousel, true},
		{ModeStudio, StepUploading, StepDone, true},
		{ModeStudio, StepUploading, StepReview, true},
		{ModeStudio, StepUploading, StepIdle, false},
		{ModeStudio, StepUploadingCarousel, StepUploadedCarousel, true},
		{ModeStudio, StepUploadingCarousel, StepDone, false},
		{ModeStudio, StepGeneratingAgent, StepDoneAgent, true},
		{ModeStudio, StepIdle, StepGeneratingVideo, false},
		{ModeVideo, StepIdle, StepGeneratingVideo, true},
		{ModeVideo, StepGeneratingVideo, StepDoneVideo, true},
		{ModeVideo, StepDoneVideo, StepGeneratingVideo, true},
		{ModeChat, StepIdle, StepGenerating, false},
		{ModeStudio, StepReview, StepReview, false},
	}
	for _, tc := range tests {
		if got := canTransition(tc.mode, tc.from, tc.to); got != tc.want {
			t.Errorf("%s: %s -> %s = %v, want %v", tc.mode, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEveryKindHasStepsInItsMode(t *testing.T) {
	for _, kind := range jobs.AllKinds() {
		ks, ok := kindTable[kind]
		if !ok {
			t.Fatalf("kind %s missing from kind table", kind)
		}
		for _, step := range []Step{ks.running, ks.result} {
			info, ok := lookupStep(ks.mode, step)
			if !ok || info.kind != kind {
				t.Fatalf("step %s of %s not owned by it in %s", step, kind, ks.mode)
			}
		}
	}
}

func TestSetMicrophoneAlertsOnLoss(t *testing.T) {
	store := NewStore()

	store.SetMicrophone(true, "")
	if len(store.Alerts()) != 0 {
		t.Fatal("an available microphone must not alert")
	}
	store.SetMicrophone(false, "Mikrofon bulunamadı.")
	store.SetMicrophone(false, "Mikrofon bulunamadı.")
	alerts := store.Alerts()
	if len(alerts) != 1 || alerts[0].Kind != "device" || alerts[0].Level != AlertError {
		t.Fatalf("expected a single device alert, got %+v", alerts)
	}
	mic := store.Snapshot().Microphone
	if !mic.Known || mic.Available || mic.Message == "" {
		t.Fatalf("unexpected microphone view %+v", mic)
	}
}
