package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"atlas/internal/gateway"
	"atlas/internal/jobs"
	"atlas/internal/services"
)

func carouselDone() gateway.CarouselProgress {
	return gateway.CarouselProgress{
		Status:  str("done"),
		Percent: num(100),
		Result: &gateway.CarouselPayload{
			Caption: "Haftanin ozeti",
			Images: []gateway.CarouselImage{
				{URL: "/static/c1.png", Path: "/data/c1.png", Prompt: "slide one"},
				{URL: "/static/c2.png", Path: "/data/c2.png", Prompt: "slide two"},
			},
		},
	}
}

func TestCarouselRunsToReview(t *testing.T) {
	backend := newFakeBackend()
	backend.carouselProgress = sequence(
		gateway.CarouselProgress{Status: str("running"), CurrentTask: str("Slayt 1"), Percent: num(40)},
		gateway.CarouselProgress{Status: str("running"), Percent: num(30)},
		carouselDone(),
	)
	s := newTestSession(t, backend)

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepGeneratingCarousel {
		t.Fatalf("step after start = %s", snap.Step(ModeStudio))
	}

	snap = waitFor(t, s, "carousel review", func(s Snapshot) bool { return s.Step(ModeStudio) == StepDoneCarousel })
	job := snap.Job(jobs.KindCarousel)
	if job.Phase != jobs.PhaseDone || job.Percent != 100 {
		t.Fatalf("unexpected job %+v", job)
	}
	if snap.Content.Carousel == nil || len(snap.Content.Carousel.Images) != 2 {
		t.Fatalf("carousel content missing: %+v", snap.Content)
	}
	if len(snap.Gallery) != 2 || snap.Gallery[0].URL != "/static/c2.png" {
		t.Fatalf("gallery should hold every slide newest first, got %+v", snap.Gallery)
	}
	if len(s.Store().Alerts()) != 0 {
		t.Fatal("a successful job must not alert")
	}
}

func TestCarouselKeepsEverySlideAndPrompt(t *testing.T) {
	backend := newFakeBackend()
	payload := &gateway.CarouselPayload{Caption: "On slayt"}
	for i := 1; i <= 10; i++ {
		payload.Images = append(payload.Images, gateway.CarouselImage{
			URL:    fmt.Sprintf("/static/s%d.png", i),
			Path:   fmt.Sprintf("/data/s%d.png", i),
			Prompt: fmt.Sprintf("prompt %d", i),
		})
	}
	backend.carouselProgress = sequence(
		gateway.CarouselProgress{Status: str("generating"), Percent: num(50)},
		gateway.CarouselProgress{Status: str("done"), Result: payload},
	)
	s := newTestSession(t, backend)

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitFor(t, s, "carousel review", func(s Snapshot) bool { return s.Step(ModeStudio) == StepDoneCarousel })
	if len(snap.Gallery) != 10 {
		t.Fatalf("gallery holds %d entries, want 10", len(snap.Gallery))
	}
	for i, entry := range snap.Gallery {
		n := 10 - i
		if entry.URL != fmt.Sprintf("/static/s%d.png", n) || entry.Prompt != fmt.Sprintf("prompt %d", n) {
			t.Fatalf("gallery[%d] = %+v", i, entry)
		}
	}
}

func TestSecondCarouselIgnoresPreviousRunReport(t *testing.T) {
	backend := newFakeBackend()
	backend.carouselProgress = sequence(gateway.CarouselProgress{Status: str("generating")}, carouselDone())
	s := newTestSession(t, backend)

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	waitFor(t, s, "first carousel", func(s Snapshot) bool { return s.Step(ModeStudio) == StepDoneCarousel })
	if err := s.ResetMode(ModeStudio); err != nil {
		t.Fatalf("ResetMode: %v", err)
	}

	fresh := gateway.CarouselProgress{
		Status: str("done"),
		Result: &gateway.CarouselPayload{
			Caption: "Yeni seri",
			Images: []gateway.CarouselImage{
				{URL: "/static/d1.png", Path: "/data/d1.png", Prompt: "new one"},
				{URL: "/static/d2.png", Path: "/data/d2.png", Prompt: "new two"},
			},
		},
	}
	var polls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	backend.carouselProgress = func() (gateway.CarouselProgress, error) {
		switch polls.Add(1) {
		case 1:
			// The backend has not reset its feed yet.
			return carouselDone(), nil
		case 2:
			close(entered)
			<-release
			return gateway.CarouselProgress{Status: str("generating"), Percent: num(40)}, nil
		}
		return fresh, nil
	}

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	<-entered
	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepGeneratingCarousel || snap.Job(jobs.KindCarousel).Phase != jobs.PhaseRunning {
		t.Fatalf("previous run's report finished the new job: step=%s phase=%s",
			snap.Step(ModeStudio), snap.Job(jobs.KindCarousel).Phase)
	}
	if len(snap.Gallery) != 2 {
		t.Fatalf("gallery = %+v", snap.Gallery)
	}
	close(release)

	snap = waitFor(t, s, "second carousel", func(s Snapshot) bool { return s.Step(ModeStudio) == StepDoneCarousel })
	if snap.Content.Carousel == nil || snap.Content.Carousel.Caption != "Yeni seri" {
		t.Fatalf("second run content = %+v", snap.Content.Carousel)
	}
	urls := make([]string, 0, len(snap.Gallery))
	for _, entry := range snap.Gallery {
		urls = append(urls, entry.URL)
	}
	want := []string{"/static/d2.png", "/static/d1.png", "/static/c2.png", "/static/c1.png"}
	if !slices.Equal(urls, want) {
		t.Fatalf("gallery = %v, want %v", urls, want)
	}
	if polls.Load() < 3 {
		t.Fatalf("finished after %d polls", polls.Load())
	}
}

func TestVideoIgnoresPreviousRunError(t *testing.T) {
	backend := newFakeBackend()
	backend.videoProgress = sequence(
		gateway.VideoProgress{Status: str("error"), Error: str("eski hata")},
		gateway.VideoProgress{Status: str("generating"), Percent: num(30)},
		gateway.VideoProgress{Status: str("done"), Result: str("/static/fresh.mp4")},
	)
	s := newTestSession(t, backend)

	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitFor(t, s, "video done", func(s Snapshot) bool { return s.Job(jobs.KindVideo).Phase.Terminal() })
	if snap.Job(jobs.KindVideo).Phase != jobs.PhaseDone || snap.Content.Video == nil ||
		snap.Content.Video.VideoURL != "/static/fresh.mp4" {
		t.Fatalf("unexpected video job %+v", snap.Job(jobs.KindVideo))
	}
	if alerts := s.Store().Alerts(); len(alerts) != 0 {
		t.Fatalf("previous run's error surfaced: %+v", alerts)
	}
}

func TestProgressNeverDecreasesWhileRunning(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	var polls atomic.Int32
	backend.videoProgress = func() (gateway.VideoProgress, error) {
		switch polls.Add(1) {
		case 1:
			return gateway.VideoProgress{Status: str("running"), Percent: num(60)}, nil
		case 2:
			return gateway.VideoProgress{Status: str("running"), Percent: num(20)}, nil
		}
		<-release
		return gateway.VideoProgress{Status: str("done"), Result: str("/static/news.mp4")}, nil
	}
	s := newTestSession(t, backend)

	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, s, "two polls", func(Snapshot) bool { return polls.Load() >= 3 })
	if got := s.Snapshot().Job(jobs.KindVideo).Percent; got != 60 {
		t.Fatalf("percent regressed to %d", got)
	}
	close(release)

	snap := waitFor(t, s, "video done", func(s Snapshot) bool { return s.Step(ModeVideo) == StepDoneVideo })
	if snap.Content.Video == nil || snap.Content.Video.VideoURL != "/static/news.mp4" {
		t.Fatalf("video content missing: %+v", snap.Content)
	}
}

func TestJobErrorRevertsAndAlertsOnce(t *testing.T) {
	backend := newFakeBackend()
	backend.carouselProgress = sequence(
		gateway.CarouselProgress{Status: str("running"), Percent: num(10)},
		gateway.CarouselProgress{Status: str("error"), Error: str("LLM zaman asimi")},
	)
	s := newTestSession(t, backend)

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitFor(t, s, "carousel error", func(s Snapshot) bool { return s.Job(jobs.KindCarousel).Phase == jobs.PhaseError })
	if snap.Step(ModeStudio) != StepIdle {
		t.Fatalf("failed job should revert to idle, got %s", snap.Step(ModeStudio))
	}
	if snap.Job(jobs.KindCarousel).Result != nil {
		t.Fatal("error status must not keep a result")
	}

	// Polling has stopped, so no further alert can appear.
	time.Sleep(50 * time.Millisecond)
	got := alertMessages(s.Store().Alerts())
	if !slices.Equal(got, []string{"Carousel Hatası: LLM zaman asimi"}) {
		t.Fatalf("unexpected alerts %q", got)
	}
}

func TestDoneWithoutResultIsAnError(t *testing.T) {
	backend := newFakeBackend()
	backend.videoProgress = sequence(
		gateway.VideoProgress{Status: str("generating"), Percent: num(5)},
		gateway.VideoProgress{Status: str("done")},
	)
	s := newTestSession(t, backend)

	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitFor(t, s, "video error", func(s Snapshot) bool { return s.Job(jobs.KindVideo).Phase.Terminal() })
	if snap.Job(jobs.KindVideo).Phase != jobs.PhaseError || snap.Content.Video != nil {
		t.Fatalf("done without result must fail, got %+v", snap.Job(jobs.KindVideo))
	}
	alerts := s.Store().Alerts()
	if len(alerts) != 1 || !strings.HasPrefix(alerts[0].Message, "Video Hatası: ") {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestStartRejectedIsStartError(t *testing.T) {
	backend := newFakeBackend()
	backend.startCarousel = func() (gateway.AckResponse, error) {
		return gateway.AckResponse{Success: false, Error: "GPU mesgul"}, nil
	}
	s := newTestSession(t, backend)

	err := s.Carousel.Start(context.Background(), Input{})
	if !errors.Is(err, services.ErrStart) {
		t.Fatalf("expected ErrStart, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepIdle || snap.Job(jobs.KindCarousel).Phase != jobs.PhaseError {
		t.Fatalf("rejected start should leave idle/error, got %s/%s", snap.Step(ModeStudio), snap.Job(jobs.KindCarousel).Phase)
	}
	if backend.count("carousel_progress") != 0 {
		t.Fatal("a rejected job must not be polled")
	}
	got := alertMessages(s.Store().Alerts())
	if !slices.Equal(got, []string{"Islem baslatilamadi: GPU mesgul"}) {
		t.Fatalf("unexpected alerts %q", got)
	}
}

func TestStartUnreachableUsesConnectionMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.startVideo = func() (gateway.AckResponse, error) { return gateway.AckResponse{}, errUnreachable }
	s := newTestSession(t, backend)

	err := s.Video.Start(context.Background(), Input{})
	if !errors.Is(err, services.ErrStart) || !errors.Is(err, errUnreachable) {
		t.Fatalf("expected wrapped start error, got %v", err)
	}
	got := alertMessages(s.Store().Alerts())
	if !slices.Equal(got, []string{connectionErrorMessage}) {
		t.Fatalf("unexpected alerts %q", got)
	}
	if s.Snapshot().Step(ModeVideo) != StepIdle {
		t.Fatal("video should return to idle")
	}
}

func TestSecondStartWhileRunningIsRefused(t *testing.T) {
	backend := newFakeBackend()
	backend.videoProgress = sequence(gateway.VideoProgress{Status: str("running"), Percent: num(10)})
	s := newTestSession(t, backend)

	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Video.Start(context.Background(), Input{}); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second start should be busy, got %v", err)
	}
	if backend.count("start_video") != 1 {
		t.Fatalf("backend start called %d times", backend.count("start_video"))
	}
}

func TestPollFailuresAreNotSurfaced(t *testing.T) {
	backend := newFakeBackend()
	var polls atomic.Int32
	backend.videoProgress = func() (gateway.VideoProgress, error) {
		switch n := polls.Add(1); {
		case n <= 3:
			return gateway.VideoProgress{}, errUnreachable
		case n == 4:
			return gateway.VideoProgress{Status: str("generating"), Percent: num(30)}, nil
		}
		return gateway.VideoProgress{Status: str("done"), Result: str("/static/v.mp4")}, nil
	}
	s := newTestSession(t, backend)

	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, s, "video done", func(s Snapshot) bool { return s.Step(ModeVideo) == StepDoneVideo })
	if alerts := s.Store().Alerts(); len(alerts) != 0 {
		t.Fatalf("transient poll failures leaked as alerts: %+v", alerts)
	}
}

func TestLateResponseAfterResetIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	backend.carouselProgress = func() (gateway.CarouselProgress, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return carouselDone(), nil
	}
	s := newTestSession(t, backend)

	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered
	if err := s.Carousel.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	close(release)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepIdle || snap.Content.Carousel != nil || len(snap.Gallery) != 0 {
		t.Fatalf("late response was applied: step=%s content=%+v", snap.Step(ModeStudio), snap.Content)
	}
	if snap.Job(jobs.KindCarousel).Phase != jobs.PhaseIdle {
		t.Fatalf("reset job should stay idle, got %s", snap.Job(jobs.KindCarousel).Phase)
	}
}

func TestSingleImageBlockingStartReportsProgress(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	backend.startSingle = func(ctx context.Context) (gateway.NewsResponse, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return gateway.NewsResponse{}, ctx.Err()
		}
		return newsOK(), nil
	}
	backend.singleProgress = sequence(
		gateway.ProgressResponse{},
		gateway.ProgressResponse{Progress: num(0.42)},
	)
	s := newTestSession(t, backend)

	done := make(chan error, 1)
	go func() { done <- s.Single.Start(context.Background(), Input{}) }()

	waitFor(t, s, "progress 42", func(s Snapshot) bool { return s.Job(jobs.KindSingleImage).Percent == 42 })
	if step := s.Snapshot().Step(ModeStudio); step != StepGenerating {
		t.Fatalf("step while generating = %s", step)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepReview || snap.Content.Single == nil {
		t.Fatalf("expected review with content, got %s %+v", snap.Step(ModeStudio), snap.Content)
	}
	if snap.Content.Single.ImagePath != "/data/news.png" || snap.Content.Single.Caption != "Gunun haberi" {
		t.Fatalf("unexpected content %+v", snap.Content.Single)
	}
	if len(snap.Gallery) != 1 || snap.Gallery[0].Prompt != "city skyline" {
		t.Fatalf("unexpected gallery %+v", snap.Gallery)
	}
}

func TestSingleImageLaunchClaimsBeforeReturning(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	backend.startSingle = func(ctx context.Context) (gateway.NewsResponse, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return gateway.NewsResponse{}, ctx.Err()
		}
		return newsOK(), nil
	}
	s := newTestSession(t, backend)

	if err := s.Single.Launch(context.Background()); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if step := s.Snapshot().Step(ModeStudio); step != StepGenerating {
		t.Fatalf("step after Launch = %s", step)
	}
	if err := s.Single.Launch(context.Background()); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second Launch should be busy, got %v", err)
	}
	close(release)

	waitFor(t, s, "review", func(s Snapshot) bool { return s.Step(ModeStudio) == StepReview })
	if backend.count("start_single") != 1 {
		t.Fatalf("backend start called %d times", backend.count("start_single"))
	}
}

func TestSingleImageFailureAlerts(t *testing.T) {
	backend := newFakeBackend()
	backend.startSingle = func(context.Context) (gateway.NewsResponse, error) {
		return gateway.NewsResponse{Success: false, Error: "SD kapali"}, nil
	}
	s := newTestSession(t, backend)

	if err := s.Single.Start(context.Background(), Input{}); !errors.Is(err, services.ErrStart) {
		t.Fatalf("expected ErrStart, got %v", err)
	}
	got := alertMessages(s.Store().Alerts())
	if !slices.Equal(got, []string{"Hata: SD kapali"}) {
		t.Fatalf("unexpected alerts %q", got)
	}

	backend.startSingle = func(context.Context) (gateway.NewsResponse, error) {
		return gateway.NewsResponse{}, errUnreachable
	}
	if err := s.Single.Start(context.Background(), Input{}); !errors.Is(err, services.ErrStart) {
		t.Fatalf("expected ErrStart, got %v", err)
	}
	got = alertMessages(s.Store().Alerts())
	if !slices.Equal(got, []string{singleConnectionMessage}) {
		t.Fatalf("unexpected alerts %q", got)
	}
}

func TestFailedRegenerationKeepsPreviousContent(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(t, backend)
	if err := s.Single.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	backend.carouselProgress = sequence(
		gateway.CarouselProgress{Status: str("generating")},
		gateway.CarouselProgress{Status: str("error"), Error: str("boom")},
	)
	if err := s.Carousel.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("carousel Start: %v", err)
	}
	snap := waitFor(t, s, "carousel error", func(s Snapshot) bool { return s.Job(jobs.KindCarousel).Phase == jobs.PhaseError })
	if snap.Step(ModeStudio) != StepReview || snap.Content.Single == nil {
		t.Fatalf("failed carousel should return to the previous review, got %s", snap.Step(ModeStudio))
	}
}

func TestModeEntryResetsFinishedWorkButKeepsRunningJobs(t *testing.T) {
	backend := newFakeBackend()
	backend.videoProgress = sequence(gateway.VideoProgress{Status: str("running"), Percent: num(50)})
	s := newTestSession(t, backend)

	if !s.Modes.RequestModeSwitch(ModeStudio) {
		t.Fatal("switch to studio refused")
	}
	if err := s.Single.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("single Start: %v", err)
	}
	if !s.Modes.RequestModeSwitch(ModeVideo) {
		t.Fatal("switch to video refused")
	}
	if err := s.Video.Start(context.Background(), Input{}); err != nil {
		t.Fatalf("video Start: %v", err)
	}

	s.Modes.RequestModeSwitch(ModeChat)
	s.Modes.RequestModeSwitch(ModeStudio)
	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepIdle || snap.Content.Single != nil {
		t.Fatalf("re-entering studio should reset finished work, got %s", snap.Step(ModeStudio))
	}

	s.Modes.RequestModeSwitch(ModeVideo)
	snap = s.Snapshot()
	if snap.Step(ModeVideo) != StepGeneratingVideo {
		t.Fatalf("running video should survive navigation, got %s", snap.Step(ModeVideo))
	}
	if s.Modes.Mode() != ModeVideo {
		t.Fatalf("mode = %s", s.Modes.Mode())
	}
}

func TestResetModeRefusedDuringSingleGeneration(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	backend.startSingle = func(context.Context) (gateway.NewsResponse, error) {
		<-release
		return newsOK(), nil
	}
	s := newTestSession(t, backend)

	done := make(chan error, 1)
	go func() { done <- s.Single.Start(context.Background(), Input{}) }()
	waitFor(t, s, "generating", func(s Snapshot) bool { return s.Step(ModeStudio) == StepGenerating })

	if err := s.ResetMode(ModeStudio); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.ResetMode(ModeStudio); err != nil {
		t.Fatalf("ResetMode after completion: %v", err)
	}
	snap := s.Snapshot()
	if snap.Step(ModeStudio) != StepIdle || snap.Content.Single != nil {
		t.Fatalf("reset should clear studio, got %s", snap.Step(ModeStudio))
	}
	if len(snap.Gallery) != 1 {
		t.Fatal("reset must not clear the gallery")
	}
}

func TestDriverLookup(t *testing.T) {
	s := newTestSession(t, newFakeBackend())
	for _, kind := range jobs.AllKinds() {
		d, err := s.Driver(kind)
		if err != nil || d.Kind() != kind {
			t.Fatalf("Driver(%s) = %v, %v", kind, d, err)
		}
	}
	if _, err := s.Driver(jobs.Kind("podcast")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
