package workflow

import (
	"context"
	"log/slog"
	"strings"

	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

const (
	publishSingleOK    = "Basariyla Instagram'a yuklendi!"
	publishCarouselOK  = "Carousel basariyla Instagram'a yuklendi!"
	publishFailPrefix  = "Yukleme Hatasi:\n"
	publishUnreachable = "Yukleme sirasinda hata olustu."
)

// Publisher uploads the generated Studio content to Instagram.
type Publisher struct {
	store   *Store
	backend Backend
	logger  *slog.Logger
}

type publishPlan struct {
	kind     jobs.Kind
	path     string
	paths    []string
	caption  string
	fallback Step
	success  Step
}

// Publish uploads whichever content variant is on screen. A rejected upload
// returns an ErrPublish error carrying the remediation hint, if any.
func (p *Publisher) Publish(ctx context.Context) error {
	plan, err := p.claim()
	if err != nil {
		return err
	}
	logger := p.logger.With(logging.JobKind(plan.kind))

	var (
		ok      bool
		message string
		callErr error
	)
	if plan.kind == jobs.KindCarousel {
		res, err := p.backend.UploadCarousel(ctx, plan.paths, plan.caption)
		ok, message, callErr = res.Success, res.Message, err
	} else {
		res, err := p.backend.UploadSingle(ctx, plan.path, plan.caption)
		ok, message, callErr = res.Success, res.Message, err
	}

	if callErr != nil {
		p.finish(plan, plan.fallback, AlertError, publishUnreachable)
		logging.WarnWithContext(logger, "upload failed", "publish_failed",
			logging.Error(callErr),
			logging.Hint("check that the backend is running"),
		)
		return services.Wrap(services.ErrPublish, "workflow", "publish", "upload request failed", callErr)
	}
	if !ok {
		p.finish(plan, plan.fallback, AlertError, publishFailPrefix+FormatUploadError(message))
		hint := strings.Join(UploadHint(message), "\n")
		logging.WarnWithContext(logger, "upload rejected", "publish_rejected",
			logging.String("reason", message),
			logging.Hint(firstNonEmpty(hint, "inspect the backend message")),
		)
		return services.WithHint(services.Wrap(services.ErrPublish, "workflow", "publish", message, nil), hint)
	}

	okMessage := publishSingleOK
	if plan.kind == jobs.KindCarousel {
		okMessage = publishCarouselOK
	}
	p.finish(plan, plan.success, AlertInfo, okMessage)
	logger.Info("content published", logging.Event("published"))
	return nil
}

// claim validates the Studio step and moves it to the uploading step.
func (p *Publisher) claim() (publishPlan, error) {
	var (
		plan publishPlan
		err  error
	)
	p.store.update(func() {
		content := p.store.st.content
		switch step := p.store.st.steps[ModeStudio]; {
		case step == StepDoneCarousel && content.Carousel != nil:
			ks := kindTable[jobs.KindCarousel]
			plan = publishPlan{
				kind:     jobs.KindCarousel,
				paths:    content.Carousel.Paths(),
				caption:  content.Carousel.Caption,
				fallback: ks.result,
				success:  ks.uploaded,
			}
			p.store.moveLocked(ModeStudio, ks.uploading)
		case step == StepReview && content.Single != nil && content.Single.ImagePath != "":
			ks := kindTable[jobs.KindSingleImage]
			plan = publishPlan{
				kind:     jobs.KindSingleImage,
				path:     content.Single.ImagePath,
				caption:  content.Single.Caption,
				fallback: ks.result,
				success:  ks.uploaded,
			}
			p.store.moveLocked(ModeStudio, ks.uploading)
		case step == StepUploading || step == StepUploadingCarousel:
			err = services.Wrap(services.ErrBusy, "workflow", "publish", "upload already in progress", nil)
		default:
			err = services.Wrap(services.ErrValidation, "workflow", "publish", "no generated content to publish", nil)
		}
	})
	return plan, err
}

func (p *Publisher) finish(plan publishPlan, step Step, level AlertLevel, message string) {
	p.store.update(func() {
		p.store.moveLocked(ModeStudio, step)
		p.store.pushAlertLocked(level, "publish", plan.kind, message)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
