package workflow

import (
	"context"
	"math"
	"time"

	"atlas/internal/jobs"
	"atlas/internal/logging"
	"atlas/internal/services"
)

const (
	singleLabel             = "Günlük içerik hazırlanıyor..."
	singleConnectionMessage = "Bağlantı hatası: Stabil Diffusion veya Backend açık mı?"
)

// SingleImageDriver generates the daily single-image post. The backend
// answers the start call only when the content is ready, so Start blocks;
// a separate percent-only feed drives the progress bar meanwhile.
type SingleImageDriver struct {
	deps
	interval time.Duration
}

func (d *SingleImageDriver) Kind() jobs.Kind { return jobs.KindSingleImage }

// Start runs one generation to completion.
func (d *SingleImageDriver) Start(ctx context.Context, _ Input) error {
	jobID, err := d.claim()
	if err != nil {
		return err
	}
	return d.run(ctx, jobID)
}

// Launch claims the studio before returning and finishes the generation on
// the session's background group. A refused claim is returned as ErrBusy.
func (d *SingleImageDriver) Launch(ctx context.Context) error {
	jobID, err := d.claim()
	if err != nil {
		return err
	}
	requestID, _ := services.RequestIDFromContext(ctx)
	d.bg.Go(func(bgctx context.Context) {
		if requestID != "" {
			bgctx = services.WithRequestID(bgctx, requestID)
		}
		if err := d.run(bgctx, jobID); err != nil {
			logging.WithContext(bgctx, d.logger).Debug("single image generation ended with error",
				logging.Error(err),
				logging.JobKind(jobs.KindSingleImage),
				logging.JobID(jobID),
			)
		}
	})
	return nil
}

func (d *SingleImageDriver) claim() (string, error) {
	jobID, err := d.store.beginJob(jobs.KindSingleImage, singleLabel, 0, nil)
	if err != nil {
		return "", err
	}
	d.store.markAccepted(jobs.KindSingleImage, jobID)
	return jobID, nil
}

func (d *SingleImageDriver) run(ctx context.Context, jobID string) error {
	ctx = services.WithJobKind(ctx, string(jobs.KindSingleImage))
	logger := logging.WithContext(ctx, d.logger).With(logging.JobID(jobID))

	d.poller.Start(jobs.Target{
		Kind:     jobs.KindSingleImage,
		Interval: d.interval,
		Fetch: func(ctx context.Context) (jobs.Update, error) {
			p, err := d.backend.SingleProgress(ctx)
			if err != nil {
				return jobs.Update{}, err
			}
			if p.Progress == nil || *p.Progress <= 0 {
				return jobs.Update{}, nil
			}
			return jobs.Update{Percent: jobs.Ptr(math.Round(*p.Progress * 100))}, nil
		},
		Apply: func(u jobs.Update) bool {
			if u.Percent == nil {
				return false
			}
			return d.store.applyProgress(jobID, *u.Percent)
		},
	})
	defer d.poller.Stop(jobs.KindSingleImage)

	logger.Info("job started", logging.Event("job_started"))
	res, err := d.backend.StartSingle(ctx)
	if err != nil {
		d.store.startFailed(jobs.KindSingleImage, jobID, singleConnectionMessage)
		logging.WarnWithContext(logger, "single image generation failed", "job_start_failed",
			logging.Error(err),
			logging.Hint("check that Stable Diffusion and the backend are running"),
		)
		return services.Wrap(services.ErrStart, "workflow", "start single_image", "backend unreachable", err)
	}
	if !res.Success {
		reason := res.Error
		d.store.startFailed(jobs.KindSingleImage, jobID, "Hata: "+reason)
		logging.WarnWithContext(logger, "single image generation rejected", "job_start_rejected",
			logging.String("reason", reason),
			logging.Hint("inspect the backend response and retry"),
		)
		return services.Wrap(services.ErrStart, "workflow", "start single_image", orUnknown(reason), nil)
	}

	d.store.applyJob(jobs.KindSingleImage, jobID, jobs.Update{
		Phase:  jobs.Ptr(jobs.PhaseDone),
		Result: singleResult(res),
	})
	return nil
}

// Reset discards the generated post.
func (d *SingleImageDriver) Reset() error {
	return d.resetKind(jobs.KindSingleImage)
}
