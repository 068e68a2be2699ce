package workflow

import (
	"context"
	"time"

	"atlas/internal/jobs"
)

// VideoDriver generates a news video in the background.
type VideoDriver struct {
	deps
	interval time.Duration
}

func (d *VideoDriver) Kind() jobs.Kind { return jobs.KindVideo }

// Start asks the backend to begin a video and follows its status feed.
func (d *VideoDriver) Start(ctx context.Context, _ Input) error {
	return d.runAsync(ctx, asyncJob{
		kind:     jobs.KindVideo,
		label:    "Haber videosu hazırlanıyor...",
		percent:  2,
		interval: d.interval,
		start:    d.backend.StartVideo,
		fetch: func(ctx context.Context) (jobs.Update, error) {
			p, err := d.backend.VideoProgress(ctx)
			if err != nil {
				return jobs.Update{}, err
			}
			return videoUpdate(p), nil
		},
		rejected: func(reason string) string {
			return "Hata: " + reason
		},
		awaitActive: true,
	})
}

// Reset abandons any running video and clears the result.
func (d *VideoDriver) Reset() error {
	return d.resetKind(jobs.KindVideo)
}
