package workflow

import (
	"context"
	"time"

	"atlas/internal/jobs"
)

// CarouselDriver generates a multi-slide carousel in the background.
type CarouselDriver struct {
	deps
	interval time.Duration
}

func (d *CarouselDriver) Kind() jobs.Kind { return jobs.KindCarousel }

// Start asks the backend to begin a carousel and follows its status feed.
func (d *CarouselDriver) Start(ctx context.Context, _ Input) error {
	return d.runAsync(ctx, asyncJob{
		kind:     jobs.KindCarousel,
		label:    "Carousel hazırlanıyor...",
		interval: d.interval,
		start:    d.backend.StartCarousel,
		fetch: func(ctx context.Context) (jobs.Update, error) {
			p, err := d.backend.CarouselProgress(ctx)
			if err != nil {
				return jobs.Update{}, err
			}
			return carouselUpdate(p), nil
		},
		rejected: func(reason string) string {
			return "Islem baslatilamadi: " + orUnknown(reason)
		},
		awaitActive: true,
	})
}

// Reset abandons any running carousel and clears the result.
func (d *CarouselDriver) Reset() error {
	return d.resetKind(jobs.KindCarousel)
}
