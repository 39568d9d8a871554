// Package scrape contains the retailer catalog fetchers. Each scraper
// talks to one retailer surface and returns flattened product records;
// persistence and export are the caller's concern.
package scrape

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/jdboer/grocery-cli/internal/model"
)

// Scraper fetches one retailer's catalog or offer listing.
type Scraper interface {
	Scrape(ctx context.Context) ([]model.ProductRecord, error)
	Name() string
}

// pacer enforces a base cadence between requests via a rate limiter and
// adds a random jitter on top so page fetches do not arrive at a fixed
// interval.
type pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
	rng     *rand.Rand
}

func newPacer(min, max time.Duration) *pacer {
	if max < min {
		max = min
	}
	limiter := rate.NewLimiter(rate.Every(min), 1)
	// Drain the initial burst token so the first wait also paces.
	limiter.AllowN(time.Now(), 1)
	return &pacer{
		limiter: limiter,
		jitter:  max - min,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// wait blocks for the limiter cadence plus jitter, or until the context
// is canceled.
func (p *pacer) wait(ctx context.Context) error {
	r := p.limiter.Reserve()
	d := r.Delay()
	if p.jitter > 0 {
		d += time.Duration(p.rng.Int63n(int64(p.jitter)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
