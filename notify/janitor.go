package notify

import (
	"context"
	"time"

	"github.com/mbolis/quick-feedback/log"
	"github.com/mbolis/quick-feedback/metrics"
)

// Expirer deletes the records that expired at or before now.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically removes expired records: notifications past their TTL
// and refresh tokens that can no longer be redeemed.
type Janitor struct {
	targets  map[string]Expirer
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(interval time.Duration, now func() time.Time, targets map[string]Expirer) *Janitor {
	if now == nil {
		now = time.Now
	}
	return &Janitor{targets: targets, interval: interval, now: now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	log.Infof("janitor: sweeping every %s", j.interval)
	j.Sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor: stopped")
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over every target. A failing target does not stop the others.
func (j *Janitor) Sweep(ctx context.Context) map[string]int64 {
	now := j.now()
	deleted := make(map[string]int64, len(j.targets))
	for kind, target := range j.targets {
		n, err := target.DeleteExpired(ctx, now)
		if err != nil {
			log.Errorf("janitor.%s: %s", kind, err)
			continue
		}
		deleted[kind] = n
		if n > 0 {
			metrics.SweptRecords.WithLabelValues(kind).Add(float64(n))
			log.Debugf("janitor.%s: deleted %d expired records", kind, n)
		}
	}
	return deleted
}
