package tick

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner drives a named batch job on a fixed period. Cadence and
// overlap policy are explicit: a tick that is still running when the
// next one fires causes the new tick to be skipped, never stacked.
type Runner struct {
	name    string
	period  time.Duration
	fn      func(ctx context.Context)
	running int32
}

func NewRunner(name string, period time.Duration, fn func(ctx context.Context)) *Runner {
	return &Runner{name: name, period: period, fn: fn}
}

// Start launches the tick loop in a goroutine. The loop stops when ctx
// is cancelled. The first tick fires after one full period.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.period)
		defer ticker.Stop()
		logrus.Infof("[TICK] %s runner started (period %s)", r.name, r.period)
		for {
			select {
			case <-ctx.Done():
				logrus.Infof("[TICK] %s runner stopped", r.name)
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes one tick if no previous tick is still in flight.
// Returns false when the tick was skipped. A panic inside the tick is
// recovered and logged; the next scheduled tick runs normally.
func (r *Runner) RunOnce(ctx context.Context) bool {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		logrus.Warnf("[TICK] %s tick still running, skipping", r.name)
		return false
	}
	defer atomic.StoreInt32(&r.running, 0)
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("[TICK] %s tick panicked: %v", r.name, rec)
		}
	}()

	r.fn(ctx)
	return true
}
