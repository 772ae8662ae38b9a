package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reapTimeout = 30 * time.Second

// HoldReaper deletes every hold whose expiry has passed.
type HoldReaper interface {
	ReapExpiredHolds(ctx context.Context) (int64, error)
}

// Reaper sweeps lapsed holds on a cron schedule. Backends with native expiry
// (the Mongo TTL index, Redis key expiry) make it a safety net; for the
// in-memory store it is the only thing that removes them.
type Reaper struct {
	cron   *robfig.Cron
	svc    HoldReaper
	logger *zap.Logger
}

// NewReaper parses schedule ("@every 1m", "*/5 * * * *", ...) and registers
// the sweep. A sweep that is still running when the next one is due is skipped.
func NewReaper(svc HoldReaper, schedule string, logger *zap.Logger) (*Reaper, error) {
	c := robfig.New(robfig.WithChain(robfig.SkipIfStillRunning(robfig.DiscardLogger)))
	r := &Reaper{cron: c, svc: svc, logger: logger}
	if _, err := c.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid reaper schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Reaper) Start() {
	r.logger.Info("[Reaper] starting expired hold sweep")
	r.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce performs a single sweep.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, reapTimeout)
	defer cancel()

	n, err := r.svc.ReapExpiredHolds(ctx)
	if err != nil {
		r.logger.Warn("[Reaper] sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		r.logger.Info("[Reaper] removed expired holds", zap.Int64("count", n))
	}
	return n, nil
}
