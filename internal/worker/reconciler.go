// Package worker runs the periodic cycle reconciliation sweep.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// LockKey guards the sweep across replicas.
const LockKey = "reconcile-cycles"

// Sweeper is the part of the billing service the worker drives.
type Sweeper interface {
	ReconcileCycles(ctx context.Context, now time.Time) (*service.ReconcileReport, error)
}

// Reconciler runs the sweep at startup and then every interval. Only the
// replica holding the lock sweeps; the others skip that tick.
type Reconciler struct {
	sweeper  Sweeper
	locker   lock.Locker
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewReconciler(sweeper Sweeper, locker lock.Locker, interval, lockTTL time.Duration, log zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Reconciler{
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		now:      time.Now,
		log:      log.With().Str("component", "reconciler").Logger(),
	}
}

// Run blocks until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("reconciler started")
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciler stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	report, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		r.log.Error().Err(err).Msg("reconcile sweep failed")
	case report == nil:
		r.log.Debug().Msg("reconcile sweep skipped, lock held elsewhere")
	}
}

// RunOnce performs one sweep under the lock. It returns a nil report without
// error when another holder has the lock.
func (r *Reconciler) RunOnce(ctx context.Context) (*service.ReconcileReport, error) {
	lease, ok, err := r.locker.TryAcquire(ctx, LockKey, r.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn().Err(err).Msg("release reconcile lock")
		}
	}()
	return r.sweeper.ReconcileCycles(ctx, r.now())
}
