// Package worker содержит фоновые задачи сервиса.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/coffee-club/internal/infra/metrics"
)

const resetLockKey = "coffee:reset:lock"

// Результаты тика для метки result.
const (
	RunOK      = "ok"
	RunSkipped = "skipped"
	RunError   = "error"
)

type Resetter interface {
	ResetDailyDrinks(ctx context.Context) (int64, error)
}

// Locker: блокировка между репликами. Без неё (nil) сброс идёт на каждой реплике.
type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

type Reset struct {
	resetter Resetter
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	log      *slog.Logger
}

func NewReset(r Resetter, locker Locker, interval, lockTTL time.Duration, log *slog.Logger) *Reset {
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Reset{resetter: r, locker: locker, interval: interval, lockTTL: lockTTL, log: log}
}

// Start выполняет сброс сразу и затем по тикеру, пока жив ctx.
func (w *Reset) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("reset worker started", "interval", w.interval)

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("reset worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Reset) tick(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.log.Error("reset tick failed", "err", err)
	}
}

// RunOnce: один проход. Если блокировку держит другая реплика,
// возвращает 0 без ошибки.
func (w *Reset) RunOnce(ctx context.Context) (int64, error) {
	if w.locker != nil {
		token := uuid.NewString()
		ok, err := w.locker.Acquire(ctx, resetLockKey, token, w.lockTTL)
		if err != nil {
			metrics.ResetRuns.WithLabelValues(RunError).Inc()
			return 0, err
		}
		if !ok {
			metrics.ResetRuns.WithLabelValues(RunSkipped).Inc()
			w.log.Debug("reset skipped, lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := w.locker.Release(context.WithoutCancel(ctx), resetLockKey, token); err != nil {
				w.log.Warn("reset lock release failed", "err", err)
			}
		}()
	}

	n, err := w.resetter.ResetDailyDrinks(ctx)
	if err != nil {
		metrics.ResetRuns.WithLabelValues(RunError).Inc()
		return 0, err
	}
	metrics.ResetRuns.WithLabelValues(RunOK).Inc()
	return n, nil
}
