package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// sweepSender is recorded as sent_by on notices sent by the sweeper.
const sweepSender = "overdue-sweeper"

// OverdueNotifier is the part of service.TrackingService the sweeper drives.
type OverdueNotifier interface {
	NotifyOverdue(ctx context.Context, kind domain.Kind, sentBy string) (*domain.BatchResponse, error)
}

// OverdueSweeper periodically sends overdue notices for every entity kind.
// It is the in-process alternative to calling POST /api/v1/cron/overdue
// from an external scheduler.
type OverdueSweeper struct {
	notifier OverdueNotifier
	kinds    []domain.Kind
	interval time.Duration
	logger   *zap.Logger
}

func NewOverdueSweeper(notifier OverdueNotifier, interval time.Duration, logger *zap.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		notifier: notifier,
		kinds:    domain.Kinds(),
		interval: interval,
		logger:   logger.Named("overdue_sweeper"),
	}
}

// Run sweeps every interval until ctx is cancelled. A sweep in progress when
// ctx ends is abandoned by the dispatcher, which fails its remaining targets.
func (s *OverdueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("overdue sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("overdue sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over all kinds and returns the number of notices sent.
func (s *OverdueSweeper) Sweep(ctx context.Context) int {
	sent := 0
	for _, kind := range s.kinds {
		if ctx.Err() != nil {
			return sent
		}
		resp, err := s.notifier.NotifyOverdue(ctx, kind, sweepSender)
		if err != nil {
			s.logger.Error("overdue sweep error", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		sent += resp.SuccessCount
		if total := resp.SuccessCount + resp.FailedCount; total > 0 {
			s.logger.Info("overdue notices dispatched",
				zap.String("kind", string(kind)),
				zap.Int("sent", resp.SuccessCount),
				zap.Int("failed", resp.FailedCount),
			)
		}
	}
	return sent
}
