package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/service"
)

// StartTokenEventWorker registers token event handlers.
func StartTokenEventWorker(eventService *service.TokenEventService) {
	if eventService == nil {
		return
	}
	eventService.RegisterHandlers()
}

// Sweeper removes expired reference tokens.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// StartSweeper runs sweeper every interval until ctx is cancelled. The returned channel
// closes once the loop has exited. A non-positive interval disables sweeping.
func StartSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sweeper.SweepExpired(ctx)
				if err != nil {
					logger.Warn("token sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Info("expired tokens swept", zap.Int("count", removed))
				}
			}
		}
	}()
	return done
}
