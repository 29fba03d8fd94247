package service

import (
	"context"
	"time"
)

// SweepResult counts the records removed by one sweep.
type SweepResult struct {
	Codes    int
	Sessions int
}

// SweepExpired removes expired codes and sessions as of now.
// Exported for testability; the background loop passes wall-clock time.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	codes, err := s.codes.DeleteExpired(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}
	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return SweepResult{Codes: codes}, err
	}
	s.metrics.AddSwept("codes", codes)
	s.metrics.AddSwept("sessions", sessions)
	return SweepResult{Codes: codes, Sessions: sessions}, nil
}

// StartSweeper runs SweepExpired every interval until ctx is cancelled.
// Sweep failures are logged and retried on the next tick.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.SweepExpired(ctx, time.Now())
			if err != nil {
				s.logger.ErrorContext(ctx, "expire sweep failed", "error", err)
				continue
			}
			if res.Codes > 0 || res.Sessions > 0 {
				s.logger.DebugContext(ctx, "expired records swept",
					"codes", res.Codes,
					"sessions", res.Sessions,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
