package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Expirer cancels Active walk requests whose walk time has passed.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time, grace time.Duration) (int, error)
}

type StaleRequestSweeper struct {
	WalkService Expirer
	Grace       time.Duration
	Now         func() time.Time
}

// NewStaleRequestSweeper creates a new instance of StaleRequestSweeper
func NewStaleRequestSweeper(walkService Expirer, grace time.Duration) *StaleRequestSweeper {
	return &StaleRequestSweeper{
		WalkService: walkService,
		Grace:       grace,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// RunSweep expires requests scheduled more than Grace ago that nobody accepted
func (s *StaleRequestSweeper) RunSweep(ctx context.Context) error {
	n, err := s.WalkService.ExpireStale(ctx, s.Now(), s.Grace)
	if err != nil {
		return fmt.Errorf("failed to expire stale walk requests: %w", err)
	}

	logrus.WithField("expired", n).Info("Stale walk request sweep completed")
	return nil
}
