package cron

import (
	"context"
	"fmt"

	"github.com/Dias221467/Walk_Companion/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartWalkCronJobs schedules the stale request sweep and starts the cron
// runner. Stop the returned *cron.Cron on shutdown.
func StartWalkCronJobs(sweeper *jobs.StaleRequestSweeper, schedule string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		if err := sweeper.RunSweep(context.Background()); err != nil {
			logrus.WithError(err).Error("RunSweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}
