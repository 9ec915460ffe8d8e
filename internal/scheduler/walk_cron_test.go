package cron

import (
	"testing"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWalkCronJobs(t *testing.T) {
	sweeper := jobs.NewStaleRequestSweeper(nil, time.Hour)

	c, err := StartWalkCronJobs(sweeper, "@hourly")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()

	_, err = StartWalkCronJobs(sweeper, "not a schedule")
	assert.Error(t, err)
}
