package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/openhouse/marketing-stats/domain"
	"github.com/openhouse/marketing-stats/internal/metrics"
)

type countingAggregator struct {
	runs    atomic.Int32
	trigger atomic.Value
}

func (c *countingAggregator) Run(_ context.Context, trigger string) (domain.PlatformStats, error) {
	c.runs.Add(1)
	c.trigger.Store(trigger)
	return domain.PlatformStats{}, nil
}

func TestTickRunsAggregatorAsCron(t *testing.T) {
	agg := &countingAggregator{}
	s := NewAggregationScheduler(agg, time.Minute, nil)

	s.tick()

	assert.Equal(t, int32(1), agg.runs.Load())
	assert.Equal(t, metrics.TriggerCron, agg.trigger.Load())
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	s := NewAggregationScheduler(&countingAggregator{}, 0, nil)

	assert.Equal(t, 10*time.Minute, s.interval)
}

func TestSchedulerStartStopDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewAggregationScheduler(&countingAggregator{}, time.Hour, nil)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
