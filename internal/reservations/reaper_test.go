package reservations

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sweepCountingService struct {
	Service
	sweeps int32
}

func (s *sweepCountingService) ExpireStale(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.sweeps, 1)
	return 0, nil
}

func TestReaperSweepsOnInterval(t *testing.T) {
	stub := &sweepCountingService{}
	reaper := NewReaper(stub, &ReaperConfig{Interval: 10 * time.Millisecond})

	reaper.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	reaper.Stop()
	time.Sleep(15 * time.Millisecond)

	swept := atomic.LoadInt32(&stub.sweeps)
	assert.GreaterOrEqual(t, swept, int32(2), "reaper should have swept repeatedly")

	// No sweeps after Stop
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, swept, atomic.LoadInt32(&stub.sweeps))
}

func TestReaperStopsOnContextCancel(t *testing.T) {
	stub := &sweepCountingService{}
	reaper := NewReaper(stub, &ReaperConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	reaper.Start(ctx)
	time.Sleep(25 * time.Millisecond)
	cancel()
	time.Sleep(15 * time.Millisecond)

	swept := atomic.LoadInt32(&stub.sweeps)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, swept, atomic.LoadInt32(&stub.sweeps))
}

func TestDefaultReaperConfig(t *testing.T) {
	reaper := NewReaper(&sweepCountingService{}, nil)
	assert.Equal(t, 1*time.Minute, reaper.config.Interval)
}
