package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepairer struct {
	calls   atomic.Int32
	actor   atomic.Value
	release chan struct{}
	err     error
}

func (f *fakeRepairer) RepairFlorists(ctx context.Context, actor models.Actor) (*order.SweepResult, error) {
	f.calls.Add(1)
	f.actor.Store(actor)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &order.SweepResult{Scanned: 2, Updated: 1, Skipped: 1, Errors: []order.SweepError{}}, nil
}

func TestFloristSweepJob_RunOnceUsesSystemActor(t *testing.T) {
	repairer := &fakeRepairer{}
	job := NewFloristSweepJob(repairer, "@every 1h", zap.NewNop())

	assert.True(t, job.RunOnce(context.Background()))
	assert.Equal(t, int32(1), repairer.calls.Load())
	assert.Equal(t, models.SystemActor(), repairer.actor.Load())
}

func TestFloristSweepJob_RunOnceSurvivesErrors(t *testing.T) {
	repairer := &fakeRepairer{err: errors.New("mongo unavailable")}
	job := NewFloristSweepJob(repairer, "@every 1h", zap.NewNop())

	assert.True(t, job.RunOnce(context.Background()))
	assert.True(t, job.RunOnce(context.Background()))
	assert.Equal(t, int32(2), repairer.calls.Load())
}

func TestFloristSweepJob_SkipsOverlappingRuns(t *testing.T) {
	repairer := &fakeRepairer{release: make(chan struct{})}
	job := NewFloristSweepJob(repairer, "@every 1h", zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool { return repairer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, job.RunOnce(context.Background()))

	close(repairer.release)
	wg.Wait()
	assert.Equal(t, int32(1), repairer.calls.Load())
}

func TestFloristSweepJob_StartRejectsBadSchedule(t *testing.T) {
	job := NewFloristSweepJob(&fakeRepairer{}, "every now and then", zap.NewNop())
	assert.Error(t, job.Start())
}

func TestFloristSweepJob_StartStop(t *testing.T) {
	job := NewFloristSweepJob(&fakeRepairer{}, "@every 1h", zap.NewNop())
	require.NoError(t, job.Start())
	job.Stop()
}
