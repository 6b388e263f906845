// Package jobs runs scheduled maintenance against the order store.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/order"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// FloristRepairer backfills missing florist references.
type FloristRepairer interface {
	RepairFlorists(ctx context.Context, actor models.Actor) (*order.SweepResult, error)
}

// FloristSweepJob periodically repairs orders created without a fulfilling shop.
// Runs are serialized; a tick that fires while a sweep is still running is skipped.
type FloristSweepJob struct {
	repairer FloristRepairer
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewFloristSweepJob(repairer FloristRepairer, schedule string, logger *zap.Logger) *FloristSweepJob {
	return &FloristSweepJob{
		repairer: repairer,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.Named("florist-sweep"),
	}
}

// Start schedules the sweep. The schedule accepts standard cron specs and descriptors
// such as "@every 1h".
func (j *FloristSweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("Florist sweep job started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *FloristSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Florist sweep job stopped")
}

// RunOnce performs a single sweep as the system actor. It reports false when another
// sweep was already in progress.
func (j *FloristSweepJob) RunOnce(ctx context.Context) bool {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.logger.Debug("Florist sweep still running, skipping tick")
		return false
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := j.repairer.RepairFlorists(ctx, models.SystemActor())
	if err != nil {
		j.logger.Error("Florist sweep failed", zap.Error(err))
		return true
	}

	fields := []zap.Field{
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", time.Since(start)),
	}
	if len(result.Errors) > 0 {
		j.logger.Warn("Florist sweep finished with errors", fields...)
		return true
	}
	j.logger.Info("Florist sweep finished", fields...)
	return true
}
