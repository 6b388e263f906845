package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/bloomcart/pkg/models"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// record is the message the writer actor consumes.
type record struct {
	entry models.AuditEntry
}

// writerActor drains entries into the sink one at a time, in arrival order.
type writerActor struct {
	sink   Sink
	logger *zap.Logger
}

func (a *writerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *record:
		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := a.sink.Write(writeCtx, msg.entry); err != nil {
			a.logger.Error("Failed to write audit entry",
				zap.String("action", msg.entry.Action),
				zap.String("entity_id", msg.entry.EntityID),
				zap.Error(err))
		}

	case *actor.Started:
		a.logger.Debug("Audit writer started")

	case *actor.Stopped:
		a.logger.Debug("Audit writer stopped")
	}
}

// Recorder hands audit entries to a writer actor so request handlers never wait on
// the sink.
type Recorder struct {
	system *actor.ActorSystem
	pid    *actor.PID
	closed atomic.Bool
	logger *zap.Logger
}

func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return &writerActor{sink: sink, logger: logger.Named("audit-writer")}
	})
	return &Recorder{
		system: system,
		pid:    system.Root.Spawn(props),
		logger: logger,
	}
}

func (r *Recorder) Record(_ context.Context, entry models.AuditEntry) {
	if r.closed.Load() {
		r.logger.Warn("Audit entry dropped after shutdown",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID))
		return
	}
	r.system.Root.Send(r.pid, &record{entry: entry})
}

// Close stops the writer after it has drained entries already queued.
func (r *Recorder) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.system.Root.PoisonFuture(r.pid).Wait()
}
