package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/bloomcart/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (s *memorySink) Write(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) snapshot() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditEntry(nil), s.entries...)
}

func TestRecorder_WritesEntriesInOrder(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, zap.NewNop())

	for _, action := range []string{"create_order", "add_item", "update_status"} {
		r.Record(context.Background(), models.AuditEntry{Action: action, EntityID: "o1"})
	}

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
	require.NoError(t, r.Close())

	entries := sink.snapshot()
	assert.Equal(t, "create_order", entries[0].Action)
	assert.Equal(t, "add_item", entries[1].Action)
	assert.Equal(t, "update_status", entries[2].Action)
}

func TestRecorder_SinkErrorsDoNotStopWriter(t *testing.T) {
	sink := &memorySink{err: errors.New("db down")}
	r := NewRecorder(sink, zap.NewNop())

	r.Record(context.Background(), models.AuditEntry{Action: "delete_order", EntityID: "o1"})
	time.Sleep(50 * time.Millisecond)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	r.Record(context.Background(), models.AuditEntry{Action: "create_order", EntityID: "o2"})
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "o2", sink.snapshot()[0].EntityID)
	require.NoError(t, r.Close())
}

func TestRecorder_CloseIsIdempotentAndDropsLateEntries(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, zap.NewNop())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	r.Record(context.Background(), models.AuditEntry{Action: "create_order"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

func TestLogSink_Write(t *testing.T) {
	err := NewLogSink(zap.NewNop()).Write(context.Background(), models.AuditEntry{
		Action: "create_order", Data: map[string]any{"total": 10.0},
	})
	assert.NoError(t, err)
}
