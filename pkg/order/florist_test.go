package order

import (
	"context"
	"errors"
	"testing"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// racingStore simulates another writer filling the florist between the scan and the
// conditional update.
type racingStore struct {
	*repository.MemoryStore
	lost map[string]bool
}

func (s *racingStore) FillFlorist(ctx context.Context, id, floristID string) (bool, error) {
	if s.lost[id] {
		if _, err := s.MemoryStore.SetFlorist(ctx, id, "someone-else"); err != nil {
			return false, err
		}
	}
	return s.MemoryStore.FillFlorist(ctx, id, floristID)
}

func seedOrder(t *testing.T, store Store, id, floristID, flowerID string) {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), &models.Order{
		ID:         id,
		UserID:     "u1",
		FloristID:  floristID,
		Status:     models.StatusPending,
		City:       "X",
		Items:      []models.LineItem{{FlowerID: flowerID, Quantity: 1, Price: 2}},
		TotalPrice: 2,
	}))
}

func TestRepairFlorists(t *testing.T) {
	store := &racingStore{MemoryStore: repository.NewMemoryStore(), lost: map[string]bool{"o-lost": true}}
	catalog := newStubCatalog()
	catalog.errs["boom"] = errors.New("catalog timeout")
	audit := &recordingAuditor{}
	svc := NewService(store, catalog, zap.NewNop(), WithAuditor(audit))

	seedOrder(t, store, "o-resolve", "", "f1")
	seedOrder(t, store, "o-unknown", "", "ghost")
	seedOrder(t, store, "o-bare", "", "bare")
	seedOrder(t, store, "o-broken", "", "boom")
	seedOrder(t, store, "o-lost", "", "f2")
	seedOrder(t, store, "o-has", "shop-2", "f1")

	missing, err := svc.MissingFlorist(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, missing, 5)

	res, err := svc.RepairFlorists(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Scanned)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "o-broken", res.Errors[0].OrderID)
	assert.Contains(t, res.Errors[0].Error, "catalog timeout")

	resolved, err := store.FindByID(context.Background(), "o-resolve")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", resolved.FloristID)

	lost, err := store.FindByID(context.Background(), "o-lost")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", lost.FloristID, "a concurrent assignment is never overwritten")

	kept, err := store.FindByID(context.Background(), "o-has")
	require.NoError(t, err)
	assert.Equal(t, "shop-2", kept.FloristID)

	assert.Equal(t, []string{"backfill_florist"}, audit.actions())

	again, err := svc.RepairFlorists(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Scanned)
	assert.Zero(t, again.Updated)
}

func TestRepairFlorists_NothingToDo(t *testing.T) {
	f := newFixture(t)
	f.create(t, customer, basicInput())

	res, err := f.svc.RepairFlorists(context.Background(), admin)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestRepairFlorists_AdminOnly(t *testing.T) {
	f := newFixture(t)
	for _, actor := range []models.Actor{customer, shop, courier} {
		_, err := f.svc.RepairFlorists(context.Background(), actor)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		_, err = f.svc.MissingFlorist(context.Background(), actor)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	}
}

func TestRepairFlorists_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	seedOrder(t, f.store, "o-1", "", "f1")
	seedOrder(t, f.store, "o-2", "", "f2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.RepairFlorists(ctx, admin)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Scanned)
	assert.Zero(t, res.Updated)
}

func TestResolutionOutcomeString(t *testing.T) {
	assert.Equal(t, "resolved", ResolutionResolved.String())
	assert.Equal(t, "skipped", ResolutionSkipped.String())
	assert.Equal(t, "failed", ResolutionFailed.String())
}
