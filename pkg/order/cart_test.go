package order

import (
	"context"
	"testing"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertTotalInSync(t *testing.T, o *models.Order) {
	t.Helper()
	assert.InDelta(t, o.ItemsTotal(), o.TotalPrice, 1e-9)
}

func TestCart_AddAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, customer, basicInput())
	require.InDelta(t, 20.0, o.TotalPrice, 1e-9)

	o, err := f.svc.AddItem(ctx, customer, o.ID, models.LineItem{FlowerID: "f2", Quantity: 1, Price: 5})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, o.TotalPrice, 1e-9)
	assert.Len(t, o.Items, 2)
	assertTotalInSync(t, o)

	res, err := f.svc.RemoveItem(ctx, customer, o.ID, "f1")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, res.Removed, 1e-9)
	assert.InDelta(t, 5.0, res.Order.TotalPrice, 1e-9)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, "f2", res.Order.Items[0].FlowerID)
	assertTotalInSync(t, res.Order)

	assert.Equal(t, []string{"create_order", "add_item", "remove_item"}, f.audit.actions())
}

func TestCart_RemoveTenUnitLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, customer, basicInput(
		models.LineItem{FlowerID: "f1", Quantity: 1, Price: 10},
		models.LineItem{FlowerID: "f2", Quantity: 3, Price: 5},
	))
	require.InDelta(t, 25.0, o.TotalPrice, 1e-9)

	res, err := f.svc.RemoveItem(ctx, customer, o.ID, "f1")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.Removed, 1e-9)
	assert.InDelta(t, 15.0, res.Order.TotalPrice, 1e-9)
}

func TestCart_RemoveDuplicates(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, customer, basicInput(
		models.LineItem{FlowerID: "f1", Quantity: 1, Price: 4},
		models.LineItem{FlowerID: "f2", Quantity: 1, Price: 6},
		models.LineItem{FlowerID: "f1", Quantity: 2, Price: 4},
	))

	res, err := f.svc.RemoveItem(context.Background(), customer, o.ID, "f1")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, res.Removed, 1e-9)
	assert.Equal(t, []models.LineItem{{FlowerID: "f2", Quantity: 1, Price: 6}}, res.Order.Items)
	assertTotalInSync(t, res.Order)
}

func TestCart_UpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, customer, basicInput(
		models.LineItem{FlowerID: "f1", Quantity: 2, Price: 10},
		models.LineItem{FlowerID: "f2", Quantity: 1, Price: 5},
		models.LineItem{FlowerID: "f1", Quantity: 1, Price: 10},
	))

	o, err := f.svc.UpdateItem(ctx, customer, o.ID, "f1", models.ItemPatch{Quantity: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, o.Items[0].Quantity)
	assert.Equal(t, 1, o.Items[2].Quantity, "only the first match changes")
	assert.InDelta(t, 55.0, o.TotalPrice, 1e-9)
	assertTotalInSync(t, o)

	o, err = f.svc.UpdateItem(ctx, customer, o.ID, "f2", models.ItemPatch{Price: ptr(2.5)})
	require.NoError(t, err)
	assert.InDelta(t, 52.5, o.TotalPrice, 1e-9)
	assertTotalInSync(t, o)

	_, err = f.svc.UpdateItem(ctx, customer, o.ID, "f9", models.ItemPatch{Quantity: ptr(1)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.UpdateItem(ctx, customer, o.ID, "f1", models.ItemPatch{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.UpdateItem(ctx, customer, o.ID, "f1", models.ItemPatch{Quantity: ptr(0)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCart_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, customer, basicInput())

	_, err := f.svc.AddItem(ctx, customer, o.ID, models.LineItem{FlowerID: "f2", Quantity: 0, Price: 5})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.AddItem(ctx, customer, o.ID, models.LineItem{FlowerID: "f2", Quantity: 1, Price: -5})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RemoveItem(ctx, customer, o.ID, "f9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.RemoveItem(ctx, customer, o.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.AddItem(ctx, customer, "missing", models.LineItem{FlowerID: "f2", Quantity: 1, Price: 5})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := f.store.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
	assert.InDelta(t, 20.0, stored.TotalPrice, 1e-9)
}

func TestCart_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, customer, basicInput())
	item := models.LineItem{FlowerID: "f2", Quantity: 1, Price: 5}

	for _, actor := range []models.Actor{stranger, shop, courier} {
		_, err := f.svc.AddItem(ctx, actor, o.ID, item)
		assert.ErrorIs(t, err, apperr.ErrForbidden, "%s %s", actor.Role, actor.ID)
	}

	_, err := f.svc.Transition(ctx, shop, o.ID, "confirmed")
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, customer, o.ID, item)
	assert.ErrorIs(t, err, apperr.ErrValidation, "cart is locked once confirmed")
	_, err = f.svc.RemoveItem(ctx, customer, o.ID, "f1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := f.svc.AddItem(ctx, admin, o.ID, item)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, updated.TotalPrice, 1e-9)
}
