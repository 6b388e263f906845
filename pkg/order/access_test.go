package order

import (
	"testing"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestAllowedTargets(t *testing.T) {
	assert.Equal(t, []models.Status{models.StatusCancelled}, AllowedTargets(models.RoleUser))
	assert.Equal(t, []models.Status{
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusDelivering,
		models.StatusCancelled,
	}, AllowedTargets(models.RoleFlorist))
	assert.Equal(t, []models.Status{models.StatusDelivering, models.StatusDelivered}, AllowedTargets(models.RoleDeliver))
	assert.Equal(t, models.Statuses, AllowedTargets(models.RoleAdmin))
	assert.Empty(t, AllowedTargets(models.Role("guest")))
}

func TestAuthorize(t *testing.T) {
	o := &models.Order{ID: "o1", UserID: "u1", FloristID: "shop-1", DeliverID: "d1"}
	unassigned := &models.Order{ID: "o2", UserID: "u1", FloristID: "shop-1"}

	tests := []struct {
		name  string
		actor models.Actor
		order *models.Order
		op    Operation
		want  error
	}{
		{name: "owner reads", actor: customer, order: o, op: OpRead},
		{name: "stranger reads", actor: stranger, order: o, op: OpRead, want: apperr.ErrForbidden},
		{name: "shop reads its order", actor: shop, order: o, op: OpRead},
		{name: "rival shop reads", actor: rival, order: o, op: OpRead, want: apperr.ErrForbidden},
		{name: "assigned agent reads", actor: courier, order: o, op: OpRead},
		{name: "agent reads unassigned", actor: courier, order: unassigned, op: OpRead, want: apperr.ErrForbidden},
		{name: "agent takes unassigned", actor: courier, order: unassigned, op: OpAssignDeliver},
		{name: "admin bypasses ownership", actor: admin, order: unassigned, op: OpDelete},
		{name: "florist cannot delete", actor: shop, order: o, op: OpDelete, want: apperr.ErrForbidden},
		{name: "user cannot repair", actor: customer, order: o, op: OpRepair, want: apperr.ErrForbidden},
		{name: "anonymous user", actor: models.Actor{Role: models.RoleUser}, order: &models.Order{ID: "o3"}, op: OpRead, want: apperr.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.order, tt.op)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequireSelf(t *testing.T) {
	assert.NoError(t, RequireSelf(admin, models.RoleFlorist, "shop-9"))
	assert.NoError(t, RequireSelf(shop, models.RoleFlorist, "shop-1"))
	assert.ErrorIs(t, RequireSelf(shop, models.RoleFlorist, "shop-2"), apperr.ErrForbidden)
	assert.ErrorIs(t, RequireSelf(customer, models.RoleFlorist, "u1"), apperr.ErrForbidden)
	assert.ErrorIs(t, RequireSelf(models.Actor{Role: models.RoleUser}, models.RoleUser, ""), apperr.ErrForbidden)
}
