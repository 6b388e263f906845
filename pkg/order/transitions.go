package order

import (
	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
)

// transitionRights maps each role to the statuses it may set, independent of the
// current status.
var transitionRights = map[models.Role]map[models.Status]struct{}{
	models.RoleUser: statusSet(models.StatusCancelled),
	models.RoleFlorist: statusSet(
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusDelivering,
		models.StatusCancelled,
	),
	models.RoleDeliver: statusSet(models.StatusDelivering, models.StatusDelivered),
	models.RoleAdmin:   statusSet(models.Statuses...),
}

func statusSet(statuses ...models.Status) map[models.Status]struct{} {
	set := make(map[models.Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// CanSetStatus reports whether role may set target.
func CanSetStatus(role models.Role, target models.Status) bool {
	_, ok := transitionRights[role][target]
	return ok
}

// AllowedTargets lists the statuses role may set, in lifecycle order.
func AllowedTargets(role models.Role) []models.Status {
	var out []models.Status
	for _, s := range models.Statuses {
		if CanSetStatus(role, s) {
			out = append(out, s)
		}
	}
	return out
}

// checkNotTerminal freezes delivered and cancelled orders for everyone but admins.
func checkNotTerminal(actor models.Actor, o *models.Order) error {
	if o.Status.IsTerminal() && !actor.IsAdmin() {
		return apperr.Validation("order %s is in terminal status %s", o.ID, o.Status)
	}
	return nil
}
