package order

import (
	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
)

// Operation names an action the authorization gate decides on.
type Operation string

const (
	OpCreate        Operation = "create"
	OpRead          Operation = "read"
	OpList          Operation = "list"
	OpTransition    Operation = "transition"
	OpAssignDeliver Operation = "assign_deliver"
	OpEditCart      Operation = "edit_cart"
	OpDelete        Operation = "delete"
	OpSetFlorist    Operation = "set_florist"
	OpRepair        Operation = "repair"
	OpListAvailable Operation = "list_available"
	OpListByFlower  Operation = "list_by_flower"
)

// operationRoles lists the roles that may attempt each operation at all.
var operationRoles = map[Operation][]models.Role{
	OpCreate:        {models.RoleUser, models.RoleAdmin},
	OpRead:          {models.RoleUser, models.RoleFlorist, models.RoleDeliver, models.RoleAdmin},
	OpList:          {models.RoleFlorist, models.RoleDeliver, models.RoleAdmin},
	OpTransition:    {models.RoleUser, models.RoleFlorist, models.RoleDeliver, models.RoleAdmin},
	OpAssignDeliver: {models.RoleDeliver, models.RoleAdmin},
	OpEditCart:      {models.RoleUser, models.RoleAdmin},
	OpDelete:        {models.RoleUser, models.RoleAdmin},
	OpSetFlorist:    {models.RoleAdmin},
	OpRepair:        {models.RoleAdmin},
	OpListAvailable: {models.RoleDeliver, models.RoleAdmin},
	OpListByFlower:  {models.RoleFlorist, models.RoleAdmin},
}

// RequireRole rejects actors whose role may never perform op.
func RequireRole(actor models.Actor, op Operation) error {
	for _, r := range operationRoles[op] {
		if r == actor.Role {
			return nil
		}
	}
	return apperr.Forbidden("role %q may not %s orders", actor.Role, op)
}

// Authorize applies the role rule and then the ownership rule for op on o.
// Admins bypass ownership.
func Authorize(actor models.Actor, o *models.Order, op Operation) error {
	if err := RequireRole(actor, op); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if !owns(actor, o, op) {
		return apperr.Forbidden("order %s does not belong to %s %s", o.ID, actor.Role, actor.ID)
	}
	return nil
}

// RequireSelf allows admins, or an actor of role whose id is subjectID.
func RequireSelf(actor models.Actor, role models.Role, subjectID string) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == role && actor.ID != "" && actor.ID == subjectID {
		return nil
	}
	return apperr.Forbidden("%s %s may not access records of %s", actor.Role, actor.ID, subjectID)
}

func owns(actor models.Actor, o *models.Order, op Operation) bool {
	if actor.ID == "" {
		return false
	}
	switch actor.Role {
	case models.RoleUser:
		return o.UserID == actor.ID
	case models.RoleFlorist:
		return o.FloristID == actor.ID
	case models.RoleDeliver:
		if op == OpAssignDeliver && o.DeliverID == "" {
			return true
		}
		return o.DeliverID == actor.ID
	default:
		return false
	}
}
