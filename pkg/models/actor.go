package models

import "strings"

type Role string

const (
	RoleUser    Role = "user"
	RoleFlorist Role = "florist"
	RoleDeliver Role = "deliver"
	RoleAdmin   Role = "admin"
)

var Roles = []Role{RoleUser, RoleFlorist, RoleDeliver, RoleAdmin}

func ParseRole(raw string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range Roles {
		if r == normalized {
			return r, true
		}
	}
	return "", false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor is used by scheduled jobs and internal transports.
func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleAdmin}
}
