package enums

import "fmt"

// ActorRole identifies which party is acting on an order. The surrounding
// auth system resolves identity; the engine only consumes the role.
type ActorRole string

const (
	RoleCustomer   ActorRole = "customer"
	RoleRestaurant ActorRole = "restaurant"
	RoleCourier    ActorRole = "courier"
	RoleAdmin      ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleRestaurant,
	RoleCourier,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
