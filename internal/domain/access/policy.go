package access

import (
	"ourtextscores/internal/domain/catalog"
	"ourtextscores/internal/domain/users"
)

type Policy struct {
	Role         Role
	Capabilities []string
}

func ComputePolicy(u users.User) Policy {
	role := ParseRole(u.Role)
	return Policy{
		Role:         role,
		Capabilities: CapabilitiesFor(role, u.IsVerified),
	}
}

// ActorFor maps an authenticated user onto a catalog actor. Moderators act
// with admin capability inside the catalog; catalog-level distinctions
// between the two do not exist.
func ActorFor(userID uint, role Role) catalog.Actor {
	if role == RoleAdmin || role == RoleModerator {
		return catalog.AdminActor(userID)
	}
	return catalog.UserActor(userID)
}
