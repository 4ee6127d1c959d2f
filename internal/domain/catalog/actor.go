package catalog

// Actor is who is performing a catalog operation: a regular user, an admin,
// or the system itself (batch imports, pipeline callbacks).
type Actor struct {
	system bool
	admin  bool
	userID uint
}

func UserActor(userID uint) Actor {
	return Actor{userID: userID}
}

func AdminActor(userID uint) Actor {
	return Actor{userID: userID, admin: true}
}

// SystemActor carries the admin capability implicitly.
func SystemActor() Actor {
	return Actor{system: true, admin: true}
}

func (a Actor) IsSystem() bool { return a.system }

func (a Actor) IsAdmin() bool { return a.admin }

// UserID returns the acting user's id, ok=false for the system actor.
func (a Actor) UserID() (uint, bool) {
	if a.system {
		return 0, false
	}
	return a.userID, true
}

// CreatedByRef is the nullable user id persisted on records this actor
// creates. nil means "system".
func (a Actor) CreatedByRef() *uint {
	if a.system {
		return nil
	}
	id := a.userID
	return &id
}

// IsUser reports whether the actor is the given (non-system) user.
func (a Actor) IsUser(userID uint) bool {
	return !a.system && a.userID == userID
}
