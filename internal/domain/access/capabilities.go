package access

func CapabilitiesFor(role Role, verified bool) []string {
	if !verified {
		return []string{}
	}

	switch role {
	case RoleAdmin:
		return []string{"upload", "review", "moderate", "import", "takedown"}
	case RoleModerator:
		return []string{"upload", "review", "moderate"}
	default:
		return []string{"upload"}
	}
}
