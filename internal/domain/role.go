package domain

// Role is an ordinal permission level; higher values include lower ones.
type Role int

const (
	RoleSpectator Role = iota
	RolePlayer
	RoleModerator
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleSpectator:
		return "spectator"
	case RolePlayer:
		return "player"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// AtLeast reports whether r grants the permissions of min.
func (r Role) AtLeast(min Role) bool { return r >= min }
