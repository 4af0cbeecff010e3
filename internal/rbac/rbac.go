package rbac

import "strings"

type Role string
type Action string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

const (
	ActionExport      Action = "export"
	ActionReadHistory Action = "read_history"
	ActionReadAll     Action = "read_all"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return action == ActionExport || action == ActionReadHistory
	default:
		return false
	}
}

// Normalize maps a stored role value onto a known role. Missing or unknown
// values become RoleUser.
func Normalize(role string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}
