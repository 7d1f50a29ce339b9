package rbac

type Role string
type Action string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionPublish Action = "publish"
	ActionAdmin   Action = "admin"
)

// Can reports whether role may perform action. Editors write and publish
// content; seeding, restores and user management need admin.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite || action == ActionPublish
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Parse accepts only the known role names.
func Parse(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// Normalize maps unknown roles, such as those of a stale token, to viewer.
func Normalize(role string) Role {
	if parsed, ok := Parse(role); ok {
		return parsed
	}
	return RoleViewer
}
