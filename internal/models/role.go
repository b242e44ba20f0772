package models

// Role is a member's role within a single group.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// HasModerationRights reports whether the role may approve posts, pin/hide
// content, resolve join requests, invite users and remove members.
// Authorization is always this explicit capability check, never a numeric
// comparison between roles.
func (r Role) HasModerationRights() bool {
	return r == RoleAdmin || r == RoleModerator
}

// DisplayOrder is a total order over roles used only for sorting member
// listings (admin first). It must not be used for authorization.
func (r Role) DisplayOrder() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleModerator:
		return 1
	default:
		return 2
	}
}
