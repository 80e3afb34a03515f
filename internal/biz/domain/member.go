package domain

import "time"

// Role is a member's permission level in a room
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
	RoleReadonly Role = "readonly"
	RoleUnknown  Role = "unknown"
)

// Member represents a room member (value object)
type Member struct {
	AccountID AccountID
	Name      string
	Role      Role
}

// MemberRoles is a point-in-time snapshot of a room's roles
type MemberRoles struct {
	Roles       map[AccountID]Role
	RefreshedAt time.Time
}

// NewMemberRoles builds a snapshot from a member list
func NewMemberRoles(members []Member, refreshedAt time.Time) *MemberRoles {
	roles := make(map[AccountID]Role, len(members))
	for _, m := range members {
		roles[m.AccountID] = m.Role
	}
	return &MemberRoles{Roles: roles, RefreshedAt: refreshedAt}
}

// RoleOf returns the role of account, or RoleUnknown if absent
func (r *MemberRoles) RoleOf(account AccountID) Role {
	if r == nil {
		return RoleUnknown
	}
	if role, ok := r.Roles[account]; ok && role != "" {
		return role
	}
	return RoleUnknown
}

// IsStale checks whether the snapshot is older than maxAge
func (r *MemberRoles) IsStale(now time.Time, maxAge time.Duration) bool {
	if r == nil {
		return true
	}
	return now.Sub(r.RefreshedAt) >= maxAge
}
