package rbac

import (
	"encoding/json"
	"strings"
	"time"
)

// SystemRole enumerates the fixed roles that always exist and can never be
// deleted. Administrative capability hangs off SystemAdmin directly so that a
// misconfigured permission table can always be repaired.
type SystemRole int

const (
	SystemNone SystemRole = iota
	SystemAdmin
	SystemResearcher
	SystemViewer
)

const (
	RoleAdmin      = "admin"
	RoleResearcher = "researcher"
	RoleViewer     = "viewer"
)

// RoleName is a role reference: either one of the three system roles, carried
// as an exhaustive-checked enum, or an arbitrary data-driven custom name.
// The zero value is the empty (invalid) name.
type RoleName struct {
	system SystemRole
	custom string
}

// NormalizeRoleName builds a RoleName from raw input, applying the storage
// normalization: trim, lowercase, spaces to underscores.
func NormalizeRoleName(raw string) RoleName {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	switch name {
	case RoleAdmin:
		return RoleName{system: SystemAdmin}
	case RoleResearcher:
		return RoleName{system: SystemResearcher}
	case RoleViewer:
		return RoleName{system: SystemViewer}
	default:
		return RoleName{custom: name}
	}
}

// String returns the normalized storage form of the name.
func (n RoleName) String() string {
	switch n.system {
	case SystemAdmin:
		return RoleAdmin
	case SystemResearcher:
		return RoleResearcher
	case SystemViewer:
		return RoleViewer
	default:
		return n.custom
	}
}

// System returns the system-role tag, or SystemNone for custom names.
func (n RoleName) System() SystemRole { return n.system }

// IsSystem reports whether the name refers to one of the fixed system roles.
func (n RoleName) IsSystem() bool { return n.system != SystemNone }

// IsAdmin reports whether the name is the bootstrap admin role.
func (n RoleName) IsAdmin() bool { return n.system == SystemAdmin }

// IsZero reports whether the name is empty.
func (n RoleName) IsZero() bool { return n.system == SystemNone && n.custom == "" }

// MarshalJSON encodes the name as its storage string.
func (n RoleName) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON decodes and normalizes a role name.
func (n *RoleName) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = NormalizeRoleName(raw)
	return nil
}

// IsSystemRole reports whether raw names one of the fixed system roles.
func IsSystemRole(raw string) bool {
	return NormalizeRoleName(raw).IsSystem()
}

// UserProfile is the per-identity record linking an auth identity to its role.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      RoleName  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// Role is a named bucket of capabilities assigned to exactly one profile at a time.
type Role struct {
	ID           string    `json:"id"`
	Name         RoleName  `json:"name"`
	DisplayName  string    `json:"display_name"`
	Description  string    `json:"description,omitempty"`
	IsSystemRole bool      `json:"is_system_role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

// Permission is an atomic named capability, independent of any role.
// Names follow an advisory dotted convention, e.g. "documents.upload".
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RolePermission links a role name to a permission. Presence means the role
// grants that permission.
type RolePermission struct {
	Role         RoleName `json:"role"`
	PermissionID string   `json:"permission_id"`
}
