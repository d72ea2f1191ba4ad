package rbac

import "context"

// Store describes persistence operations required by the authorization core.
type Store interface {
	Profiles() ProfileStore
	Roles() RoleStore
	Permissions() PermissionStore
}

// ProfileStore manages user profiles.
type ProfileStore interface {
	Find(ctx context.Context, userID string) (*UserProfile, error)
	// Ensure inserts the profile if no row exists for its ID yet.
	Ensure(ctx context.Context, profile *UserProfile) error
	List(ctx context.Context) ([]*UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role RoleName) error
	Delete(ctx context.Context, userID string) error
}

// RoleStore manages the role catalog.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name RoleName) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Delete(ctx context.Context, id string) error
}

// PermissionStore manages the permission catalog and role associations.
type PermissionStore interface {
	Create(ctx context.Context, perm *Permission) error
	// Ensure inserts any of the given permissions that are not registered yet.
	Ensure(ctx context.Context, perms []Permission) error
	FindByName(ctx context.Context, name string) (*Permission, error)
	List(ctx context.Context) ([]*Permission, error)
	ListForRole(ctx context.Context, role RoleName) ([]Permission, error)
	// GrantedNames returns the subset of names that are registered permissions
	// granted to the role. Unregistered names are silently absent.
	GrantedNames(ctx context.Context, role RoleName, names []string) ([]string, error)
	// Toggle flips the (role, permission) association and reports the new
	// state: true if the association now exists.
	Toggle(ctx context.Context, role RoleName, permissionID string) (bool, error)
	Delete(ctx context.Context, id string) error
}
