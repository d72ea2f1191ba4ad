package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/ids"
)

// Admin is the privileged mutation surface for roles, permissions and profile
// role assignment. Every operation passes through a single enforcement point
// (authorize) instead of trusting call sites to have checked first.
type Admin struct {
	store Store
	now   func() time.Time
}

// AdminOption configures Admin behavior.
type AdminOption func(*Admin)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) AdminOption {
	return func(a *Admin) {
		if fn != nil {
			a.now = fn
		}
	}
}

// NewAdmin constructs the mutation surface.
func NewAdmin(store Store, opts ...AdminOption) (*Admin, error) {
	if store == nil {
		return nil, errors.New("rbac: store is required")
	}
	a := &Admin{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// authorize is the single enforcement point for all Role Admin mutations.
// It uses the bootstrap shortcut only, never the data-driven permission table,
// so admin capability survives a broken permission configuration.
func (a *Admin) authorize(caller *UserProfile) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	if !IsAdmin(caller) {
		return ErrAuthorizationDenied
	}
	return nil
}

// EnsureBuiltins makes sure the three system roles and the baseline permission
// catalog exist. Idempotent; runs at startup, before any caller exists.
func (a *Admin) EnsureBuiltins(ctx context.Context) error {
	now := a.now().UTC()
	for _, name := range []string{RoleAdmin, RoleResearcher, RoleViewer} {
		role := &Role{
			ID:           ids.New(),
			Name:         NormalizeRoleName(name),
			DisplayName:  strings.ToUpper(name[:1]) + name[1:],
			IsSystemRole: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.store.Roles().Create(ctx, role); err != nil && !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return a.store.Permissions().Ensure(ctx, BuiltinPermissions)
}

// ListRoles returns the full role catalog. Read access shares the same
// enforcement point as mutations; the admin UI is the only consumer.
func (a *Admin) ListRoles(ctx context.Context, caller *UserProfile) ([]*Role, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	return a.store.Roles().List(ctx)
}

// ListPermissions returns the permission catalog.
func (a *Admin) ListPermissions(ctx context.Context, caller *UserProfile) ([]*Permission, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	return a.store.Permissions().List(ctx)
}

// ListUsers returns all registered profiles.
func (a *Admin) ListUsers(ctx context.Context, caller *UserProfile) ([]*UserProfile, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	return a.store.Profiles().List(ctx)
}

// RolePermissions returns the permissions currently granted to a role.
func (a *Admin) RolePermissions(ctx context.Context, caller *UserProfile, role RoleName) ([]Permission, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	if role.IsZero() {
		return nil, fmt.Errorf("%w: role is required", ErrValidation)
	}
	return a.store.Permissions().ListForRole(ctx, role)
}

// CreateRole registers a new custom role under the normalized name.
func (a *Admin) CreateRole(ctx context.Context, caller *UserProfile, name, displayName, description string) (*Role, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	normalized := NormalizeRoleName(name)
	if normalized.IsZero() {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = strings.TrimSpace(name)
	}
	now := a.now().UTC()
	role := &Role{
		ID:           ids.New(),
		Name:         normalized,
		DisplayName:  displayName,
		Description:  strings.TrimSpace(description),
		IsSystemRole: normalized.IsSystem(),
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    caller.ID,
	}
	if err := a.store.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// CreatePermission registers a new permission. The dotted-namespace convention
// is advisory only.
func (a *Admin) CreatePermission(ctx context.Context, caller *UserProfile, name, description string) (*Permission, error) {
	if err := a.authorize(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name is required", ErrValidation)
	}
	perm := &Permission{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   a.now().UTC(),
	}
	if err := a.store.Permissions().Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// TogglePermission flips the (role, permission) association and reports the
// new state. Applying it twice restores the original association.
func (a *Admin) TogglePermission(ctx context.Context, caller *UserProfile, role RoleName, permissionID string) (bool, error) {
	if err := a.authorize(caller); err != nil {
		return false, err
	}
	permissionID = strings.TrimSpace(permissionID)
	if role.IsZero() || permissionID == "" {
		return false, fmt.Errorf("%w: role and permission_id are required", ErrValidation)
	}
	return a.store.Permissions().Toggle(ctx, role, permissionID)
}

// DeleteRole removes a custom role. System roles are rejected, never silently
// ignored. Existing profiles referencing the name are left alone; they resolve
// to zero permissions afterwards.
func (a *Admin) DeleteRole(ctx context.Context, caller *UserProfile, roleID, roleName string) error {
	if err := a.authorize(caller); err != nil {
		return err
	}
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrValidation)
	}
	if IsSystemRole(roleName) {
		return fmt.Errorf("%w: system role %q cannot be deleted", ErrValidation, NormalizeRoleName(roleName))
	}
	return a.store.Roles().Delete(ctx, roleID)
}

// DeletePermission removes a permission from the catalog.
func (a *Admin) DeletePermission(ctx context.Context, caller *UserProfile, permissionID string) error {
	if err := a.authorize(caller); err != nil {
		return err
	}
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return fmt.Errorf("%w: permission_id is required", ErrValidation)
	}
	return a.store.Permissions().Delete(ctx, permissionID)
}

// DeleteUser removes a profile. Self-deletion is rejected regardless of admin
// status.
func (a *Admin) DeleteUser(ctx context.Context, caller *UserProfile, userID string) error {
	if err := a.authorize(caller); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if userID == caller.ID {
		return fmt.Errorf("%w: cannot delete your own account", ErrValidation)
	}
	return a.store.Profiles().Delete(ctx, userID)
}

// UpdateUserRole reassigns a profile to an existing role. The role-existence
// check keeps profiles from pointing at names that were never created.
func (a *Admin) UpdateUserRole(ctx context.Context, caller *UserProfile, userID, newRole string) error {
	if err := a.authorize(caller); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	role := NormalizeRoleName(newRole)
	if role.IsZero() {
		return fmt.Errorf("%w: role is required", ErrValidation)
	}
	if _, err := a.store.Roles().FindByName(ctx, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: role %q does not exist", ErrValidation, role)
		}
		return err
	}
	return a.store.Profiles().UpdateRole(ctx, userID, role)
}
