package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver turns an authenticated identity into permission decisions. All
// decisions are fail-closed: missing profiles, unregistered permission names
// and store gaps all resolve to deny.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("rbac: store is required")
	}
	return &Resolver{store: store}, nil
}

// ResolveProfile loads the profile for an identity. ErrNotFound is equivalent
// to "unauthenticated" for all downstream checks.
func (r *Resolver) ResolveProfile(ctx context.Context, userID string) (*UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return r.store.Profiles().Find(ctx, userID)
}

// HasPermission reports whether the profile's role grants the named
// permission. An unregistered permission name never implies access.
func (r *Resolver) HasPermission(ctx context.Context, profile *UserProfile, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if profile == nil || name == "" {
		return false, nil
	}
	if _, err := r.store.Permissions().FindByName(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	granted, err := r.store.Permissions().GrantedNames(ctx, profile.Role, []string{name})
	if err != nil {
		return false, err
	}
	return len(granted) == 1 && granted[0] == name, nil
}

// HasPermissions is the batched form: one store round trip for all names, then
// a single pass deriving membership. Every requested name is present in the
// result; unknown names map to false.
func (r *Resolver) HasPermissions(ctx context.Context, profile *UserProfile, names []string) (map[string]bool, error) {
	result := make(map[string]bool, len(names))
	var wanted []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := result[name]; ok {
			continue
		}
		result[name] = false
		wanted = append(wanted, name)
	}
	if profile == nil || len(wanted) == 0 {
		return result, nil
	}
	granted, err := r.store.Permissions().GrantedNames(ctx, profile.Role, wanted)
	if err != nil {
		return nil, err
	}
	for _, name := range granted {
		if _, ok := result[name]; ok {
			result[name] = true
		}
	}
	return result, nil
}

// IsAdmin is the hardcoded bootstrap shortcut, deliberately independent of the
// data-driven permission table.
func IsAdmin(profile *UserProfile) bool {
	return profile != nil && profile.Role.IsAdmin()
}
