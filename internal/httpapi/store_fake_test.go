package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

// fakeStore is an in-memory rbac.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*rbac.UserProfile
	roles    map[string]*rbac.Role
	perms    map[string]*rbac.Permission
	grants   map[string]map[string]bool
	fail     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*rbac.UserProfile),
		roles:    make(map[string]*rbac.Role),
		perms:    make(map[string]*rbac.Permission),
		grants:   make(map[string]map[string]bool),
	}
}

func (f *fakeStore) Profiles() rbac.ProfileStore       { return (*fakeProfiles)(f) }
func (f *fakeStore) Roles() rbac.RoleStore             { return (*fakeRoles)(f) }
func (f *fakeStore) Permissions() rbac.PermissionStore { return (*fakePerms)(f) }

type fakeProfiles fakeStore

func (f *fakeProfiles) Find(_ context.Context, userID string) (*rbac.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Ensure(_ context.Context, profile *rbac.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; ok {
		return nil
	}
	cp := *profile
	f.profiles[profile.ID] = &cp
	return nil
}

func (f *fakeProfiles) List(_ context.Context) ([]*rbac.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*rbac.UserProfile
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProfiles) UpdateRole(_ context.Context, userID string, role rbac.RoleName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return rbac.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[userID]; !ok {
		return rbac.ErrNotFound
	}
	delete(f.profiles, userID)
	return nil
}

type fakeRoles fakeStore

func (f *fakeRoles) Create(_ context.Context, role *rbac.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.roles {
		if existing.Name == role.Name {
			return rbac.ErrConflict
		}
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoles) Find(_ context.Context, id string) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoles) FindByName(_ context.Context, name rbac.RoleName) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rbac.ErrNotFound
}

func (f *fakeRoles) List(_ context.Context) ([]*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*rbac.Role
	for _, r := range f.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRoles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[id]
	if !ok {
		return rbac.ErrNotFound
	}
	delete(f.roles, id)
	delete(f.grants, role.Name.String())
	return nil
}

type fakePerms fakeStore

func (f *fakePerms) Create(_ context.Context, perm *rbac.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.perms {
		if existing.Name == perm.Name {
			return rbac.ErrConflict
		}
	}
	cp := *perm
	f.perms[perm.ID] = &cp
	return nil
}

func (f *fakePerms) Ensure(ctx context.Context, perms []rbac.Permission) error {
	for i := range perms {
		p := perms[i]
		if p.ID == "" {
			p.ID = p.Name
		}
		if err := f.Create(ctx, &p); err != nil && err != rbac.ErrConflict {
			return err
		}
	}
	return nil
}

func (f *fakePerms) FindByName(_ context.Context, name string) (*rbac.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, rbac.ErrNotFound
}

func (f *fakePerms) List(_ context.Context) ([]*rbac.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*rbac.Permission
	for _, p := range f.perms {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePerms) ListForRole(_ context.Context, role rbac.RoleName) ([]rbac.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rbac.Permission
	for id, on := range f.grants[role.String()] {
		if !on {
			continue
		}
		if p, ok := f.perms[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePerms) GrantedNames(_ context.Context, role rbac.RoleName, names []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []string
	for id, on := range f.grants[role.String()] {
		if !on {
			continue
		}
		p, ok := f.perms[id]
		if !ok || !wanted[p.Name] {
			continue
		}
		out = append(out, p.Name)
	}
	return out, nil
}

func (f *fakePerms) Toggle(_ context.Context, role rbac.RoleName, permissionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.perms[permissionID]; !ok {
		return false, rbac.ErrNotFound
	}
	key := role.String()
	if f.grants[key] == nil {
		f.grants[key] = make(map[string]bool)
	}
	if f.grants[key][permissionID] {
		delete(f.grants[key], permissionID)
		return false, nil
	}
	f.grants[key][permissionID] = true
	return true, nil
}

func (f *fakePerms) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.perms[id]; !ok {
		return rbac.ErrNotFound
	}
	delete(f.perms, id)
	for _, grants := range f.grants {
		delete(grants, id)
	}
	return nil
}
