package rbac

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store used across the package tests.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]*UserProfile
	roles    map[string]*Role       // keyed by id
	perms    map[string]*Permission // keyed by id
	grants   map[string]map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]*UserProfile),
		roles:    make(map[string]*Role),
		perms:    make(map[string]*Permission),
		grants:   make(map[string]map[string]bool),
	}
}

func (m *memStore) Profiles() ProfileStore       { return (*memProfiles)(m) }
func (m *memStore) Roles() RoleStore             { return (*memRoles)(m) }
func (m *memStore) Permissions() PermissionStore { return (*memPerms)(m) }

type memProfiles memStore

func (m *memProfiles) Find(_ context.Context, userID string) (*UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Ensure(_ context.Context, profile *UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; ok {
		return nil
	}
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *memProfiles) List(_ context.Context) ([]*UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UserProfile
	for _, p := range m.profiles {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memProfiles) UpdateRole(_ context.Context, userID string, role RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memProfiles) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, userID)
	return nil
}

type memRoles memStore

func (m *memRoles) Create(_ context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return ErrConflict
		}
	}
	cp := *role
	m.roles[role.ID] = &cp
	return nil
}

func (m *memRoles) Find(_ context.Context, id string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRoles) FindByName(_ context.Context, name RoleName) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRoles) List(_ context.Context) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Role
	for _, r := range m.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRoles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	delete(m.grants, role.Name.String())
	return nil
}

type memPerms memStore

func (m *memPerms) Create(_ context.Context, perm *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.perms {
		if existing.Name == perm.Name {
			return ErrConflict
		}
	}
	cp := *perm
	m.perms[perm.ID] = &cp
	return nil
}

func (m *memPerms) Ensure(ctx context.Context, perms []Permission) error {
	for i := range perms {
		p := perms[i]
		if p.ID == "" {
			p.ID = p.Name
		}
		if err := m.Create(ctx, &p); err != nil && err != ErrConflict {
			return err
		}
	}
	return nil
}

func (m *memPerms) FindByName(_ context.Context, name string) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memPerms) List(_ context.Context) ([]*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Permission
	for _, p := range m.perms {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPerms) ListForRole(_ context.Context, role RoleName) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Permission
	for id, on := range m.grants[role.String()] {
		if !on {
			continue
		}
		if p, ok := m.perms[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPerms) GrantedNames(_ context.Context, role RoleName, names []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []string
	for id, on := range m.grants[role.String()] {
		if !on {
			continue
		}
		p, ok := m.perms[id]
		if !ok || !wanted[p.Name] {
			continue
		}
		out = append(out, p.Name)
	}
	return out, nil
}

func (m *memPerms) Toggle(_ context.Context, role RoleName, permissionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[permissionID]; !ok {
		return false, ErrNotFound
	}
	key := role.String()
	if m.grants[key] == nil {
		m.grants[key] = make(map[string]bool)
	}
	if m.grants[key][permissionID] {
		delete(m.grants[key], permissionID)
		return false, nil
	}
	m.grants[key][permissionID] = true
	return true, nil
}

func (m *memPerms) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[id]; !ok {
		return ErrNotFound
	}
	delete(m.perms, id)
	for _, grants := range m.grants {
		delete(grants, id)
	}
	return nil
}
