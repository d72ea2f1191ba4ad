package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jtsaich/fda-search-sub000/internal/ids"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

// backendErr tags unexpected driver failures as transient backend errors so
// the handler layer can map them without string matching.
func backendErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", rbac.ErrBackend, op, err)
}

// Profile store ------------------------------------------------------------

type profileStore struct{ db *sql.DB }

func (s *profileStore) Find(ctx context.Context, userID string) (*rbac.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, role, created_at, updated_at, created_by
		from user_profiles
		where id = $1
	`, userID)
	return scanProfile(row)
}

func (s *profileStore) Ensure(ctx context.Context, profile *rbac.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_profiles (id, email, role, created_by)
		values ($1, $2, $3, $4)
		on conflict (id) do nothing
	`, profile.ID, profile.Email, profile.Role.String(), nullIfEmpty(profile.CreatedBy))
	if err != nil {
		return backendErr("ensure profile", err)
	}
	return nil
}

func (s *profileStore) List(ctx context.Context) ([]*rbac.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, email, role, created_at, updated_at, created_by
		from user_profiles
		order by created_at
	`)
	if err != nil {
		return nil, backendErr("list profiles", err)
	}
	defer rows.Close()

	var profiles []*rbac.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list profiles", err)
	}
	return profiles, nil
}

func (s *profileStore) UpdateRole(ctx context.Context, userID string, role rbac.RoleName) error {
	res, err := s.db.ExecContext(ctx, `
		update user_profiles set role = $1, updated_at = now() where id = $2
	`, role.String(), userID)
	if err != nil {
		return backendErr("update profile role", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return backendErr("update profile role", err)
	}
	if aff == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

func (s *profileStore) Delete(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `delete from user_profiles where id = $1`, userID)
	if err != nil {
		return backendErr("delete profile", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return backendErr("delete profile", err)
	}
	if aff == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*rbac.UserProfile, error) {
	var (
		p         rbac.UserProfile
		role      string
		createdBy sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.CreatedAt, &p.UpdatedAt, &createdBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rbac.ErrNotFound
		}
		return nil, backendErr("scan profile", err)
	}
	p.Role = rbac.NormalizeRoleName(role)
	p.CreatedBy = createdBy.String
	return &p, nil
}

// Role store ---------------------------------------------------------------

type roleStore struct{ db *sql.DB }

func (s *roleStore) Create(ctx context.Context, role *rbac.Role) error {
	_, err := s.db.ExecContext(ctx, `
		insert into roles (id, name, display_name, description, is_system_role, created_by)
		values ($1, $2, $3, $4, $5, $6)
	`, role.ID, role.Name.String(), role.DisplayName, nullIfEmpty(role.Description),
		role.IsSystemRole, nullIfEmpty(role.CreatedBy))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rbac.ErrConflict
		}
		return backendErr("create role", err)
	}
	return nil
}

func (s *roleStore) Find(ctx context.Context, id string) (*rbac.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, display_name, description, is_system_role, created_at, updated_at, created_by
		from roles
		where id = $1
	`, id)
	return scanRole(row)
}

func (s *roleStore) FindByName(ctx context.Context, name rbac.RoleName) (*rbac.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, display_name, description, is_system_role, created_at, updated_at, created_by
		from roles
		where name = $1
	`, name.String())
	return scanRole(row)
}

func (s *roleStore) List(ctx context.Context) ([]*rbac.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, display_name, description, is_system_role, created_at, updated_at, created_by
		from roles
		order by name
	`)
	if err != nil {
		return nil, backendErr("list roles", err)
	}
	defer rows.Close()

	var roles []*rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list roles", err)
	}
	return roles, nil
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return backendErr("delete role", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return backendErr("delete role", err)
	}
	if aff == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

func scanRole(row rowScanner) (*rbac.Role, error) {
	var (
		role        rbac.Role
		name        string
		description sql.NullString
		createdBy   sql.NullString
	)
	if err := row.Scan(&role.ID, &name, &role.DisplayName, &description,
		&role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt, &createdBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rbac.ErrNotFound
		}
		return nil, backendErr("scan role", err)
	}
	role.Name = rbac.NormalizeRoleName(name)
	role.Description = description.String
	role.CreatedBy = createdBy.String
	return &role, nil
}

// Permission store ---------------------------------------------------------

type permissionStore struct{ db *sql.DB }

func (s *permissionStore) Create(ctx context.Context, perm *rbac.Permission) error {
	_, err := s.db.ExecContext(ctx, `
		insert into permissions (id, name, description)
		values ($1, $2, $3)
	`, perm.ID, perm.Name, nullIfEmpty(perm.Description))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return rbac.ErrConflict
		}
		return backendErr("create permission", err)
	}
	return nil
}

func (s *permissionStore) Ensure(ctx context.Context, perms []rbac.Permission) error {
	for _, p := range perms {
		id := p.ID
		if id == "" {
			id = ids.New()
		}
		_, err := s.db.ExecContext(ctx, `
			insert into permissions (id, name, description)
			values ($1, $2, $3)
			on conflict (name) do nothing
		`, id, p.Name, nullIfEmpty(p.Description))
		if err != nil {
			return backendErr("ensure permission", err)
		}
	}
	return nil
}

func (s *permissionStore) FindByName(ctx context.Context, name string) (*rbac.Permission, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, created_at
		from permissions
		where name = $1
	`, name)
	return scanPermission(row)
}

func (s *permissionStore) List(ctx context.Context) ([]*rbac.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, created_at
		from permissions
		order by name
	`)
	if err != nil {
		return nil, backendErr("list permissions", err)
	}
	defer rows.Close()

	var perms []*rbac.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list permissions", err)
	}
	return perms, nil
}

func (s *permissionStore) ListForRole(ctx context.Context, role rbac.RoleName) ([]rbac.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.name, p.description, p.created_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role = $1
		order by p.name
	`, role.String())
	if err != nil {
		return nil, backendErr("list role permissions", err)
	}
	defer rows.Close()

	var perms []rbac.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list role permissions", err)
	}
	return perms, nil
}

func (s *permissionStore) GrantedNames(ctx context.Context, role rbac.RoleName, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	// Placeholders built by hand: one round trip for the whole batch, and the
	// args stay plain strings for every driver.
	placeholders := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	args = append(args, role.String())
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, name)
	}
	query := fmt.Sprintf(`
		select p.name
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role = $1 and p.name in (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendErr("granted names", err)
	}
	defer rows.Close()

	var granted []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, backendErr("granted names", err)
		}
		granted = append(granted, name)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("granted names", err)
	}
	return granted, nil
}

func (s *permissionStore) Toggle(ctx context.Context, role rbac.RoleName, permissionID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, backendErr("toggle permission", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		delete from role_permissions where role = $1 and permission_id = $2
	`, role.String(), permissionID)
	if err != nil {
		return false, backendErr("toggle permission", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, backendErr("toggle permission", err)
	}

	enabled := false
	if deleted == 0 {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role, permission_id) values ($1, $2)
		`, role.String(), permissionID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return false, rbac.ErrNotFound
			}
			return false, backendErr("toggle permission", err)
		}
		enabled = true
	}
	if err := tx.Commit(); err != nil {
		return false, backendErr("toggle permission", err)
	}
	return enabled, nil
}

func (s *permissionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from permissions where id = $1`, id)
	if err != nil {
		return backendErr("delete permission", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return backendErr("delete permission", err)
	}
	if aff == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

func scanPermission(row rowScanner) (*rbac.Permission, error) {
	var (
		p           rbac.Permission
		description sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rbac.ErrNotFound
		}
		return nil, backendErr("scan permission", err)
	}
	p.Description = description.String
	return &p, nil
}
