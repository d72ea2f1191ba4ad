package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jtsaich/fda-search-sub000/internal/audit"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

type createRoleRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type togglePermissionRequest struct {
	PermissionID string `json:"permission_id"`
}

type updateUserRoleRequest struct {
	Role string `json:"role"`
}

type checkPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		roles, err := a.admin.ListRoles(r.Context(), callerProfile(r))
		if err != nil {
			writeRBACError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "roles": roles})
	case http.MethodPost:
		var req createRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.admin.CreateRole(r.Context(), callerProfile(r), req.Name, req.DisplayName, req.Description)
		if err != nil {
			writeRBACError(w, err)
			return
		}
		a.recordAudit(r, audit.Event{
			Action:   "rbac.role.create",
			Entity:   "role",
			EntityID: role.ID,
			Meta:     map[string]string{"name": role.Name.String()},
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "role": role})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleRoleScoped routes /v1/roles/{id} and /v1/roles/{name}/permissions.
func (a *API) handleRoleScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.handleRoleDelete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleRolePermissions(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleRoleDelete(w http.ResponseWriter, r *http.Request, roleID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	// The role name rides in a query parameter so the system-role check
	// happens before any store round trip.
	roleName := r.URL.Query().Get("name")
	if err := a.admin.DeleteRole(r.Context(), callerProfile(r), roleID, roleName); err != nil {
		writeRBACError(w, err)
		return
	}
	a.recordAudit(r, audit.Event{
		Action:   "rbac.role.delete",
		Entity:   "role",
		EntityID: roleID,
		Meta:     map[string]string{"name": rbac.NormalizeRoleName(roleName).String()},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request, rawRole string) {
	role := rbac.NormalizeRoleName(rawRole)
	switch r.Method {
	case http.MethodGet:
		perms, err := a.admin.RolePermissions(r.Context(), callerProfile(r), role)
		if err != nil {
			writeRBACError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "role": role, "permissions": perms})
	case http.MethodPost:
		var req togglePermissionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		enabled, err := a.admin.TogglePermission(r.Context(), callerProfile(r), role, req.PermissionID)
		if err != nil {
			writeRBACError(w, err)
			return
		}
		a.recordAudit(r, audit.Event{
			Action:   "rbac.permission.toggle",
			Entity:   "role_permission",
			EntityID: req.PermissionID,
			Meta: map[string]string{
				"role":    role.String(),
				"enabled": fmt.Sprintf("%t", enabled),
			},
		})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": enabled})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		perms, err := a.admin.ListPermissions(r.Context(), callerProfile(r))
		if err != nil {
			writeRBACError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "permissions": perms})
	case http.MethodPost:
		var req createPermissionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.admin.CreatePermission(r.Context(), callerProfile(r), req.Name, req.Description)
		if err != nil {
			writeRBACError(w, err)
			return
		}
		a.recordAudit(r, audit.Event{
			Action:   "rbac.permission.create",
			Entity:   "permission",
			EntityID: perm.ID,
			Meta:     map[string]string{"name": perm.Name},
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/permissions/%s", perm.ID))
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "permission": perm})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handlePermissionScoped routes /v1/permissions/check and /v1/permissions/{id}.
func (a *API) handlePermissionScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/permissions/"), "/")
	switch {
	case path == "check":
		a.handlePermissionCheck(w, r)
	case path != "" && !strings.Contains(path, "/"):
		a.handlePermissionDelete(w, r, path)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

// handlePermissionCheck is the batched decision endpoint: the caller asks
// about its own permissions, one store round trip regardless of count.
func (a *API) handlePermissionCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req checkPermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.resolver.HasPermissions(r.Context(), callerProfile(r), req.Permissions)
	if err != nil {
		writeRBACError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "permissions": result})
}

func (a *API) handlePermissionDelete(w http.ResponseWriter, r *http.Request, permissionID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if err := a.admin.DeletePermission(r.Context(), callerProfile(r), permissionID); err != nil {
		writeRBACError(w, err)
		return
	}
	a.recordAudit(r, audit.Event{
		Action:   "rbac.permission.delete",
		Entity:   "permission",
		EntityID: permissionID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	users, err := a.admin.ListUsers(r.Context(), callerProfile(r))
	if err != nil {
		writeRBACError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
}

// handleUserScoped routes /v1/users/{id} and /v1/users/{id}/role.
func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.handleUserDelete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "role":
		a.handleUserRoleUpdate(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if err := a.admin.DeleteUser(r.Context(), callerProfile(r), userID); err != nil {
		writeRBACError(w, err)
		return
	}
	a.recordAudit(r, audit.Event{
		Action:   "rbac.user.delete",
		Entity:   "user",
		EntityID: userID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserRoleUpdate(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	var req updateUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.admin.UpdateUserRole(r.Context(), callerProfile(r), userID, req.Role); err != nil {
		writeRBACError(w, err)
		return
	}
	a.recordAudit(r, audit.Event{
		Action:   "rbac.user.role.update",
		Entity:   "user",
		EntityID: userID,
		Meta:     map[string]string{"role": rbac.NormalizeRoleName(req.Role).String()},
	})
	w.WriteHeader(http.StatusNoContent)
}
