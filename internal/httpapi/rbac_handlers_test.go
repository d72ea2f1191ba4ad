package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

func TestNonAdminRoleMutationDenied(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "viewer-1", rbac.RoleViewer)
	cookie := signedCookie(t, "viewer-1", time.Hour)

	rec := doJSON(t, env.api, http.MethodPost, "/v1/roles",
		`{"name":"Data Analyst"}`, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	if body["success"] != false || body["error"] != "Unauthorized: Admin access required" {
		t.Fatalf("unexpected body: %v", body)
	}

	// No mutation happened.
	if _, err := env.store.Roles().FindByName(context.Background(), rbac.NormalizeRoleName("Data Analyst")); err == nil {
		t.Fatalf("role was created despite denial")
	}
}

func TestAdminCreatesNormalizedRole(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	cookie := signedCookie(t, "admin-1", time.Hour)

	rec := doJSON(t, env.api, http.MethodPost, "/v1/roles",
		`{"name":"Data Analyst","description":"ad-hoc analysis"}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	role, _ := body["role"].(map[string]any)
	if role["name"] != "data_analyst" {
		t.Fatalf("name not normalized: %v", role)
	}
	if loc := rec.Header().Get("Location"); loc == "" {
		t.Fatalf("missing Location header")
	}

	// Same request again: conflict.
	rec = doJSON(t, env.api, http.MethodPost, "/v1/roles",
		`{"name":"data analyst"}`, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDeleteSystemRoleRejected(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	cookie := signedCookie(t, "admin-1", time.Hour)

	adminRole, err := env.store.Roles().FindByName(context.Background(), rbac.NormalizeRoleName(rbac.RoleAdmin))
	if err != nil {
		t.Fatalf("find admin role: %v", err)
	}
	rec := doJSON(t, env.api, http.MethodDelete, "/v1/roles/"+adminRole.ID+"?name=admin", "", cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := env.store.Roles().Find(context.Background(), adminRole.ID); err != nil {
		t.Fatalf("system role row disappeared: %v", err)
	}
}

func TestTogglePermissionRoundTrip(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	cookie := signedCookie(t, "admin-1", time.Hour)

	perm, err := env.store.Permissions().FindByName(context.Background(), rbac.PermDocumentsUpload)
	if err != nil {
		t.Fatalf("find permission: %v", err)
	}

	rec := doJSON(t, env.api, http.MethodPost, "/v1/roles/viewer/permissions",
		`{"permission_id":"`+perm.ID+`"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decodeResponse(t, rec); body["enabled"] != true {
		t.Fatalf("expected enabled=true, got %v", body)
	}

	// Self-inverse: toggling again removes the grant.
	rec = doJSON(t, env.api, http.MethodPost, "/v1/roles/viewer/permissions",
		`{"permission_id":"`+perm.ID+`"}`, cookie)
	if body := decodeResponse(t, rec); body["enabled"] != false {
		t.Fatalf("expected enabled=false, got %v", body)
	}
}

func TestPermissionCheckBatch(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	env.seedProfile(t, "viewer-1", rbac.RoleViewer)
	adminCookie := signedCookie(t, "admin-1", time.Hour)
	viewerCookie := signedCookie(t, "viewer-1", time.Hour)

	perm, err := env.store.Permissions().FindByName(context.Background(), rbac.PermDocumentsQuery)
	if err != nil {
		t.Fatalf("find permission: %v", err)
	}
	rec := doJSON(t, env.api, http.MethodPost, "/v1/roles/viewer/permissions",
		`{"permission_id":"`+perm.ID+`"}`, adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("grant failed: %d", rec.Code)
	}

	rec = doJSON(t, env.api, http.MethodPost, "/v1/permissions/check",
		`{"permissions":["documents.query","documents.upload","no.such.permission"]}`, viewerCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeResponse(t, rec)
	perms, _ := body["permissions"].(map[string]any)
	if perms["documents.query"] != true {
		t.Fatalf("granted permission not reported: %v", perms)
	}
	if perms["documents.upload"] != false || perms["no.such.permission"] != false {
		t.Fatalf("fail-closed violated: %v", perms)
	}
}

func TestUpdateUserRoleRequiresExistingRole(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	env.seedProfile(t, "user-1", rbac.RoleViewer)
	cookie := signedCookie(t, "admin-1", time.Hour)

	rec := doJSON(t, env.api, http.MethodPut, "/v1/users/user-1/role",
		`{"role":"never_created"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.api, http.MethodPut, "/v1/users/user-1/role",
		`{"role":"researcher"}`, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", rec.Code, rec.Body.String())
	}
	profile, err := env.store.Profiles().Find(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.Role.System() != rbac.SystemResearcher {
		t.Fatalf("role not updated: %s", profile.Role.String())
	}
}

func TestAdminCannotDeleteOwnAccount(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "admin-1", rbac.RoleAdmin)
	cookie := signedCookie(t, "admin-1", time.Hour)

	rec := doJSON(t, env.api, http.MethodDelete, "/v1/users/admin-1", "", cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := env.store.Profiles().Find(context.Background(), "admin-1"); err != nil {
		t.Fatalf("profile disappeared: %v", err)
	}
}

func TestListEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.seedProfile(t, "viewer-1", rbac.RoleViewer)
	cookie := signedCookie(t, "viewer-1", time.Hour)

	for _, path := range []string{"/v1/roles", "/v1/permissions", "/v1/users"} {
		rec := doJSON(t, env.api, http.MethodGet, path, "", cookie)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rec.Code)
		}
	}
}
