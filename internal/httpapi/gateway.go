package httpapi

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/jtsaich/fda-search-sub000/internal/obs"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
)

// newBackendProxy forwards to the external document-query backend. Payloads
// pass through untouched; this layer only decides whether they may.
func (a *API) newBackendProxy(backend *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(backend)
	proxy.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
		writeError(w, http.StatusBadGateway, "query backend unavailable")
	}
	return proxy
}

func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	a.forwardIfPermitted(w, r, rbac.PermDocumentsQuery)
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.forwardIfPermitted(w, r, rbac.PermDocumentsQuery)
	case http.MethodPost:
		a.forwardIfPermitted(w, r, rbac.PermDocumentsUpload)
	case http.MethodDelete:
		a.forwardIfPermitted(w, r, rbac.PermDocumentsDelete)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// forwardIfPermitted is the gate in front of the proxy: a fail-closed
// permission decision, then a verbatim forward.
func (a *API) forwardIfPermitted(w http.ResponseWriter, r *http.Request, permission string) {
	allowed, err := a.resolver.HasPermission(r.Context(), callerProfile(r), permission)
	if err != nil {
		obs.RecordAuthzDecision("error")
		writeRBACError(w, err)
		return
	}
	if !allowed {
		obs.RecordAuthzDecision("denied")
		writeError(w, http.StatusForbidden, "permission denied: "+permission)
		return
	}
	obs.RecordAuthzDecision("granted")
	a.proxy.ServeHTTP(w, r)
}
