// Package httpapi is the HTTP layer: session bridge endpoints, the role-admin
// surface, the gated query-backend proxy and operational endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/audit"
	"github.com/jtsaich/fda-search-sub000/internal/obs"
	"github.com/jtsaich/fda-search-sub000/internal/provider"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
	"github.com/jtsaich/fda-search-sub000/internal/session"
)

// ReadyProbe reports backend readiness, typically a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Reader   *session.Reader
	Resolver *rbac.Resolver
	Admin    *rbac.Admin
	Provider *provider.Client
	Audit    *audit.Logger

	// Profiles backs the first-sign-in bootstrap on the code-exchange path.
	Profiles rbac.ProfileStore

	// QueryBackendURL is the external document-query backend the gateway
	// forwards to. Empty disables the /api routes.
	QueryBackendURL string

	ReadyProbe    ReadyProbe
	Version       string
	SecureCookies bool
	CORSOrigins   []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	reader     *session.Reader
	resolver   *rbac.Resolver
	admin      *rbac.Admin
	provider   *provider.Client
	audit      *audit.Logger
	profiles   rbac.ProfileStore
	readyProbe ReadyProbe
	version    string
	secure     bool
	cors       []string
	proxy      http.Handler
}

// New constructs the API and its routes.
func New(cfg Config) (*API, error) {
	a := &API{
		mux:        http.NewServeMux(),
		reader:     cfg.Reader,
		resolver:   cfg.Resolver,
		admin:      cfg.Admin,
		provider:   cfg.Provider,
		audit:      cfg.Audit,
		profiles:   cfg.Profiles,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		secure:     cfg.SecureCookies,
		cors:       cfg.CORSOrigins,
	}
	if cfg.QueryBackendURL != "" {
		backend, err := url.Parse(cfg.QueryBackendURL)
		if err != nil {
			return nil, err
		}
		a.proxy = a.newBackendProxy(backend)
	}

	// health/ready/info/metrics
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.HandleFunc("/v1/info", a.handleInfo)
	a.mux.Handle("/metrics", obs.Handler())

	// auth bridge
	a.mux.HandleFunc("/auth/callback", a.handleAuthCallback)

	// role admin surface
	a.mux.Handle("/v1/roles", a.protect(http.HandlerFunc(a.handleRoles)))
	a.mux.Handle("/v1/roles/", a.protect(http.HandlerFunc(a.handleRoleScoped)))
	a.mux.Handle("/v1/permissions", a.protect(http.HandlerFunc(a.handlePermissions)))
	a.mux.Handle("/v1/permissions/", a.protect(http.HandlerFunc(a.handlePermissionScoped)))
	a.mux.Handle("/v1/users", a.protect(http.HandlerFunc(a.handleUsers)))
	a.mux.Handle("/v1/users/", a.protect(http.HandlerFunc(a.handleUserScoped)))

	// gated proxy to the document-query backend
	if a.proxy != nil {
		a.mux.Handle("/api/query", a.protect(http.HandlerFunc(a.handleQuery)))
		a.mux.Handle("/api/documents", a.protect(http.HandlerFunc(a.handleDocuments)))
		a.mux.Handle("/api/documents/", a.protect(http.HandlerFunc(a.handleDocuments)))
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return a, nil
}

// protect chains session resolution and the authentication gate for a route.
func (a *API) protect(next http.Handler) http.Handler {
	return a.withSession(a.requireAuth(next))
}

// Handler returns the fully wrapped handler: instrumentation plus the shared
// middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = RateLimit(h, 50, 25)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.cors)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "fda-search-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "fda-search-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// recordAudit enriches an event with the caller and request id before writing.
func (a *API) recordAudit(r *http.Request, e audit.Event) {
	if a.audit == nil {
		return
	}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		e.Actor = p.Profile.ID
	}
	e.RequestID = RequestIDFromContext(r.Context())
	a.audit.Record(e)
}
