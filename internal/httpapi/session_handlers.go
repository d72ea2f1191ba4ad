package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/audit"
	"github.com/jtsaich/fda-search-sub000/internal/obs"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
	"github.com/jtsaich/fda-search-sub000/internal/session"
)

type syncRequest struct {
	Event   string           `json:"event"`
	Session *session.Session `json:"session"`
}

func (a *API) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleSessionSync(w, r)
	case http.MethodGet:
		a.handleCodeExchange(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleSessionSync is the server side of the auth bridge. It fully replaces
// or clears the cookie-backed session; there is no partial update.
func (a *API) handleSessionSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	event, err := session.ParseEvent(req.Event)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown auth event")
		return
	}

	// SIGNED_OUT, a nil session and an empty token all mean "clear".
	if event == session.EventSignedOut || req.Session == nil || req.Session.AccessToken == "" {
		session.ClearCookie(w)
		obs.RecordSessionSync(string(event), "clear")
		a.recordAudit(r, audit.Event{Action: "session.clear", Entity: "session"})
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	identity, err := a.reader.Verify(req.Session.AccessToken)
	if err != nil {
		obs.RecordSessionSync(string(event), "error")
		writeError(w, http.StatusBadRequest, "invalid access token")
		return
	}
	if err := session.WriteCookie(w, req.Session, a.secure); err != nil {
		obs.RecordSessionSync(string(event), "error")
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}
	obs.RecordSessionSync(string(event), "install")
	a.recordAudit(r, audit.Event{
		Action:   "session.install",
		Entity:   "session",
		EntityID: identity.UserID,
		Meta:     map[string]string{"event": string(event)},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCodeExchange finishes the OAuth redirect flow: one-time code in,
// cookie-backed session out, then a redirect to the requested page.
func (a *API) handleCodeExchange(w http.ResponseWriter, r *http.Request) {
	if a.provider == nil {
		loginRedirect(w, r, "sign-in is not configured")
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		loginRedirect(w, r, "missing authorization code")
		return
	}

	s, err := a.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		obs.RecordSessionSync(string(session.EventSignedIn), "error")
		loginRedirect(w, r, "sign-in failed, please try again")
		return
	}
	identity, err := a.reader.Verify(s.AccessToken)
	if err != nil {
		obs.RecordSessionSync(string(session.EventSignedIn), "error")
		loginRedirect(w, r, "sign-in failed, please try again")
		return
	}

	// First sign-in bootstraps a profile with the least-privileged role.
	email := identity.Email
	if email == "" {
		email, _ = a.provider.EmailForToken(r.Context(), s.AccessToken)
	}
	now := time.Now().UTC()
	profile := &rbac.UserProfile{
		ID:        identity.UserID,
		Email:     email,
		Role:      rbac.NormalizeRoleName(rbac.RoleViewer),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.profiles.Ensure(r.Context(), profile); err != nil {
		loginRedirect(w, r, "sign-in failed, please try again")
		return
	}

	if err := session.WriteCookie(w, s, a.secure); err != nil {
		loginRedirect(w, r, "sign-in failed, please try again")
		return
	}
	obs.RecordSessionSync(string(session.EventSignedIn), "install")
	a.recordAudit(r, audit.Event{
		Action:   "session.install",
		Actor:    identity.UserID,
		Entity:   "session",
		EntityID: identity.UserID,
		Meta:     map[string]string{"event": string(session.EventSignedIn)},
	})
	http.Redirect(w, r, sanitizeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
}

// sanitizeNext keeps redirects on-site: relative paths only.
func sanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func loginRedirect(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
