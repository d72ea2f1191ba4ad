// Package session keeps the server-observed copy of the auth provider's
// client-held session consistent: a cookie codec for the serialized session,
// access-token verification for the per-request reader, and the bridge that
// relays client session changes to the server.
package session

import (
	"errors"
	"strings"
	"time"
)

// Event mirrors the auth provider's client-side notification stream.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventSignedOut      Event = "SIGNED_OUT"
	EventInitial        Event = "INITIAL_SESSION"
)

// ParseEvent validates a wire-format event name.
func ParseEvent(raw string) (Event, error) {
	switch Event(strings.TrimSpace(raw)) {
	case EventSignedIn:
		return EventSignedIn, nil
	case EventTokenRefreshed:
		return EventTokenRefreshed, nil
	case EventSignedOut:
		return EventSignedOut, nil
	case EventInitial:
		return EventInitial, nil
	default:
		return "", errors.New("session: unknown auth event")
	}
}

// Session is the transient credential pair issued by the external auth
// provider. The provider's client library owns the source of truth; the
// server only ever holds a cookie-serialized copy.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}
