package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// CookieName is the server-observed session cookie.
const CookieName = "fda_session"

// cookieMaxAge outlives the access token on purpose: the client refreshes
// tokens and relays TOKEN_REFRESHED through the bridge, replacing the cookie
// long before it lapses.
const cookieMaxAge = 30 * 24 * time.Hour

// ErrNoSession means the request carries no decodable session cookie.
var ErrNoSession = errors.New("session: no session cookie")

// WriteCookie installs the serialized session as the server's cookie-backed
// session. A full replace every time, never a partial update.
func WriteCookie(w http.ResponseWriter, s *Session, secure bool) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie removes the server-observed session.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie decodes the serialized session from the request, if present.
// The payload is untrusted until the access token inside it is verified.
func ReadCookie(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, ErrNoSession
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ErrNoSession
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Reader resolves the calling identity for a server-rendered request from the
// cookie-backed session.
type Reader struct {
	verifier *Verifier
}

// NewReader constructs a Reader.
func NewReader(verifier *Verifier) (*Reader, error) {
	if verifier == nil {
		return nil, errors.New("session: verifier is required")
	}
	return &Reader{verifier: verifier}, nil
}

// Verify checks a raw access token and returns its identity.
func (rd *Reader) Verify(token string) (Identity, error) {
	return rd.verifier.Verify(token)
}

// Identity reads and verifies the request's session. Any failure (missing
// cookie, malformed payload, invalid or expired token) resolves to
// ErrNoSession or ErrInvalidToken, both of which mean "unauthenticated".
func (rd *Reader) Identity(r *http.Request) (Identity, *Session, error) {
	s, err := ReadCookie(r)
	if err != nil {
		return Identity{}, nil, err
	}
	identity, err := rd.verifier.Verify(s.AccessToken)
	if err != nil {
		return Identity{}, nil, err
	}
	return identity, s, nil
}
