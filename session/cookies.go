package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

// CookieName carries the serialized session token pair.
const CookieName = "ag-auth-token"

// Cookies encodes sessions to and from the session cookie.
type Cookies struct {
	// Secure marks cookies as HTTPS-only.
	Secure bool
}

// Write serializes the session into the cookie, expiring alongside it.
func (c Cookies) Write(w http.ResponseWriter, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return apperrors.Wrapf(err, "session: encode cookie")
	}

	maxAge := 0
	if !sess.ExpiresAt.IsZero() {
		maxAge = int(time.Until(sess.ExpiresAt).Seconds())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	return nil
}

// Read decodes the session cookie from the request. Returns (nil, nil) when
// the cookie is absent; a malformed cookie is an error.
func (c Cookies) Read(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, apperrors.Wrapf(err, "session: decode cookie")
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, apperrors.Wrapf(err, "session: decode cookie")
	}
	return &sess, nil
}

// Clear expires the session cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
