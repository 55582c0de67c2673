package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/draftstudio/auth-gateway/identity"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

// Callback failure reasons, carried to the error page as ?reason=<code>.
const (
	ReasonNoCode             = "no_code"
	ReasonExchangeFailed     = "exchange_failed"
	ReasonNoUserData         = "no_user_data"
	ReasonUserCreationFailed = "user_creation_failed"
	ReasonUpsertError        = "upsert_error"
	ReasonUnexpectedError    = "unexpected_error"
)

const (
	signedUpEvent = "user_signed_up"
	signedInEvent = "user_signed_in"
)

// AuthCallbackHandler completes the provider redirect: redeem the code,
// persist the account record, and send the browser to the post-auth page.
// Every failure lands on the error page with a machine-readable reason.
// Redirect targets are always built from the configured site origin, never
// from the request host.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		code := r.URL.Query().Get("code")
		next := safeNextPath(r.URL.Query().Get("next"))

		if code == "" {
			s.redirectCallbackError(w, r, ReasonNoCode, "missing authorization code")
			return
		}

		sess, err := s.deps.Sessions.ExchangeCode(ctx, w, code)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrExchangeFailed) {
				s.log.Warn().Err(err).Msg("code exchange failed")
				s.redirectCallbackError(w, r, ReasonExchangeFailed, "code exchange failed")
				return
			}
			s.logServerFailure(callbackFailureStatus(err), err)
			s.redirectCallbackError(w, r, ReasonUnexpectedError, "unexpected error")
			return
		}
		if sess == nil || sess.User == nil || sess.User.ID == "" {
			s.log.Warn().Msg("code exchange returned a session without user data")
			s.redirectCallbackError(w, r, ReasonNoUserData, "no user data returned")
			return
		}

		// A missing account record means this is the user's first
		// completed sign-in.
		existing, err := s.deps.Users.GetByID(ctx, sess.User.ID)
		if err != nil {
			s.log.Warn().Err(err).Msg("pre-upsert account lookup failed, treating as returning user")
			existing = nil
		}
		firstSignIn := err == nil && existing == nil

		name := identity.DeriveName(sess.User.Metadata)
		first, last := identity.SplitName(name)
		if _, err := s.deps.Users.Upsert(ctx, &identity.User{
			ID:          sess.User.ID,
			Email:       sess.User.Email,
			FirstName:   first,
			LastName:    last,
			DisplayName: name,
			AvatarURL:   sess.User.Metadata["avatar_url"],
		}); err != nil {
			s.logServerFailure(callbackFailureStatus(err), err)
			if firstSignIn {
				s.redirectCallbackError(w, r, ReasonUserCreationFailed, "user creation failed")
			} else {
				s.redirectCallbackError(w, r, ReasonUpsertError, "account update failed")
			}
			return
		}

		// Analytics is best effort; a tracking failure never blocks the
		// sign-in.
		if firstSignIn {
			if err := s.deps.Tracker.Track(ctx, sess.User.ID, signedUpEvent, map[string]any{
				"email": sess.User.Email,
			}); err != nil {
				s.log.Warn().Err(err).Msg("signup analytics event failed")
			}
		}
		if err := s.deps.Tracker.Track(ctx, sess.User.ID, signedInEvent, map[string]any{
			"email": sess.User.Email,
		}); err != nil {
			s.log.Warn().Err(err).Msg("sign-in analytics event failed")
		}

		http.Redirect(w, r, s.config.SiteOrigin()+next, http.StatusFound)
	}
}

// redirectCallbackError sends the browser to the error page. The message is
// a fixed human-readable string per reason; provider internals never ride
// along in the URL.
func (s *Server) redirectCallbackError(w http.ResponseWriter, r *http.Request, reason, message string) {
	target := s.config.SiteOrigin() + RouteAuthCodeError +
		"?reason=" + url.QueryEscape(reason) + "&error=" + url.QueryEscape(message)
	http.Redirect(w, r, target, http.StatusFound)
}

// callbackFailureStatus picks the status used for log severity only; the
// browser always gets a redirect.
func callbackFailureStatus(err error) int {
	if apperrors.Classify(err) == apperrors.KindDatabase {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// safeNextPath keeps the post-auth destination on our own origin. Anything
// absolute or protocol-relative falls back to the default page.
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return RouteAuthRedirect
	}
	return next
}
