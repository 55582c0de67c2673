// Package rpc implements the procedure-call surface used by the editor
// frontend. Every procedure runs against a per-request Context carrying the
// resolved user and the data-layer handles it is allowed to touch.
package rpc

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/draftstudio/auth-gateway/identity"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/preview"
	"github.com/draftstudio/auth-gateway/sandbox"
	"github.com/draftstudio/auth-gateway/session"
)

// Context is the per-call environment handed to every procedure. User is nil
// for anonymous calls; protected procedures reject those before running.
type Context struct {
	Headers  http.Header
	User     *session.User
	Users    identity.Repo
	Previews preview.Repo
	Sandbox  *sandbox.Controller
	Log      zerolog.Logger
}

// ContextBuilder assembles a Context from an incoming request. Session
// resolution failures are classified so the transport layer can answer with
// 503 for infrastructure trouble and 401 for everything auth-shaped.
type ContextBuilder struct {
	Sessions session.Store
	Users    identity.Repo
	Previews preview.Repo
	Sandbox  *sandbox.Controller
	Log      zerolog.Logger
}

func (b *ContextBuilder) Build(r *http.Request) (*Context, error) {
	sess, err := b.Sessions.GetSession(r)
	if err != nil {
		switch apperrors.Classify(err) {
		case apperrors.KindDatabase:
			return nil, fmt.Errorf("%w: resolve session: %v", apperrors.ErrDatabaseConnection, err)
		case apperrors.KindAuth:
			return nil, fmt.Errorf("%w: resolve session: %v", apperrors.ErrUnauthorized, err)
		default:
			// Unknown failures pass through unclassified; wrapping
			// would put "session" in the message and misclassify
			// them as auth errors.
			return nil, err
		}
	}

	ctx := &Context{
		Headers:  r.Header.Clone(),
		Users:    b.Users,
		Previews: b.Previews,
		Sandbox:  b.Sandbox,
		Log:      b.Log,
	}
	if sess != nil {
		ctx.User = sess.User
	}
	return ctx, nil
}
