package rpc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/draftstudio/auth-gateway/identity"
	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/draftstudio/auth-gateway/preview"
)

// CoreProcedures registers the user, preview-domain, and sandbox procedures.
type CoreProcedures struct {
	HostingDomain string
}

func (p CoreProcedures) Register(r *Router) {
	r.Handle("user.upsert", Protected(p.userUpsert))
	r.Handle("user.get", Protected(p.userGet))
	r.Handle("preview.get", Protected(p.previewGet))
	r.Handle("preview.create", Protected(p.previewCreate))
	r.Handle("sandbox.start", Protected(p.sandboxStart))
	r.Handle("sandbox.stop", Protected(p.sandboxStop))
	r.Handle("sandbox.status", Protected(p.sandboxStatus))
}

type userUpsertInput struct {
	ID string `json:"id"`
}

// userUpsert writes the caller's account record from their session claims.
// The id in the input must be the caller's own; nobody upserts someone else.
func (p CoreProcedures) userUpsert(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in userUpsertInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	if in.ID != "" && in.ID != c.User.ID {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[userUpsert] id does not match caller")
	}

	name := identity.DeriveName(c.User.Metadata)
	first, last := identity.SplitName(name)
	user := &identity.User{
		ID:          c.User.ID,
		Email:       c.User.Email,
		FirstName:   first,
		LastName:    last,
		DisplayName: name,
		AvatarURL:   c.User.Metadata["avatar_url"],
	}
	saved, err := c.Users.Upsert(ctx, user)
	if err != nil {
		return nil, errors.Wrap(err, "[userUpsert] upsert user")
	}
	return saved, nil
}

func (p CoreProcedures) userGet(ctx context.Context, c *Context, _ json.RawMessage) (any, error) {
	user, err := c.Users.GetByID(ctx, c.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[userGet] get user")
	}
	if user == nil {
		return nil, errors.Wrap(apperrors.ErrNotFound, "[userGet] no account record")
	}
	return user, nil
}

type previewInput struct {
	ProjectID string `json:"project_id"`
}

// previewGet returns a project's preview domain, repairing records that were
// written while the hosting domain was unset.
func (p CoreProcedures) previewGet(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in previewInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	if in.ProjectID == "" {
		return nil, errors.Wrap(apperrors.ErrBadRequest, "[previewGet] project_id is required")
	}

	domain, err := c.Previews.GetByProjectID(ctx, in.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "[previewGet] get domain")
	}
	if domain == nil {
		return nil, nil
	}
	if preview.Corrupted(domain.FullDomain) {
		if p.HostingDomain == "" {
			c.Log.Warn().Str("projectID", in.ProjectID).Str("fullDomain", domain.FullDomain).
				Msg("corrupted preview domain and no hosting domain configured, serving as-is")
			return domain, nil
		}
		domain.FullDomain = preview.FullDomain(in.ProjectID, p.HostingDomain)
		if domain, err = c.Previews.Upsert(ctx, domain); err != nil {
			return nil, errors.Wrap(err, "[previewGet] repair domain")
		}
		c.Log.Info().Str("projectID", in.ProjectID).Str("fullDomain", domain.FullDomain).
			Msg("repaired corrupted preview domain")
	}
	return domain, nil
}

func (p CoreProcedures) previewCreate(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in previewInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	if in.ProjectID == "" {
		return nil, errors.Wrap(apperrors.ErrBadRequest, "[previewCreate] project_id is required")
	}
	if p.HostingDomain == "" {
		return nil, errors.Wrap(apperrors.ErrBadRequest, "[previewCreate] hosting domain is not configured")
	}

	existing, err := c.Previews.GetByProjectID(ctx, in.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "[previewCreate] get domain")
	}
	if existing != nil && !preview.Corrupted(existing.FullDomain) {
		return existing, nil
	}

	fullDomain := preview.FullDomain(in.ProjectID, p.HostingDomain)
	taken, err := c.Previews.GetByFullDomain(ctx, fullDomain)
	if err != nil {
		return nil, errors.Wrap(err, "[previewCreate] check domain")
	}
	if taken != nil && taken.ProjectID != in.ProjectID {
		return nil, errors.Wrapf(apperrors.ErrBadRequest, "[previewCreate] domain %q is already taken", fullDomain)
	}

	domain := &preview.Domain{ProjectID: in.ProjectID, FullDomain: fullDomain}
	if existing != nil {
		domain.ID = existing.ID
	}
	saved, err := c.Previews.Upsert(ctx, domain)
	if err != nil {
		return nil, errors.Wrap(err, "[previewCreate] upsert domain")
	}
	return saved, nil
}

type sandboxInput struct {
	SandboxID string `json:"sandbox_id"`
}

func (p CoreProcedures) sandboxStart(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in sandboxInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	urls, err := c.Sandbox.Start(ctx, in.SandboxID)
	if err != nil {
		return nil, errors.Wrap(err, "[sandboxStart] start sandbox")
	}
	return urls, nil
}

func (p CoreProcedures) sandboxStop(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in sandboxInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	urls, err := c.Sandbox.Stop(ctx, in.SandboxID)
	if err != nil {
		return nil, errors.Wrap(err, "[sandboxStop] stop sandbox")
	}
	return urls, nil
}

func (p CoreProcedures) sandboxStatus(ctx context.Context, c *Context, input json.RawMessage) (any, error) {
	var in sandboxInput
	if err := decode(input, &in); err != nil {
		return nil, err
	}
	urls, err := c.Sandbox.Status(ctx, in.SandboxID)
	if err != nil {
		return nil, errors.Wrap(err, "[sandboxStatus] sandbox status")
	}
	return urls, nil
}

func decode(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return errors.Wrapf(apperrors.ErrBadRequest, "[decode] invalid input: %v", err)
	}
	return nil
}
