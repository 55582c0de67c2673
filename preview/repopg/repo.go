// Package repopg is the Postgres-backed preview domain repository.
package repopg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/draftstudio/auth-gateway/internal/db"
	"github.com/draftstudio/auth-gateway/preview"
)

var _ preview.Repo = (*DomainRepo)(nil)

type DomainRepo struct {
	handle *db.Handle
}

func NewDomainRepo(handle *db.Handle) *DomainRepo {
	return &DomainRepo{handle: handle}
}

const upsertDomainSQL = `
INSERT INTO preview_domains (id, project_id, full_domain, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (project_id) DO UPDATE SET
    full_domain = EXCLUDED.full_domain,
    updated_at  = EXCLUDED.updated_at
RETURNING id, project_id, full_domain, created_at, updated_at`

func (r *DomainRepo) Upsert(ctx context.Context, domain *preview.Domain) (*preview.Domain, error) {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	if domain.ID == "" {
		domain.ID = uuid.New().String()
	}

	stored, err := scanDomain(pool.QueryRow(ctx, upsertDomainSQL,
		domain.ID, domain.ProjectID, domain.FullDomain, time.Now()))
	if err != nil {
		return nil, errors.Wrap(err, "[DomainRepo.Upsert] scan")
	}
	return stored, nil
}

func (r *DomainRepo) GetByProjectID(ctx context.Context, projectID string) (*preview.Domain, error) {
	return r.getBy(ctx,
		`SELECT id, project_id, full_domain, created_at, updated_at
		 FROM preview_domains WHERE project_id = $1`, projectID)
}

func (r *DomainRepo) GetByFullDomain(ctx context.Context, fullDomain string) (*preview.Domain, error) {
	return r.getBy(ctx,
		`SELECT id, project_id, full_domain, created_at, updated_at
		 FROM preview_domains WHERE full_domain = $1`, fullDomain)
}

func (r *DomainRepo) getBy(ctx context.Context, query string, arg any) (*preview.Domain, error) {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	domain, err := scanDomain(pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[DomainRepo.getBy] scan")
	}
	return domain, nil
}

func (r *DomainRepo) Delete(ctx context.Context, id string) error {
	pool, err := r.handle.Pool(ctx)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `DELETE FROM preview_domains WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "[DomainRepo.Delete] exec")
	}
	return nil
}

func scanDomain(row pgx.Row) (*preview.Domain, error) {
	var d preview.Domain
	err := row.Scan(&d.ID, &d.ProjectID, &d.FullDomain, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
