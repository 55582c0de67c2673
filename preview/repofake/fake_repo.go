package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftstudio/auth-gateway/preview"
)

var _ preview.Repo = (*FakeRepo)(nil)

type FakeRepo struct {
	lock    sync.RWMutex
	domains map[string]*preview.Domain // id -> domain
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{domains: make(map[string]*preview.Domain)}
}

func (r *FakeRepo) Upsert(ctx context.Context, domain *preview.Domain) (*preview.Domain, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if domain.ID == "" {
		domain.ID = uuid.New().String()
	}

	now := time.Now()
	copied := *domain
	copied.UpdatedAt = now
	if existing, ok := r.domains[copied.ID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else {
		copied.CreatedAt = now
	}

	r.domains[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (r *FakeRepo) GetByProjectID(ctx context.Context, projectID string) (*preview.Domain, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, d := range r.domains {
		if d.ProjectID == projectID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeRepo) GetByFullDomain(ctx context.Context, fullDomain string) (*preview.Domain, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, d := range r.domains {
		if d.FullDomain == fullDomain {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *FakeRepo) Delete(ctx context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.domains, id)
	return nil
}
