package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftstudio/auth-gateway/identity"
)

var _ identity.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*identity.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*identity.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(ctx context.Context, user *identity.User) (*identity.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	stored, exists := ur.users[user.ID]
	if exists {
		delete(ur.emailIds, stored.Email)
	}

	copied := *user
	copied.UpdatedAt = now
	if exists {
		copied.CreatedAt = stored.CreatedAt
	} else {
		copied.CreatedAt = now
	}

	ur.users[copied.ID] = &copied
	if copied.Email != "" {
		ur.emailIds[copied.Email] = copied.ID
	}
	out := copied
	return &out, nil
}

func (ur *FakeUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, nil
	}
	copied := *ur.users[id]
	return &copied, nil
}

func (ur *FakeUserRepo) Delete(ctx context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return nil
	}
	delete(ur.emailIds, user.Email)
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) List(ctx context.Context, offset, limit int) ([]*identity.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	ids := make([]string, 0, len(ur.users))
	for id := range ur.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*identity.User, 0, limit)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		copied := *ur.users[ids[i]]
		out = append(out, &copied)
	}
	return out, nil
}
