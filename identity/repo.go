package identity

import "context"

// Repo persists user records. Lookups return (nil, nil) when no record
// exists; errors are reserved for storage failures.
type Repo interface {
	Upsert(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*User, error)
}
