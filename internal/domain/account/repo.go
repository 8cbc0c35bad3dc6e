package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateEmail indicates the email is already registered. Uniqueness
	// is enforced by the store, not by an application-level check, so two
	// concurrent creates with the same email cannot both succeed.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound indicates no account exists for the given key.
	ErrNotFound = errors.New("account not found")
)

// Repository defines the persistence interface for accounts. Delete exists
// only as compensation for a failed patient profile allocation; accounts
// are otherwise never removed.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	List(ctx context.Context, limit, offset int) ([]*Account, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
