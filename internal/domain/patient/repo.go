package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAllocationFailed indicates the profile row could not be persisted.
var ErrAllocationFailed = errors.New("patient profile allocation failed")

// ErrProfileNotFound indicates no profile exists for the given account.
var ErrProfileNotFound = errors.New("patient profile not found")

// ProfileRepository defines the persistence interface for patient profiles.
// Allocate must assign a unique patient id even under concurrent calls.
type ProfileRepository interface {
	Allocate(ctx context.Context, accountID uuid.UUID) (*Profile, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Profile, error)
	Count(ctx context.Context) (int, error)
}
