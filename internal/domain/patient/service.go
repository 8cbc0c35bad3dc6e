package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	profiles ProfileRepository
}

func NewService(profiles ProfileRepository) *Service {
	return &Service{profiles: profiles}
}

// Allocate assigns the next sequential patient id and links a new profile
// to the given account.
func (s *Service) Allocate(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("account_id is required")
	}
	return s.profiles.Allocate(ctx, accountID)
}

// GetByAccount returns the profile linked to the given account.
func (s *Service) GetByAccount(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	return s.profiles.GetByAccountID(ctx, accountID)
}

// Count returns the number of allocated profiles.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.profiles.Count(ctx)
}
