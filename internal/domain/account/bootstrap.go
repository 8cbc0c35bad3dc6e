package account

import (
	"context"
	"errors"
	"fmt"
)

// AdminEmail is the address of the seeded administrative account.
const AdminEmail = "admin@clinic.com"

// Bootstrap ensures exactly one administrative account exists. It runs at
// process start, before the server accepts traffic, and is idempotent: an
// existing admin account makes it a no-op. A concurrent seed racing this
// one loses on the store's email uniqueness and is also treated as done.
func (s *Service) Bootstrap(ctx context.Context, adminSecret string) error {
	_, err := s.accounts.GetByEmail(ctx, AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("bootstrap lookup: %w", err)
	}

	hash, err := s.hasher.Hash(adminSecret)
	if err != nil {
		return fmt.Errorf("bootstrap hash: %w", err)
	}

	a := &Account{
		Email:      AdminEmail,
		SecretHash: hash,
		FirstName:  "Clinic",
		LastName:   "Admin",
		Role:       RoleAdmin,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("bootstrap create: %w", err)
	}
	return nil
}
