package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
)

// ErrInvalidCredentials covers both "no such account" and "wrong secret".
// The two cases are deliberately indistinguishable to callers so login
// cannot be used to enumerate registered emails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrProfileAllocation indicates registration failed while allocating the
// patient profile. The newly created account is removed before this is
// returned, so no patient account is left without a profile.
var ErrProfileAllocation = errors.New("registration failed: patient profile allocation")

// dummyHash is a bcrypt hash compared against when login hits an unknown
// email, keeping the unknown-email path as expensive as the wrong-secret
// path.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ProfileAllocator assigns a patient profile to a newly registered
// patient account.
type ProfileAllocator interface {
	Allocate(ctx context.Context, accountID uuid.UUID) (*patient.Profile, error)
}

type Service struct {
	accounts Repository
	profiles ProfileAllocator
	hasher   *auth.Hasher
	tokens   *auth.TokenIssuer
}

func NewService(accounts Repository, profiles ProfileAllocator, hasher *auth.Hasher, tokens *auth.TokenIssuer) *Service {
	return &Service{accounts: accounts, profiles: profiles, hasher: hasher, tokens: tokens}
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Secret    string
	FirstName string
	LastName  string
	Role      Role
}

// Validate returns per-field problems, keyed by field name. An empty map
// means the input is acceptable.
func (in *RegisterInput) Validate() map[string]string {
	problems := make(map[string]string)
	if in.Email == "" {
		problems["email"] = "email is required"
	}
	if in.Secret == "" {
		problems["password"] = "password is required"
	} else if len(in.Secret) < 8 {
		problems["password"] = "password must be at least 8 characters"
	}
	if in.FirstName == "" {
		problems["first_name"] = "first_name is required"
	}
	if in.LastName == "" {
		problems["last_name"] = "last_name is required"
	}
	if in.Role != "" && !in.Role.Valid() {
		problems["role"] = fmt.Sprintf("unknown role %q", in.Role)
	}
	return problems
}

// Register creates an account and, for patient-role registrations, links a
// patient profile. When allocation fails the account is deleted again so
// the two writes act as one unit.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, *patient.Profile, error) {
	if problems := in.Validate(); len(problems) > 0 {
		return nil, nil, &ValidationError{Fields: problems}
	}

	role := in.Role
	if role == "" {
		role = DefaultRole
	}

	hash, err := s.hasher.Hash(in.Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("hash secret: %w", err)
	}

	a := &Account{
		Email:      in.Email,
		SecretHash: hash,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Role:       role,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, nil, err
	}

	var profile *patient.Profile
	if role == RolePatient {
		profile, err = s.profiles.Allocate(ctx, a.ID)
		if err != nil {
			// Compensating cleanup: a patient account must not exist
			// without a profile.
			if delErr := s.accounts.Delete(ctx, a.ID); delErr != nil {
				return nil, nil, fmt.Errorf("%w: %v (cleanup also failed: %v)", ErrProfileAllocation, err, delErr)
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrProfileAllocation, err)
		}
	}

	return a, profile, nil
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong secrets produce the same error.
func (s *Service) Login(ctx context.Context, email, secret string) (string, *Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Burn a comparison so this path costs the same as a mismatch.
		_ = s.hasher.Verify(secret, dummyHash)
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := s.hasher.Verify(secret, a.SecretHash); err != nil {
		if errors.Is(err, auth.ErrMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("verify secret: %w", err)
	}

	token, err := s.tokens.Issue(a.ID, string(a.Role))
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, a, nil
}

// Get returns a single account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// List returns account summaries ordered by creation time.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Summary, int, error) {
	accounts, total, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]Summary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, a.Summary())
	}
	return summaries, total, nil
}

// ValidationError reports per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}
