package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type profileRepoPG struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

// Allocate inserts a profile whose patient id is drawn from the dedicated
// patient_profile_seq sequence inside the INSERT itself. nextval is atomic,
// so concurrent allocations can never observe the same number; the UNIQUE
// constraint on patient_id backstops the invariant.
func (r *profileRepoPG) Allocate(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	p := &Profile{ID: uuid.New(), AccountID: accountID}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO patient_profile (id, patient_id, account_id)
		VALUES ($1, 'P' || lpad(nextval('patient_profile_seq')::text, 6, '0'), $2)
		RETURNING patient_id, created_at`,
		p.ID, p.AccountID,
	).Scan(&p.PatientID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	return p, nil
}

func (r *profileRepoPG) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, account_id, created_at
		FROM patient_profile WHERE account_id = $1`,
		accountID,
	).Scan(&p.ID, &p.PatientID, &p.AccountID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_profile`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
