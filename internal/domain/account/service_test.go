package account

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
)

// mockRepo is a map-backed Repository guarded by a mutex so concurrency
// tests can hammer it.
type mockRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Account
	byEmail  map[string]uuid.UUID
	failNext error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:    make(map[uuid.UUID]*Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *mockRepo) Create(ctx context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	if _, exists := r.byEmail[a.Email]; exists {
		return ErrDuplicateEmail
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	r.byID[a.ID] = &cp
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *mockRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *mockRepo) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*Account, 0, len(r.byID))
	for _, a := range r.byID {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byEmail, a.Email)
	delete(r.byID, id)
	return nil
}

// mockAllocator hands out sequential patient ids under a mutex, mirroring
// the store-side sequence.
type mockAllocator struct {
	mu       sync.Mutex
	next     int64
	byAcct   map[uuid.UUID]*patient.Profile
	failNext error
}

func newMockAllocator() *mockAllocator {
	return &mockAllocator{byAcct: make(map[uuid.UUID]*patient.Profile)}
}

func (m *mockAllocator) Allocate(ctx context.Context, accountID uuid.UUID) (*patient.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	m.next++
	p := &patient.Profile{
		ID:        uuid.New(),
		PatientID: patient.FormatPatientID(m.next),
		AccountID: accountID,
		CreatedAt: time.Now(),
	}
	m.byAcct[accountID] = p
	return p, nil
}

func newTestService() (*Service, *mockRepo, *mockAllocator) {
	repo := newMockRepo()
	alloc := newMockAllocator()
	hasher := auth.NewHasher(bcrypt.MinCost)
	tokens := auth.NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	return NewService(repo, alloc, hasher, tokens), repo, alloc
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:     "pat@example.com",
		Secret:    "correct horse battery",
		FirstName: "Pat",
		LastName:  "Example",
	}
}

func TestRegisterDefaultsToPatientWithProfile(t *testing.T) {
	svc, _, _ := newTestService()

	a, profile, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.Role != RolePatient {
		t.Errorf("role = %q, want %q", a.Role, RolePatient)
	}
	if profile == nil {
		t.Fatal("expected a patient profile for a patient registration")
	}
	if profile.PatientID != "P000001" {
		t.Errorf("patient id = %q, want P000001", profile.PatientID)
	}
	if profile.AccountID != a.ID {
		t.Error("profile not linked to the new account")
	}
	if a.SecretHash == "correct horse battery" {
		t.Error("secret stored in plaintext")
	}
}

func TestRegisterStaffSkipsProfile(t *testing.T) {
	svc, _, alloc := newTestService()

	in := validInput()
	in.Email = "doc@clinic.com"
	in.Role = RoleDoctor
	a, profile, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if profile != nil {
		t.Error("staff registration should not allocate a profile")
	}
	if len(alloc.byAcct) != 0 {
		t.Error("allocator was called for a staff registration")
	}
	if a.Role != RoleDoctor {
		t.Errorf("role = %q, want %q", a.Role, RoleDoctor)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService()

	in := RegisterInput{Email: "", Secret: "short", FirstName: "", LastName: "", Role: "nurse"}
	_, _, err := svc.Register(context.Background(), in)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	for _, field := range []string{"email", "password", "first_name", "last_name", "role"} {
		if _, ok := ve.Fields[field]; !ok {
			t.Errorf("missing problem for field %q: %v", field, ve.Fields)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegisterRollsBackOnAllocationFailure(t *testing.T) {
	svc, repo, alloc := newTestService()
	alloc.failNext = patient.ErrAllocationFailed

	_, _, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, ErrProfileAllocation) {
		t.Fatalf("err = %v, want ErrProfileAllocation", err)
	}
	if _, err := repo.GetByEmail(context.Background(), "pat@example.com"); !errors.Is(err, ErrNotFound) {
		t.Error("account survived a failed profile allocation")
	}

	// The email must be reusable after the rollback.
	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Errorf("re-register after rollback: %v", err)
	}
}

func TestConcurrentRegistrationsGetDistinctPatientIDs(t *testing.T) {
	svc, _, _ := newTestService()

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validInput()
			in.Email = fmt.Sprintf("pat%d@example.com", i)
			_, profile, err := svc.Register(context.Background(), in)
			if err != nil {
				t.Errorf("register %d: %v", i, err)
				return
			}
			ids <- profile.PatientID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate patient id %q", id)
		}
		seen[id] = true
		if len(id) != 7 || !strings.HasPrefix(id, "P") {
			t.Errorf("patient id %q does not match P followed by six digits", id)
		}
	}
	if len(seen) != n {
		t.Errorf("got %d distinct patient ids, want %d", len(seen), n)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()

	reg, _, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, a, err := svc.Login(context.Background(), "pat@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Error("expected a session token")
	}
	if a.ID != reg.ID {
		t.Error("login returned a different account")
	}

	issuer := auth.NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	id, role, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if id != reg.ID || role != string(RolePatient) {
		t.Errorf("token claims = (%s, %s), want (%s, %s)", id, role, reg.ID, RolePatient)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, wrongSecret := svc.Login(context.Background(), "pat@example.com", "not the secret")
	_, _, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "whatever")

	if !errors.Is(wrongSecret, ErrInvalidCredentials) {
		t.Errorf("wrong secret: err = %v, want ErrInvalidCredentials", wrongSecret)
	}
	if !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", unknownEmail)
	}
	if wrongSecret.Error() != unknownEmail.Error() {
		t.Error("the two failure modes are distinguishable by message")
	}
}

func TestListReturnsSummaries(t *testing.T) {
	svc, _, _ := newTestService()

	for i := 0; i < 3; i++ {
		in := validInput()
		in.Email = fmt.Sprintf("pat%d@example.com", i)
		if _, _, err := svc.Register(context.Background(), in); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	summaries, total, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(summaries) != 2 {
		t.Errorf("page size = %d, want 2", len(summaries))
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService()

	if err := svc.Bootstrap(context.Background(), "admin123"); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}

	admin, err := repo.GetByEmail(context.Background(), AdminEmail)
	if err != nil {
		t.Fatalf("admin account missing after bootstrap: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("admin role = %q, want %q", admin.Role, RoleAdmin)
	}

	if err := svc.Bootstrap(context.Background(), "different-secret"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	again, err := repo.GetByEmail(context.Background(), AdminEmail)
	if err != nil {
		t.Fatalf("admin lookup after re-bootstrap: %v", err)
	}
	if again.SecretHash != admin.SecretHash {
		t.Error("re-bootstrap replaced the existing admin credentials")
	}

	// The seeded credentials must work for login.
	if _, _, err := svc.Login(context.Background(), AdminEmail, "admin123"); err != nil {
		t.Errorf("admin login after bootstrap: %v", err)
	}
}

func TestBootstrapTreatsLostRaceAsSuccess(t *testing.T) {
	svc, repo, _ := newTestService()

	// Simulate another instance winning the seed between lookup and create.
	repo.failNext = ErrDuplicateEmail
	if err := svc.Bootstrap(context.Background(), "admin123"); err != nil {
		t.Errorf("bootstrap after lost race: %v", err)
	}
}
